package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/makeasinger/genqueue/internal/config"
	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/provider"
)

// ModelServiceClient talks to the model service that hosts the providers.
// It loads providers for the registry and runs generations for the
// scheduler.
type ModelServiceClient struct {
	httpClient *http.Client
	baseURL    string
	store      AudioStore
}

type loadResponse struct {
	Provider string                 `json:"provider"`
	Loaded   bool                   `json:"loaded"`
	Info     map[string]interface{} `json:"info,omitempty"`
}

type submitRequest struct {
	Provider    string  `json:"provider"`
	Prompt      string  `json:"prompt"`
	Duration    float64 `json:"duration"`
	Lyrics      *string `json:"lyrics,omitempty"`
	NumVersions int     `json:"num_versions"`
	Seed        *int64  `json:"seed,omitempty"`
	Format      string  `json:"format"`
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type remoteVersion struct {
	ID        string `json:"id"`
	AudioPath string `json:"audio_path"`
	Metadata  struct {
		Seed     int64   `json:"seed"`
		Duration float64 `json:"duration"`
	} `json:"metadata"`
}

type remoteJob struct {
	JobID       string          `json:"job_id"`
	Status      string          `json:"status"`
	Progress    float64         `json:"progress"`
	CurrentStep string          `json:"current_step"`
	Versions    []remoteVersion `json:"versions"`
	Error       string          `json:"error"`
}

// NewModelServiceClient creates a client for cfg.URL. When store is not
// nil, finished audio is copied into it.
func NewModelServiceClient(cfg *config.ModelServiceConfig, store AudioStore) *ModelServiceClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &ModelServiceClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: cfg.URL,
		store:   store,
	}
}

// IsConfigured returns true if the client has a base URL
func (c *ModelServiceClient) IsConfigured() bool {
	return c.baseURL != ""
}

// Load asks the model service to load a provider
func (c *ModelServiceClient) Load(ctx context.Context, name string) (*provider.Handle, error) {
	endpoint := fmt.Sprintf("/model/v1/providers/%s/load", url.PathEscape(name))
	var result loadResponse
	if err := c.post(ctx, endpoint, struct{}{}, &result); err != nil {
		return nil, err
	}
	if !result.Loaded {
		return nil, fmt.Errorf("model service did not load provider %s", name)
	}
	return &provider.Handle{Name: name, LoadedAt: time.Now(), Info: result.Info}, nil
}

// Unload releases a provider's resources
func (c *ModelServiceClient) Unload(ctx context.Context, h *provider.Handle) error {
	endpoint := fmt.Sprintf("/model/v1/providers/%s/unload", url.PathEscape(h.Name))
	var result loadResponse
	return c.post(ctx, endpoint, struct{}{}, &result)
}

// Submit starts a generation and returns the model service's job id
func (c *ModelServiceClient) Submit(ctx context.Context, h *provider.Handle, req model.GenerationRequest) (string, error) {
	body := submitRequest{
		Provider:    h.Name,
		Prompt:      req.Prompt,
		Duration:    req.Duration,
		Lyrics:      req.Lyrics,
		NumVersions: req.NumVersions,
		Seed:        req.Seed,
		Format:      "wav",
	}
	var result submitResponse
	if err := c.post(ctx, "/model/v1/jobs", body, &result); err != nil {
		return "", err
	}
	if result.JobID == "" {
		return "", fmt.Errorf("model service returned no job id")
	}
	return result.JobID, nil
}

// Poll fetches the generation's state. Completed generations have their
// audio copied into the store before they are reported.
func (c *ModelServiceClient) Poll(ctx context.Context, handle string) (*model.GenerationUpdate, error) {
	var result remoteJob
	if err := c.get(ctx, "/model/v1/jobs/"+url.PathEscape(handle), &result); err != nil {
		return nil, err
	}

	upd := &model.GenerationUpdate{
		State:       remoteState(result.Status),
		Progress:    result.Progress,
		CurrentStep: result.CurrentStep,
		Error:       result.Error,
	}
	if upd.State != model.GenerationStateCompleted {
		return upd, nil
	}

	versions := make([]model.Version, 0, len(result.Versions))
	for i, rv := range result.Versions {
		v, err := c.collect(ctx, handle, i, rv)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	upd.Versions = versions
	return upd, nil
}

// Cancel stops a running generation
func (c *ModelServiceClient) Cancel(ctx context.Context, handle string) error {
	var result submitResponse
	return c.post(ctx, "/model/v1/jobs/"+url.PathEscape(handle)+"/cancel", struct{}{}, &result)
}

// HealthCheck checks if the model service is healthy
func (c *ModelServiceClient) HealthCheck(ctx context.Context) error {
	var result map[string]interface{}
	return c.get(ctx, "/health", &result)
}

// collect copies one version's audio into the store. The object key comes
// from the remote ids, so a poll retried after a failed download overwrites
// what an earlier attempt stored.
func (c *ModelServiceClient) collect(ctx context.Context, handle string, index int, rv remoteVersion) (model.Version, error) {
	v := model.Version{
		ID:       ulid.Make().String(),
		AudioRef: rv.AudioPath,
		Seed:     rv.Metadata.Seed,
		Duration: rv.Metadata.Duration,
	}
	if c.store == nil {
		return v, nil
	}

	endpoint := fmt.Sprintf("/model/v1/jobs/%s/versions/%s/audio", url.PathEscape(handle), url.PathEscape(rv.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return model.Version{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Version{}, fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.Version{}, fmt.Errorf("model service audio error (status %d)", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}
	name := rv.ID
	if name == "" {
		name = fmt.Sprintf("%d", index)
	}
	ref, err := c.store.Put(ctx, fmt.Sprintf("versions/%s/%s.wav", handle, name), resp.Body, contentType)
	if err != nil {
		return model.Version{}, err
	}
	v.AudioRef = ref
	return v, nil
}

func remoteState(status string) model.GenerationState {
	switch status {
	case "processing", "running":
		return model.GenerationStateRunning
	case "completed":
		return model.GenerationStateCompleted
	case "failed":
		return model.GenerationStateFailed
	case "cancelled":
		return model.GenerationStateCancelled
	default:
		return model.GenerationStatePending
	}
}

// post sends a POST request with JSON body
func (c *ModelServiceClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *ModelServiceClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *ModelServiceClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("[Model API] →", "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("[Model API] request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	slog.Debug("[Model API] ←", "status", resp.StatusCode, "method", req.Method, "url", req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
