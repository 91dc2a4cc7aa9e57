// Package ctl is the HTTP client behind the genqueuectl command.
package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/pkg/response"
)

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
}

func (e *APIError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s (%d): %s %v", e.Code, e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Client calls the genqueue HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) Submit(ctx context.Context, req model.GenerationRequest) (*model.SubmitResponse, error) {
	var out model.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	var out model.JobStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Preset(ctx context.Context, jobID string) (*model.PresetResponse, error) {
	var out model.PresetResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID)+"/preset", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	var out model.JobStatusResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(jobID)+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Remove(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(jobID), nil, nil)
}

// History lists jobs; an empty status lists all of them
func (c *Client) History(ctx context.Context, status string) (*model.HistoryResponse, error) {
	path := "/api/jobs"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out model.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Queue(ctx context.Context) (*model.QueueResponse, error) {
	var out model.QueueResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reorder(ctx context.Context, jobID string, position int) (*model.QueueResponse, error) {
	var out model.QueueResponse
	body := model.ReorderRequest{NewPosition: position}
	if err := c.do(ctx, http.MethodPut, "/api/queue/"+url.PathEscape(jobID)+"/position", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Move shifts a job one slot; direction is "up" or "down"
func (c *Client) Move(ctx context.Context, jobID, direction string) (*model.QueueResponse, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}
	var out model.QueueResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue/"+url.PathEscape(jobID)+"/"+direction, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Providers(ctx context.Context) (*model.ProvidersResponse, error) {
	var out model.ProvidersResponse
	if err := c.do(ctx, http.MethodGet, "/api/providers", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Switch(ctx context.Context, name string) (*model.ProvidersResponse, error) {
	var out model.ProvidersResponse
	body := model.SwitchProviderRequest{Provider: name}
	if err := c.do(ctx, http.MethodPost, "/api/providers/switch", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope response.ErrorResponse
		if err := json.Unmarshal(respBody, &envelope); err != nil || envelope.Error.Code == "" {
			return &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: strings.TrimSpace(string(respBody))}
		}
		return &APIError{
			Status:  resp.StatusCode,
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Details: envelope.Error.Details,
		}
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
