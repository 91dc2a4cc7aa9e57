package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	_ "github.com/makeasinger/genqueue/docs"
	"github.com/makeasinger/genqueue/internal/client"
	"github.com/makeasinger/genqueue/internal/events"
	"github.com/makeasinger/genqueue/internal/handler"
	"github.com/makeasinger/genqueue/internal/middleware"
	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/provider"
	"github.com/makeasinger/genqueue/internal/scheduler"
	ws "github.com/makeasinger/genqueue/internal/websocket"
)

const (
	// fastStep lets simulated jobs finish within a few polls.
	fastStep = time.Millisecond
	// slowStep keeps the first job loading its provider for the whole test.
	slowStep = time.Minute
)

// testApp holds all components needed for testing
type testApp struct {
	app    *fiber.App
	engine *scheduler.Engine
}

// setupApp creates a Fiber app wired like main.go, backed by the simulated
// generation backend and a local audio store in a temp dir. Redis is not
// used; rate limiting falls back to the in-process limiter.
func setupApp(t *testing.T, stepDelay time.Duration) *testApp {
	t.Helper()

	validate := validator.New()

	store, err := client.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}
	backend := client.NewSimulatedBackend(stepDelay, store)

	registry, err := provider.NewRegistry(backend, []string{"ace_step", "song_generation"}, "ace_step")
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	hub := ws.NewHub()
	go hub.Run(ctx)

	engine := scheduler.New(registry, backend,
		scheduler.WithPollInterval(10*time.Millisecond),
		scheduler.WithCancelTimeout(2*time.Second),
		scheduler.WithValidator(validate),
		scheduler.WithObserver(hub),
		scheduler.WithObserver(events.NewAudioJanitor(store)),
	)
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Use a very high rate limit so tests don't get blocked
	rateLimiter := middleware.NewRateLimiter(nil)

	app := handler.NewApp(false)
	routes := &handler.Routes{
		Generation:  handler.NewGenerationHandler(engine, validate),
		Queue:       handler.NewQueueHandler(engine, validate),
		Provider:    handler.NewProviderHandler(engine, validate),
		Audio:       handler.NewAudioHandler(engine, store),
		Health:      handler.NewHealthHandler(engine, nil),
		Stream:      handler.NewStreamHandler(engine, hub),
		SubmitLimit: rateLimiter.SubmitLimit(10000),
	}
	routes.Mount(app)

	return &testApp{app: app, engine: engine}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// mustRequest performs a request and fails the test on transport errors.
func mustRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(app, method, path, body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// decodeJSON parses response body into v.
func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// assertErrorCode checks the code inside the error envelope.
func assertErrorCode(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	body := parseJSON(t, resp)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'error' object in response, got %v", body)
	}
	if errObj["code"] != expected {
		t.Errorf("expected error code %q, got %v", expected, errObj["code"])
	}
}

// submit queues a job through the API and returns its id.
func submit(t *testing.T, ta *testApp, body string) string {
	t.Helper()
	resp := mustRequest(t, ta.app, http.MethodPost, "/api/generate", body)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit: expected status 202, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var out model.SubmitResponse
	decodeJSON(t, resp, &out)
	if out.JobID == "" {
		t.Fatal("submit: empty jobId")
	}
	return out.JobID
}

func promptBody(prompt string) string {
	return `{"prompt": "` + prompt + `", "duration": 10}`
}

// waitForStatus polls the engine until the job reaches status.
func waitForStatus(t *testing.T, ta *testApp, jobID string, status model.JobStatus) model.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := ta.engine.GetStatus(jobID)
		if err == nil && job.Status == status {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := ta.engine.GetStatus(jobID)
	t.Fatalf("job %s did not reach %s (last status %s)", jobID, status, job.Status)
	return model.Job{}
}

// waitForGone polls until the job is no longer known.
func waitForGone(t *testing.T, ta *testApp, jobID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := ta.engine.GetStatus(jobID); err != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s was not removed", jobID)
}

func queueOrder(t *testing.T, ta *testApp) []string {
	t.Helper()
	resp := mustRequest(t, ta.app, http.MethodGet, "/api/queue", "")
	assertStatus(t, resp, http.StatusOK)
	var q model.QueueResponse
	decodeJSON(t, resp, &q)
	ids := make([]string, len(q.Items))
	for i, item := range q.Items {
		if item.Position != i+1 {
			t.Errorf("item %s: expected position %d, got %d", item.JobID, i+1, item.Position)
		}
		ids[i] = item.JobID
	}
	return ids
}
