package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/makeasinger/genqueue/internal/config"
	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/provider"
)

// fakeModelService records requests and serves canned model service answers
type fakeModelService struct {
	mu       sync.Mutex
	calls    []string
	lastJob  submitRequest
	jobState remoteJob
	// audioFailures makes the next n downloads of a version fail
	audioFailures map[string]int
}

func (f *fakeModelService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /model/v1/providers/{name}/load", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, loadResponse{Provider: r.PathValue("name"), Loaded: true, Info: map[string]interface{}{"device": "cuda"}})
	})
	mux.HandleFunc("POST /model/v1/providers/{name}/unload", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, loadResponse{Provider: r.PathValue("name")})
	})
	mux.HandleFunc("POST /model/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body submitRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode submit body: %v", err)
		}
		f.mu.Lock()
		f.lastJob = body
		f.mu.Unlock()
		writeJSON(w, http.StatusAccepted, submitResponse{JobID: "remote-1", Status: "pending"})
	})
	mux.HandleFunc("GET /model/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("id") != "remote-1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
			return
		}
		f.mu.Lock()
		state := f.jobState
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, state)
	})
	mux.HandleFunc("POST /model/v1/jobs/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, submitResponse{JobID: r.PathValue("id"), Status: "cancelled"})
	})
	mux.HandleFunc("GET /model/v1/jobs/{id}/versions/{vid}/audio", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		vid := r.PathValue("vid")
		failing := f.audioFailures[vid] > 0
		if failing {
			f.audioFailures[vid]--
		}
		f.mu.Unlock()
		if failing {
			http.Error(w, "disk busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF-" + r.PathValue("vid")))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	return mux
}

func (f *fakeModelService) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
}

func (f *fakeModelService) setState(s remoteJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobState = s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newModelClient(t *testing.T, store AudioStore) (*ModelServiceClient, *fakeModelService) {
	t.Helper()
	fake := &fakeModelService{audioFailures: map[string]int{}}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c := NewModelServiceClient(&config.ModelServiceConfig{URL: srv.URL, Timeout: 5}, store)
	return c, fake
}

func TestModelServiceClientLoadAndUnload(t *testing.T) {
	c, fake := newModelClient(t, nil)
	ctx := context.Background()

	h, err := c.Load(ctx, "ace_step")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.Name != "ace_step" || h.Info["device"] != "cuda" {
		t.Errorf("handle = %+v", h)
	}
	if err := c.Unload(ctx, h); err != nil {
		t.Fatalf("Unload: %v", err)
	}

	want := []string{
		"POST /model/v1/providers/ace_step/load",
		"POST /model/v1/providers/ace_step/unload",
	}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
}

func TestModelServiceClientSubmitSendsRequest(t *testing.T) {
	c, fake := newModelClient(t, nil)
	lyrics := "la la"
	seed := int64(42)

	id, err := c.Submit(context.Background(), &provider.Handle{Name: "song_generation"}, model.GenerationRequest{
		Prompt:      "calm piano",
		Duration:    30,
		Lyrics:      &lyrics,
		Seed:        &seed,
		NumVersions: 2,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "remote-1" {
		t.Errorf("id = %q, want remote-1", id)
	}

	got := fake.lastJob
	if got.Provider != "song_generation" || got.Prompt != "calm piano" || got.NumVersions != 2 {
		t.Errorf("submitted = %+v", got)
	}
	if got.Lyrics == nil || *got.Lyrics != "la la" || got.Seed == nil || *got.Seed != 42 {
		t.Errorf("optional fields not forwarded: %+v", got)
	}
}

func TestModelServiceClientPollMapsStates(t *testing.T) {
	tests := []struct {
		remote string
		want   model.GenerationState
	}{
		{"pending", model.GenerationStatePending},
		{"processing", model.GenerationStateRunning},
		{"failed", model.GenerationStateFailed},
		{"cancelled", model.GenerationStateCancelled},
	}

	c, fake := newModelClient(t, nil)
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			fake.setState(remoteJob{JobID: "remote-1", Status: tt.remote, Progress: 40, CurrentStep: "Generating", Error: "boom"})
			upd, err := c.Poll(context.Background(), "remote-1")
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if upd.State != tt.want {
				t.Errorf("State = %v, want %v", upd.State, tt.want)
			}
			if upd.Progress != 40 || upd.CurrentStep != "Generating" {
				t.Errorf("update = %+v", upd)
			}
		})
	}
}

func TestModelServiceClientPollCompletedWithoutStore(t *testing.T) {
	c, fake := newModelClient(t, nil)
	v := remoteVersion{ID: "v1", AudioPath: "/outputs/v1.wav"}
	v.Metadata.Seed = 7
	v.Metadata.Duration = 30
	fake.setState(remoteJob{JobID: "remote-1", Status: "completed", Progress: 100, Versions: []remoteVersion{v}})

	upd, err := c.Poll(context.Background(), "remote-1")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if upd.State != model.GenerationStateCompleted || len(upd.Versions) != 1 {
		t.Fatalf("update = %+v", upd)
	}
	got := upd.Versions[0]
	if got.ID == "" || got.AudioRef != "/outputs/v1.wav" || got.Seed != 7 || got.Duration != 30 {
		t.Errorf("version = %+v", got)
	}
}

func TestModelServiceClientPollCopiesAudioIntoStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c, fake := newModelClient(t, store)
	fake.setState(remoteJob{JobID: "remote-1", Status: "completed", Versions: []remoteVersion{{ID: "v1"}, {ID: "v2"}}})

	upd, err := c.Poll(context.Background(), "remote-1")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(upd.Versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(upd.Versions))
	}
	path, err := store.Locate(context.Background(), upd.Versions[1].AudioRef)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "RIFF-v2" {
		t.Errorf("stored audio = %q", data)
	}
}

func TestModelServiceClientPollRetryReusesStoredKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	c, fake := newModelClient(t, store)
	fake.audioFailures["v2"] = 1
	fake.setState(remoteJob{JobID: "remote-1", Status: "completed", Versions: []remoteVersion{{ID: "v1"}, {ID: "v2"}}})

	if _, err := c.Poll(context.Background(), "remote-1"); err == nil {
		t.Fatal("Poll with failing download succeeded")
	}
	upd, err := c.Poll(context.Background(), "remote-1")
	if err != nil {
		t.Fatalf("retried Poll: %v", err)
	}
	if len(upd.Versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(upd.Versions))
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, filepath.Base(path))
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("stored files = %v, want one per version", files)
	}
}

func TestModelServiceClientErrors(t *testing.T) {
	c, _ := newModelClient(t, nil)

	if _, err := c.Poll(context.Background(), "missing"); err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("Poll(missing) error = %v, want status 404", err)
	}
	if err := c.Cancel(context.Background(), "remote-1"); err != nil {
		t.Errorf("Cancel: %v", err)
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}

	unreachable := NewModelServiceClient(&config.ModelServiceConfig{URL: "http://127.0.0.1:1", Timeout: 1}, nil)
	if err := unreachable.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck on unreachable service succeeded")
	}
}

func TestModelServiceClientIsConfigured(t *testing.T) {
	if NewModelServiceClient(&config.ModelServiceConfig{}, nil).IsConfigured() {
		t.Error("empty URL reported as configured")
	}
	if !NewModelServiceClient(&config.ModelServiceConfig{URL: "http://model:8001"}, nil).IsConfigured() {
		t.Error("URL not reported as configured")
	}
}
