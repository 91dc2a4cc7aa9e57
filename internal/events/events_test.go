package events

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/genqueue/internal/client"
	"github.com/makeasinger/genqueue/internal/model"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t", Queue: WebhookQueue}, nil
}

func finishedJob(status model.JobStatus, callback string) model.Job {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return model.Job{
		ID:         "job-1",
		Status:     status,
		Provider:   "ace_step",
		Request:    model.GenerationRequest{Prompt: "p", Duration: 10, CallbackURL: callback},
		FinishedAt: &now,
	}
}

func TestWebhookDispatcherEnqueuesTerminalEvents(t *testing.T) {
	tests := []struct {
		name     string
		evt      model.JobEvent
		wantTask bool
	}{
		{"completed with callback", model.JobEvent{Type: model.JobEventCompleted, Job: finishedJob(model.JobStatusCompleted, "https://hooks.example.com/done")}, true},
		{"failed with callback", model.JobEvent{Type: model.JobEventFailed, Job: finishedJob(model.JobStatusFailed, "https://hooks.example.com/done")}, true},
		{"cancelled with callback", model.JobEvent{Type: model.JobEventCancelled, Job: finishedJob(model.JobStatusCancelled, "https://hooks.example.com/done")}, true},
		{"completed without callback", model.JobEvent{Type: model.JobEventCompleted, Job: finishedJob(model.JobStatusCompleted, "")}, false},
		{"progress with callback", model.JobEvent{Type: model.JobEventProgress, Job: finishedJob(model.JobStatusProcessing, "https://hooks.example.com/done")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enq := &fakeEnqueuer{}
			NewWebhookDispatcher(enq, 3).Publish(tt.evt)
			if got := len(enq.tasks) == 1; got != tt.wantTask {
				t.Fatalf("enqueued %d tasks, want task = %v", len(enq.tasks), tt.wantTask)
			}
			if !tt.wantTask {
				return
			}
			task := enq.tasks[0]
			if task.Type() != TaskTypeWebhook {
				t.Errorf("task type = %q", task.Type())
			}
			var payload WebhookTask
			if err := json.Unmarshal(task.Payload(), &payload); err != nil {
				t.Fatal(err)
			}
			if payload.CallbackURL != "https://hooks.example.com/done" {
				t.Errorf("callback = %q", payload.CallbackURL)
			}
			var body WebhookBody
			if err := json.Unmarshal(payload.Body, &body); err != nil {
				t.Fatal(err)
			}
			if body.JobID != "job-1" || body.Status != tt.evt.Job.Status || body.Event != tt.evt.Type {
				t.Errorf("body = %+v", body)
			}
			if body.Versions == nil {
				t.Error("versions should be an empty list, not null")
			}
		})
	}
}

func TestWebhookDispatcherSurvivesEnqueueErrors(t *testing.T) {
	enq := &fakeEnqueuer{err: asynq.ErrTaskIDConflict}
	NewWebhookDispatcher(enq, 0).Publish(model.JobEvent{
		Type: model.JobEventCompleted,
		Job:  finishedJob(model.JobStatusCompleted, "https://hooks.example.com/done"),
	})
}

func TestAudioJanitorDeletesRemovedAudio(t *testing.T) {
	store, err := client.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ref, err := store.Put(ctx, "versions/job-1/v1.wav", strings.NewReader("x"), "audio/wav")
	if err != nil {
		t.Fatal(err)
	}
	path, _ := store.Locate(ctx, ref)

	job := finishedJob(model.JobStatusCompleted, "")
	job.Versions = []model.Version{{ID: "v1", AudioRef: ref}}
	janitor := NewAudioJanitor(store)

	janitor.Publish(model.JobEvent{Type: model.JobEventCompleted, Job: job})
	time.Sleep(20 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("audio deleted on a non-removal event: %v", err)
	}

	janitor.Publish(model.JobEvent{Type: model.JobEventRemoved, Job: job})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("audio not deleted after removal")
}

// TestRedisPublisher needs a local Redis; it is skipped when none answers.
func TestRedisPublisher(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	pub := NewRedisPublisher(rdb, "genqueue:test:events")
	sub := pub.Subscribe(ctx)
	t.Cleanup(func() { sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	job := finishedJob(model.JobStatusCompleted, "")
	pub.Publish(model.JobEvent{Type: model.JobEventCompleted, Job: job})

	select {
	case msg := <-sub.Channel():
		var evt model.JobEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			t.Fatal(err)
		}
		if evt.Type != model.JobEventCompleted || evt.Job.ID != "job-1" {
			t.Errorf("event = %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	if n, _ := rdb.Exists(ctx, jobKey("job-1")).Result(); n != 1 {
		t.Errorf("snapshot key missing")
	}
	pub.Publish(model.JobEvent{Type: model.JobEventRemoved, Job: job})
	if n, _ := rdb.Exists(ctx, jobKey("job-1")).Result(); n != 0 {
		t.Errorf("snapshot key not deleted on removal")
	}
}
