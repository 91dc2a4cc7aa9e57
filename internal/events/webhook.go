package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/makeasinger/genqueue/internal/model"
)

// Task types and queues
const (
	TaskTypeWebhook = "webhook:deliver"
	WebhookQueue    = "webhooks"
)

// WebhookTask is the asynq payload for one callback delivery
type WebhookTask struct {
	CallbackURL string          `json:"callbackUrl"`
	Body        json.RawMessage `json:"body"`
}

// WebhookBody is what the callback URL receives when a job finishes
type WebhookBody struct {
	Event      model.JobEventType `json:"event"`
	JobID      string             `json:"jobId"`
	Status     model.JobStatus    `json:"status"`
	Provider   string             `json:"provider,omitempty"`
	Versions   []model.Version    `json:"versions"`
	Error      *string            `json:"error,omitempty"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}

// Enqueuer is the part of asynq.Client the dispatcher needs
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// WebhookDispatcher enqueues a delivery task for every finished job that
// asked for a callback.
type WebhookDispatcher struct {
	client   Enqueuer
	maxRetry int
}

func NewWebhookDispatcher(client Enqueuer, maxRetry int) *WebhookDispatcher {
	if maxRetry <= 0 {
		maxRetry = 8
	}
	return &WebhookDispatcher{client: client, maxRetry: maxRetry}
}

// Publish implements scheduler.Observer
func (d *WebhookDispatcher) Publish(evt model.JobEvent) {
	if !evt.IsTerminal() || evt.Job.Request.CallbackURL == "" {
		return
	}

	task, err := newWebhookTask(evt)
	if err != nil {
		slog.Error("failed to build webhook task", "job_id", evt.Job.ID, "error", err)
		return
	}

	_, err = d.client.Enqueue(task,
		asynq.Queue(WebhookQueue),
		asynq.MaxRetry(d.maxRetry),
		asynq.TaskID("webhook:"+evt.Job.ID),
		asynq.Retention(24*time.Hour),
	)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		slog.Debug("webhook already enqueued", "job_id", evt.Job.ID)
	case err != nil:
		slog.Error("failed to enqueue webhook", "job_id", evt.Job.ID, "error", err)
	default:
		slog.Info("webhook enqueued", "job_id", evt.Job.ID, "status", evt.Job.Status)
	}
}

func newWebhookTask(evt model.JobEvent) (*asynq.Task, error) {
	job := evt.Job
	body := WebhookBody{
		Event:      evt.Type,
		JobID:      job.ID,
		Status:     job.Status,
		Provider:   job.Provider,
		Versions:   job.Versions,
		FinishedAt: job.FinishedAt,
	}
	if body.Versions == nil {
		body.Versions = []model.Version{}
	}
	if job.Error != "" {
		msg := job.Error
		body.Error = &msg
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook body: %w", err)
	}
	data, err := json.Marshal(WebhookTask{CallbackURL: job.Request.CallbackURL, Body: bodyBytes})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook task: %w", err)
	}
	return asynq.NewTask(TaskTypeWebhook, data), nil
}
