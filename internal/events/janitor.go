package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/makeasinger/genqueue/internal/client"
	"github.com/makeasinger/genqueue/internal/model"
)

const deleteTimeout = 30 * time.Second

// AudioJanitor deletes a job's stored audio once the job is removed or
// pruned.
type AudioJanitor struct {
	store client.AudioStore
}

func NewAudioJanitor(store client.AudioStore) *AudioJanitor {
	return &AudioJanitor{store: store}
}

// Publish implements scheduler.Observer. Deletion runs in the background.
func (j *AudioJanitor) Publish(evt model.JobEvent) {
	if evt.Type != model.JobEventRemoved || len(evt.Job.Versions) == 0 {
		return
	}
	go j.cleanup(evt.Job)
}

func (j *AudioJanitor) cleanup(job model.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	for _, v := range job.Versions {
		if err := j.store.Delete(ctx, v.AudioRef); err != nil {
			slog.Warn("failed to delete version audio", "job_id", job.ID, "version_id", v.ID, "error", err)
		}
	}
}
