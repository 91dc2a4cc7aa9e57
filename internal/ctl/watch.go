package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/genqueue/internal/model"
)

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Watch prints job events received on sub until ctx is done. With a jobID
// only that job is shown and Watch returns once it closes.
func Watch(ctx context.Context, sub *redis.PubSub, jobID string, w io.Writer) error {
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt model.JobEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				slog.Warn("skipping malformed event", "error", err)
				continue
			}
			if jobID != "" && evt.Job.ID != jobID {
				continue
			}
			fmt.Fprintln(w, FormatEvent(evt))
			if jobID != "" && (evt.IsTerminal() || evt.Type == model.JobEventRemoved) {
				return nil
			}
		}
	}
}

// FormatEvent renders one event as a log line
func FormatEvent(evt model.JobEvent) string {
	line := fmt.Sprintf("%s %-9s %s %-10s %3.0f%%",
		evt.OccurredAt.Format(time.RFC3339), evt.Type, evt.Job.ID, evt.Job.Status, evt.Job.Progress)
	if evt.Job.CurrentStep != "" {
		line += " " + evt.Job.CurrentStep
	}
	if evt.Job.Error != "" {
		line += " error=" + evt.Job.Error
	}
	return line
}
