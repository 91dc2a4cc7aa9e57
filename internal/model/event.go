package model

import "time"

// JobEventType names a change observed on a job
type JobEventType string

const (
	JobEventQueued    JobEventType = "queued"
	JobEventStarted   JobEventType = "started"
	JobEventProgress  JobEventType = "progress"
	JobEventCompleted JobEventType = "completed"
	JobEventFailed    JobEventType = "failed"
	JobEventCancelled JobEventType = "cancelled"
	JobEventRemoved   JobEventType = "removed"
)

// JobEvent is published to observers after every job mutation
type JobEvent struct {
	Type       JobEventType `json:"type"`
	Job        Job          `json:"job"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// IsTerminal reports whether the event closes the job's lifecycle.
func (e JobEvent) IsTerminal() bool {
	switch e.Type {
	case JobEventCompleted, JobEventFailed, JobEventCancelled:
		return true
	}
	return false
}
