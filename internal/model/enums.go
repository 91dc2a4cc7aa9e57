package model

// JobStatus is the lifecycle state of a generation job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

var ValidJobStatuses = []JobStatus{
	JobStatusPending, JobStatusProcessing, JobStatusCompleted,
	JobStatusFailed, JobStatusCancelled,
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// IsValid reports whether s is a known status.
func (s JobStatus) IsValid() bool {
	for _, v := range ValidJobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// GenerationState is the state reported by a generation backend for one
// submitted request
type GenerationState string

const (
	GenerationStatePending   GenerationState = "pending"
	GenerationStateRunning   GenerationState = "running"
	GenerationStateCompleted GenerationState = "completed"
	GenerationStateFailed    GenerationState = "failed"
	GenerationStateCancelled GenerationState = "cancelled"
)

// IsTerminal reports whether the backend has finished with the request.
func (s GenerationState) IsTerminal() bool {
	return s == GenerationStateCompleted || s == GenerationStateFailed || s == GenerationStateCancelled
}

// Limits applied to generation requests
const (
	MaxDurationSeconds = 300
	MaxVersions        = 5
	DefaultVersions    = 1
)
