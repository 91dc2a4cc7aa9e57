package model

import "time"

// SubmitResponse is returned when a generation request is accepted
type SubmitResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatusResponse represents the status of a job
type JobStatusResponse struct {
	JobID           string     `json:"jobId"`
	Status          JobStatus  `json:"status"`
	Position        int        `json:"position,omitempty"`
	Progress        float64    `json:"progress"`
	CurrentStep     string     `json:"currentStep,omitempty"`
	Provider        string     `json:"provider,omitempty"`
	Versions        []Version  `json:"versions"`
	Error           *string    `json:"error"`
	CancelRequested bool       `json:"cancelRequested,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt"`
}

// NewJobStatusResponse converts a job snapshot for the API.
func NewJobStatusResponse(j Job) JobStatusResponse {
	resp := JobStatusResponse{
		JobID:           j.ID,
		Status:          j.Status,
		Position:        j.Position,
		Progress:        j.Progress,
		CurrentStep:     j.CurrentStep,
		Provider:        j.Provider,
		Versions:        j.Versions,
		CancelRequested: j.CancelRequested,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		FinishedAt:      j.FinishedAt,
	}
	if resp.Versions == nil {
		resp.Versions = []Version{}
	}
	if j.Error != "" {
		msg := j.Error
		resp.Error = &msg
	}
	return resp
}

// QueueItemResponse is one row of the active queue
type QueueItemResponse struct {
	JobID       string    `json:"jobId"`
	Position    int       `json:"position"`
	Status      JobStatus `json:"status"`
	Progress    float64   `json:"progress"`
	Prompt      string    `json:"prompt"`
	Duration    float64   `json:"duration"`
	NumVersions int       `json:"numVersions"`
	Provider    string    `json:"provider,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewQueueItemResponse converts a job snapshot for the queue listing.
func NewQueueItemResponse(j Job) QueueItemResponse {
	provider := j.Provider
	if provider == "" {
		provider = j.Request.ProviderName()
	}
	return QueueItemResponse{
		JobID:       j.ID,
		Position:    j.Position,
		Status:      j.Status,
		Progress:    j.Progress,
		Prompt:      j.Request.Prompt,
		Duration:    j.Request.Duration,
		NumVersions: j.Request.NumVersions,
		Provider:    provider,
		CreatedAt:   j.CreatedAt,
	}
}

// QueueResponse lists the active queue in position order
type QueueResponse struct {
	Items []QueueItemResponse `json:"items"`
	Total int                 `json:"total"`
}

// ReorderRequest moves a job to a new 1-based position
type ReorderRequest struct {
	NewPosition int `json:"newPosition" validate:"required,min=1"`
}

// PresetResponse returns the original request of a job for re-submission
type PresetResponse struct {
	JobID   string            `json:"jobId"`
	Request GenerationRequest `json:"request"`
}

// SwitchProviderRequest asks the engine to load another provider
type SwitchProviderRequest struct {
	Provider string `json:"provider" validate:"required,min=1,max=64"`
}

// ProviderResponse describes one registered provider
type ProviderResponse struct {
	Name     string     `json:"name"`
	Loaded   bool       `json:"loaded"`
	InUse    int        `json:"inUse"`
	Default  bool       `json:"default"`
	LoadedAt *time.Time `json:"loadedAt,omitempty"`
}

// ProvidersResponse lists registered providers
type ProvidersResponse struct {
	Current   *string            `json:"current"`
	Providers []ProviderResponse `json:"providers"`
}

// HistoryResponse lists jobs, optionally filtered by status
type HistoryResponse struct {
	Jobs  []JobStatusResponse `json:"jobs"`
	Total int                 `json:"total"`
}
