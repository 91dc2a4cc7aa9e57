package model

// WebSocket message types
const (
	WSMessageTypeProgress  = "progress"
	WSMessageTypeComplete  = "complete"
	WSMessageTypeError     = "error"
	WSMessageTypeCancelled = "cancelled"
	WSMessageTypeQueued    = "queued"
	WSMessageTypePing      = "ping"
	WSMessageTypePong      = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress or queue position update
type WSProgressMessage struct {
	Type        string    `json:"type"`
	JobID       string    `json:"jobId"`
	Progress    float64   `json:"progress"`
	Status      JobStatus `json:"status"`
	Position    int       `json:"position,omitempty"`
	CurrentStep string    `json:"currentStep,omitempty"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type     string    `json:"type"`
	JobID    string    `json:"jobId"`
	Versions []Version `json:"versions"`
}

// WSErrorMessage represents a failure or cancellation
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
