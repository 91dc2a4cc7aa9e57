package model

import "time"

// GenerationRequest is the snapshot of a user's submission. It is captured
// once at submission and never modified afterwards.
type GenerationRequest struct {
	Prompt      string  `json:"prompt" validate:"required,min=1,max=2000"`
	Duration    float64 `json:"duration" validate:"required,gt=0,lte=300"`
	Lyrics      *string `json:"lyrics,omitempty" validate:"omitempty,max=5000"`
	Seed        *int64  `json:"seed,omitempty" validate:"omitempty,min=0"`
	Provider    *string `json:"provider,omitempty" validate:"omitempty,min=1,max=64"`
	NumVersions int     `json:"numVersions" validate:"omitempty,min=1,max=5"`
	CallbackURL string  `json:"callbackUrl,omitempty" validate:"omitempty,url,startswith=http"`
}

// WithDefaults returns a copy with defaults applied and optional values
// detached from the caller's memory.
func (r GenerationRequest) WithDefaults() GenerationRequest {
	out := r
	if out.NumVersions == 0 {
		out.NumVersions = DefaultVersions
	}
	if r.Lyrics != nil {
		v := *r.Lyrics
		out.Lyrics = &v
	}
	if r.Seed != nil {
		v := *r.Seed
		out.Seed = &v
	}
	if r.Provider != nil {
		v := *r.Provider
		out.Provider = &v
	}
	return out
}

// ProviderName returns the requested provider or "" when none was given.
func (r GenerationRequest) ProviderName() string {
	if r.Provider == nil {
		return ""
	}
	return *r.Provider
}

// IsInstrumental reports whether the request carries no lyrics.
func (r GenerationRequest) IsInstrumental() bool {
	return r.Lyrics == nil || *r.Lyrics == ""
}

// Version is one produced audio artifact
type Version struct {
	ID       string  `json:"id"`
	AudioRef string  `json:"audioRef"`
	Seed     int64   `json:"seed"`
	Duration float64 `json:"duration,omitempty"`
}

// GenerationUpdate is a backend's answer to a poll
type GenerationUpdate struct {
	State       GenerationState `json:"state"`
	Progress    float64         `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Versions    []Version       `json:"versions,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// QueueStats summarizes the engine for health checks
type QueueStats struct {
	Pending    int       `json:"pending"`
	Processing int       `json:"processing"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Cancelled  int       `json:"cancelled"`
	Provider   string    `json:"provider,omitempty"`
	Now        time.Time `json:"now"`
}
