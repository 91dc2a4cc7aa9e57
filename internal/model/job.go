package model

import (
	"fmt"
	"time"

	"github.com/makeasinger/genqueue/internal/apperr"
)

// Job represents one queued, running or finished generation request
type Job struct {
	ID              string            `json:"id"`
	Status          JobStatus         `json:"status"`
	Position        int               `json:"position,omitempty"`
	Request         GenerationRequest `json:"request"`
	Provider        string            `json:"provider,omitempty"`
	Progress        float64           `json:"progress"`
	CurrentStep     string            `json:"currentStep,omitempty"`
	Versions        []Version         `json:"versions"`
	Error           string            `json:"error,omitempty"`
	CancelRequested bool              `json:"cancelRequested,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	StartedAt       *time.Time        `json:"startedAt,omitempty"`
	FinishedAt      *time.Time        `json:"finishedAt,omitempty"`
}

// NewJob creates a pending job holding a private copy of req.
func NewJob(id string, req GenerationRequest, now time.Time) *Job {
	return &Job{
		ID:        id,
		Status:    JobStatusPending,
		Request:   req.WithDefaults(),
		Versions:  []Version{},
		CreatedAt: now,
	}
}

func (j *Job) transition(to JobStatus) error {
	ok := false
	switch j.Status {
	case JobStatusPending:
		ok = to == JobStatusProcessing || to == JobStatusCancelled
	case JobStatusProcessing:
		ok = to.IsTerminal()
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}

// Start moves a pending job into processing.
func (j *Job) Start(provider string, now time.Time) error {
	if err := j.transition(JobStatusProcessing); err != nil {
		return err
	}
	j.Provider = provider
	j.Progress = 0
	j.CurrentStep = ""
	j.StartedAt = &now
	return nil
}

// UpdateProgress records progress for a processing job. Values are clamped
// to [0,100] and never move backwards. It reports whether anything changed.
func (j *Job) UpdateProgress(progress float64, step string) bool {
	if j.Status != JobStatusProcessing {
		return false
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	changed := false
	if progress > j.Progress {
		j.Progress = progress
		changed = true
	}
	if step != "" && step != j.CurrentStep {
		j.CurrentStep = step
		changed = true
	}
	return changed
}

// Complete finishes a processing job with at least one version.
func (j *Job) Complete(versions []Version, now time.Time) error {
	if len(versions) == 0 {
		return fmt.Errorf("%w: completion without versions", apperr.ErrInvalidTransition)
	}
	if err := j.transition(JobStatusCompleted); err != nil {
		return err
	}
	j.Versions = append([]Version(nil), versions...)
	j.Progress = 100
	j.finish(now)
	return nil
}

// Fail finishes a processing job with msg.
func (j *Job) Fail(msg string, now time.Time) error {
	if err := j.transition(JobStatusFailed); err != nil {
		return err
	}
	j.Error = msg
	j.finish(now)
	return nil
}

// Cancel finishes a pending or processing job as cancelled.
func (j *Job) Cancel(now time.Time) error {
	if err := j.transition(JobStatusCancelled); err != nil {
		return err
	}
	j.finish(now)
	return nil
}

// RequestCancel flags a processing job as waiting for a cancel
// acknowledgement. It reports false if a request was already pending.
func (j *Job) RequestCancel() bool {
	if j.Status != JobStatusProcessing || j.CancelRequested {
		return false
	}
	j.CancelRequested = true
	return true
}

func (j *Job) finish(now time.Time) {
	j.Position = 0
	j.CancelRequested = false
	j.FinishedAt = &now
}

// Snapshot returns a copy that shares no mutable state with j.
func (j *Job) Snapshot() Job {
	out := *j
	out.Versions = append([]Version{}, j.Versions...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	out.Request = j.Request.WithDefaults()
	return out
}
