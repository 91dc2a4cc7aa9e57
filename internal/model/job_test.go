package model

import (
	"errors"
	"testing"
	"time"

	"github.com/makeasinger/genqueue/internal/apperr"
)

func TestJobTransitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	versions := []Version{{ID: "v1", AudioRef: "r", Seed: 1}}

	tests := []struct {
		name    string
		prepare func(j *Job)
		apply   func(j *Job) error
		want    JobStatus
		wantErr bool
	}{
		{"pending to processing", nil, func(j *Job) error { return j.Start("p", now) }, JobStatusProcessing, false},
		{"pending to cancelled", nil, func(j *Job) error { return j.Cancel(now) }, JobStatusCancelled, false},
		{"pending to completed", nil, func(j *Job) error { return j.Complete(versions, now) }, JobStatusPending, true},
		{"pending to failed", nil, func(j *Job) error { return j.Fail("x", now) }, JobStatusPending, true},
		{"processing to completed", start, func(j *Job) error { return j.Complete(versions, now) }, JobStatusCompleted, false},
		{"processing to completed without versions", start, func(j *Job) error { return j.Complete(nil, now) }, JobStatusProcessing, true},
		{"processing to failed", start, func(j *Job) error { return j.Fail("boom", now) }, JobStatusFailed, false},
		{"processing to cancelled", start, func(j *Job) error { return j.Cancel(now) }, JobStatusCancelled, false},
		{"processing to processing", start, func(j *Job) error { return j.Start("p", now) }, JobStatusProcessing, true},
		{"completed is final", finished, func(j *Job) error { return j.Cancel(now) }, JobStatusCompleted, true},
		{"failed is final", failed, func(j *Job) error { return j.Start("p", now) }, JobStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJob("j", GenerationRequest{Prompt: "x", Duration: 3}, now)
			if tt.prepare != nil {
				tt.prepare(j)
			}
			err := tt.apply(j)
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrInvalidTransition) {
				t.Errorf("err = %v, want ErrInvalidTransition", err)
			}
			if j.Status != tt.want {
				t.Errorf("Status = %s, want %s", j.Status, tt.want)
			}
		})
	}
}

func start(j *Job) { _ = j.Start("p", time.Now()) }

func finished(j *Job) {
	start(j)
	_ = j.Complete([]Version{{ID: "v"}}, time.Now())
}

func failed(j *Job) {
	start(j)
	_ = j.Fail("boom", time.Now())
}

func TestStartResetsProgressAndStamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	j := NewJob("j", GenerationRequest{Prompt: "x", Duration: 3}, now)
	j.Progress = 42

	if err := j.Start("ace_step", now); err != nil {
		t.Fatal(err)
	}
	if j.Progress != 0 || j.StartedAt == nil || !j.StartedAt.Equal(now) || j.Provider != "ace_step" {
		t.Errorf("after Start: progress=%v startedAt=%v provider=%q", j.Progress, j.StartedAt, j.Provider)
	}
}

func TestUpdateProgressIsMonotonicAndClamped(t *testing.T) {
	j := NewJob("j", GenerationRequest{Prompt: "x", Duration: 3}, time.Now())
	if j.UpdateProgress(10, "") {
		t.Fatal("pending job accepted progress")
	}
	start(j)

	steps := []struct {
		in   float64
		want float64
	}{
		{-5, 0}, {20, 20}, {15, 20}, {60, 60}, {250, 100}, {99, 100},
	}
	for _, s := range steps {
		j.UpdateProgress(s.in, "")
		if j.Progress != s.want {
			t.Errorf("UpdateProgress(%v) -> %v, want %v", s.in, j.Progress, s.want)
		}
	}

	if !j.UpdateProgress(0, "Decoding") || j.CurrentStep != "Decoding" {
		t.Errorf("step change not recorded: %q", j.CurrentStep)
	}
}

func TestTerminalClearsPositionAndCancelFlag(t *testing.T) {
	j := NewJob("j", GenerationRequest{Prompt: "x", Duration: 3}, time.Now())
	j.Position = 1
	start(j)

	if !j.RequestCancel() {
		t.Fatal("first RequestCancel = false")
	}
	if j.RequestCancel() {
		t.Error("second RequestCancel = true")
	}
	if err := j.Cancel(time.Now()); err != nil {
		t.Fatal(err)
	}
	if j.Position != 0 || j.CancelRequested || j.FinishedAt == nil {
		t.Errorf("terminal job: position=%d cancelRequested=%v finishedAt=%v", j.Position, j.CancelRequested, j.FinishedAt)
	}
}

func TestRequestIsCopiedAtCreation(t *testing.T) {
	lyrics := "la la"
	seed := int64(7)
	req := GenerationRequest{Prompt: "x", Duration: 3, Lyrics: &lyrics, Seed: &seed}

	j := NewJob("j", req, time.Now())
	lyrics = "changed"
	seed = 9

	if *j.Request.Lyrics != "la la" || *j.Request.Seed != 7 {
		t.Errorf("request mutated through caller: lyrics=%q seed=%d", *j.Request.Lyrics, *j.Request.Seed)
	}
	if j.Request.NumVersions != DefaultVersions {
		t.Errorf("NumVersions = %d, want %d", j.Request.NumVersions, DefaultVersions)
	}

	snap := j.Snapshot()
	*snap.Request.Lyrics = "snap"
	if *j.Request.Lyrics != "la la" {
		t.Error("snapshot shares request memory with job")
	}
}
