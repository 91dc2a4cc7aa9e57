package jobstore

import (
	"testing"
	"time"

	"github.com/makeasinger/genqueue/internal/model"
)

func job(id string, created time.Time) *model.Job {
	return model.NewJob(id, model.GenerationRequest{Prompt: "x", Duration: 5}, created)
}

func TestFilterNewestFirst(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Put(job("a", base))
	s.Put(job("b", base.Add(time.Minute)))
	c := job("c", base.Add(2*time.Minute))
	_ = c.Cancel(base.Add(3 * time.Minute))
	s.Put(c)

	all := s.Filter("")
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("Filter(all) order = %v", ids(all))
	}

	pending := s.Filter(model.JobStatusPending)
	if len(pending) != 2 {
		t.Errorf("Filter(pending) = %v, want 2 jobs", ids(pending))
	}
	if got := s.Count()[model.JobStatusCancelled]; got != 1 {
		t.Errorf("Count[cancelled] = %d, want 1", got)
	}
}

func TestPruneTerminal(t *testing.T) {
	s := New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	old := job("old", now.Add(-3*time.Hour))
	_ = old.Cancel(now.Add(-2 * time.Hour))
	recent := job("recent", now.Add(-time.Hour))
	_ = recent.Cancel(now.Add(-time.Minute))
	active := job("active", now.Add(-5*time.Hour))

	for _, j := range []*model.Job{old, recent, active} {
		s.Put(j)
	}

	pruned := s.PruneTerminal(now.Add(-time.Hour))
	if len(pruned) != 1 || pruned[0].ID != "old" {
		t.Fatalf("pruned = %v, want [old]", pruned)
	}
	if _, ok := s.Get("active"); !ok {
		t.Error("active job was pruned")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestFindVersion(t *testing.T) {
	s := New()
	j := job("j", time.Now())
	_ = j.Start("ace_step", time.Now())
	_ = j.Complete([]model.Version{{ID: "v1", AudioRef: "file:///tmp/v1.wav"}}, time.Now())
	s.Put(j)

	owner, v, ok := s.FindVersion("v1")
	if !ok || owner.ID != "j" || v.AudioRef != "file:///tmp/v1.wav" {
		t.Fatalf("FindVersion = %v %v %v", owner, v, ok)
	}
	if _, _, ok := s.FindVersion("v2"); ok {
		t.Error("FindVersion(v2) found a version")
	}
	if !s.Delete("j") || s.Delete("j") {
		t.Error("Delete should succeed once")
	}
}

func ids(jobs []*model.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}
