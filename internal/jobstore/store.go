// Package jobstore indexes every known job, active or finished, by id.
package jobstore

import (
	"sort"
	"time"

	"github.com/makeasinger/genqueue/internal/model"
)

// Store maps job ids to jobs. It does no locking; the owner serializes
// access together with the queue.
type Store struct {
	jobs map[string]*model.Job
}

// New returns an empty store.
func New() *Store {
	return &Store{jobs: make(map[string]*model.Job)}
}

func (s *Store) Put(job *model.Job) {
	s.jobs[job.ID] = job
}

func (s *Store) Get(id string) (*model.Job, bool) {
	j, ok := s.jobs[id]
	return j, ok
}

func (s *Store) Delete(id string) bool {
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

func (s *Store) Len() int {
	return len(s.jobs)
}

// Filter returns jobs matching status, or all jobs when status is empty,
// newest first.
func (s *Store) Filter(status model.JobStatus) []*model.Job {
	out := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if status == "" || j.Status == status {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// FindVersion returns the job that produced versionID.
func (s *Store) FindVersion(versionID string) (*model.Job, model.Version, bool) {
	for _, j := range s.jobs {
		for _, v := range j.Versions {
			if v.ID == versionID {
				return j, v, true
			}
		}
	}
	return nil, model.Version{}, false
}

// PruneTerminal deletes terminal jobs that finished before cutoff and
// returns them ordered by id.
func (s *Store) PruneTerminal(cutoff time.Time) []*model.Job {
	var pruned []*model.Job
	for id, j := range s.jobs {
		if !j.Status.IsTerminal() || j.FinishedAt == nil {
			continue
		}
		if j.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			pruned = append(pruned, j)
		}
	}
	sort.Slice(pruned, func(a, b int) bool { return pruned[a].ID < pruned[b].ID })
	return pruned
}

// Count tallies jobs per status.
func (s *Store) Count() map[model.JobStatus]int {
	out := make(map[model.JobStatus]int, len(model.ValidJobStatuses))
	for _, j := range s.jobs {
		out[j.Status]++
	}
	return out
}
