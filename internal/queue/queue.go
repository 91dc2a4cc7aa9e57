// Package queue keeps the execution order of active generation jobs.
//
// Positions are 1-based and always contiguous: the job at index i of the
// ordering has Position i+1. Queue does no locking of its own; the owner
// serializes access.
package queue

import (
	"fmt"
	"iter"

	"github.com/makeasinger/genqueue/internal/apperr"
	"github.com/makeasinger/genqueue/internal/model"
)

// Queue is the ordered collection of non-terminal jobs
type Queue struct {
	jobs []*model.Job
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Len returns the number of active jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Enqueue appends job at position Len()+1.
func (q *Queue) Enqueue(job *model.Job) error {
	if q.indexOf(job.ID) >= 0 {
		return fmt.Errorf("%w: %s", apperr.ErrDuplicateJob, job.ID)
	}
	q.jobs = append(q.jobs, job)
	job.Position = len(q.jobs)
	return nil
}

// PeekHead returns the job at position 1, or nil when the queue is empty
// or its head is already processing.
func (q *Queue) PeekHead() *model.Job {
	if len(q.jobs) == 0 {
		return nil
	}
	head := q.jobs[0]
	if head.Status == model.JobStatusProcessing {
		return nil
	}
	return head
}

// Get returns the active job with id.
func (q *Queue) Get(id string) (*model.Job, bool) {
	i := q.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return q.jobs[i], true
}

// Remove deletes a job from the ordering and closes the gap it leaves.
// A processing job must be cancelled first.
func (q *Queue) Remove(id string) (*model.Job, error) {
	i := q.indexOf(id)
	if i < 0 {
		return nil, apperr.NotFound("job", id)
	}
	job := q.jobs[i]
	if job.Status == model.JobStatusProcessing {
		return nil, apperr.Busy("job is processing; cancel it first", apperr.ErrJobProcessing)
	}
	q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
	if !job.Status.IsTerminal() {
		job.Position = 0
	}
	q.renumber(i)
	return job, nil
}

// Reorder moves a job to newPosition. Jobs between the old and new slot
// shift by one.
func (q *Queue) Reorder(id string, newPosition int) error {
	i := q.indexOf(id)
	if i < 0 {
		return apperr.NotFound("job", id)
	}
	job := q.jobs[i]
	if job.Status == model.JobStatusProcessing {
		return apperr.Busy("cannot reorder the processing job", apperr.ErrResourceBusy)
	}
	if newPosition < 1 || newPosition > len(q.jobs) {
		return fmt.Errorf("%w: %d not in [1, %d]", apperr.ErrInvalidPosition, newPosition, len(q.jobs))
	}
	j := newPosition - 1
	if i == j {
		return nil
	}
	q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
	q.jobs = append(q.jobs[:j], append([]*model.Job{job}, q.jobs[j:]...)...)
	q.renumber(min(i, j))
	return nil
}

// MoveUp swaps a job with the one ahead of it.
func (q *Queue) MoveUp(id string) error {
	job, ok := q.Get(id)
	if !ok {
		return apperr.NotFound("job", id)
	}
	return q.Reorder(id, job.Position-1)
}

// MoveDown swaps a job with the one behind it.
func (q *Queue) MoveDown(id string) error {
	job, ok := q.Get(id)
	if !ok {
		return apperr.NotFound("job", id)
	}
	return q.Reorder(id, job.Position+1)
}

// List yields snapshots of the active jobs in position order. Each range
// over the sequence copies the ordering afresh, so it must run under the
// owner's lock.
func (q *Queue) List() iter.Seq[model.Job] {
	return func(yield func(model.Job) bool) {
		snap := make([]model.Job, len(q.jobs))
		for i, j := range q.jobs {
			snap[i] = j.Snapshot()
		}
		for _, j := range snap {
			if !yield(j) {
				return
			}
		}
	}
}

func (q *Queue) indexOf(id string) int {
	for i, j := range q.jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) renumber(from int) {
	for i := from; i < len(q.jobs); i++ {
		q.jobs[i].Position = i + 1
	}
}
