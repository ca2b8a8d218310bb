// Package cleanup removes the dependent rows of packages evicted from their
// slug. Evictions only delete the package row; versions, fingerprints and
// projections are purged here, outside the evicting transaction.
package cleanup

import "sync"

// Task identifies one evicted package whose dependents must be purged.
type Task struct {
	PackageID   string
	Slug        string
	ActorUserID string
}

// Queue is a bounded in-process task queue. A package is held at most once
// between Enqueue and the end of its processing.
type Queue struct {
	ch chan Task

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Task, size), pending: map[string]struct{}{}}
}

// Enqueue adds t without blocking. It reports false when the queue is full;
// the task is then picked up again by the next Sweep. A package that is
// already queued or being processed is accepted without a second task.
func (q *Queue) Enqueue(t Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[t.PackageID]; ok {
		return true
	}
	select {
	case q.ch <- t:
		q.pending[t.PackageID] = struct{}{}
		return true
	default:
		return false
	}
}

// done releases packageID so a later Enqueue can queue it again.
func (q *Queue) done(packageID string) {
	q.mu.Lock()
	delete(q.pending, packageID)
	q.mu.Unlock()
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) tasks() <-chan Task {
	return q.ch
}
