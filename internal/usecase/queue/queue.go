// Package queue holds the pending tasks of one run. It is filled completely
// before any worker starts and drained by non-blocking pops.
package queue

import (
	"context"
	"fmt"
	"sync"

	"chat-scraper/internal/domain/entity"
)

type Queue struct {
	mu         sync.Mutex
	items      []entity.Task
	head       int
	unfinished int
	sealed     bool
	drained    chan struct{}
}

func New() *Queue {
	return &Queue{drained: make(chan struct{})}
}

// Push appends tasks in order. It fails once the queue is sealed.
func (q *Queue) Push(tasks ...entity.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return fmt.Errorf("push %d tasks: %w", len(tasks), entity.ErrQueueSealed)
	}
	q.items = append(q.items, tasks...)
	q.unfinished += len(tasks)
	return nil
}

// Seal forbids further pushes. Wait only returns after Seal.
func (q *Queue) Seal() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return
	}
	q.sealed = true
	q.closeIfDrainedLocked()
}

// Pop hands out the next task or ErrQueueEmpty. It never blocks.
func (q *Queue) Pop() (entity.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return entity.Task{}, entity.ErrQueueEmpty
	}
	t := q.items[q.head]
	q.items[q.head] = entity.Task{}
	q.head++
	return t, nil
}

// Done acknowledges that a popped task has been fully processed.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		panic("queue: Done called more times than tasks were pushed")
	}
	q.unfinished--
	q.closeIfDrainedLocked()
}

// Size is the number of tasks not yet popped.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Unfinished is the number of tasks pushed but not yet acknowledged.
func (q *Queue) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}

// Remaining returns the tasks that were never popped, in order.
func (q *Queue) Remaining() []entity.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]entity.Task, len(q.items)-q.head)
	copy(out, q.items[q.head:])
	return out
}

// Wait blocks until the queue is sealed and every task was popped and acknowledged.
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) closeIfDrainedLocked() {
	if !q.sealed || q.unfinished != 0 {
		return
	}
	select {
	case <-q.drained:
	default:
		close(q.drained)
	}
}
