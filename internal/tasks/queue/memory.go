// Package queue holds the Queue implementations: a buffered channel for
// single-process deployments and a Redis list for shared ones.
package queue

import (
	"context"
	"sync"

	"guidinghand/internal/sentinel"
	"guidinghand/internal/tasks"
)

const defaultMemoryCapacity = 1024

// Memory is an in-process queue backed by a buffered channel. Tasks are lost
// on restart; use Redis when that matters.
type Memory struct {
	ch       chan tasks.Task
	done     chan struct{}
	closeOne sync.Once
}

// NewMemory creates a queue holding up to capacity pending tasks
// (1024 when capacity <= 0).
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &Memory{
		ch:   make(chan tasks.Task, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue blocks while the buffer is full.
func (q *Memory) Enqueue(ctx context.Context, t tasks.Task) error {
	select {
	case <-q.done:
		return sentinel.ErrClosed
	default:
	}
	select {
	case q.ch <- t:
		return nil
	case <-q.done:
		return sentinel.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Memory) Dequeue(ctx context.Context) (tasks.Task, error) {
	select {
	case t := <-q.ch:
		return t, nil
	case <-q.done:
		return tasks.Task{}, sentinel.ErrClosed
	case <-ctx.Done():
		return tasks.Task{}, ctx.Err()
	}
}

// Len returns the number of pending tasks.
func (q *Memory) Len() int {
	return len(q.ch)
}

// Close rejects further enqueues and wakes blocked consumers.
func (q *Memory) Close() {
	q.closeOne.Do(func() { close(q.done) })
}
