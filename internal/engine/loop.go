package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrLoopStopped is returned when work is submitted after the loop has exited
var ErrLoopStopped = errors.New("event loop stopped")

// Task is a unit of work run on the event loop
type Task func(ctx context.Context)

// Executor accepts tasks for the event loop
type Executor interface {
	Submit(task Task) bool
}

// Loop runs every task on a single goroutine, one at a time, in
// submission order. All room and session state is only touched from here.
type Loop struct {
	tasks  chan Task
	done   chan struct{}
	logger *slog.Logger
}

// NewLoop creates a loop with room for buffer queued tasks
func NewLoop(buffer int, logger *slog.Logger) *Loop {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Loop{
		tasks:  make(chan Task, buffer),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("component", "loop")),
	}
}

// Submit enqueues a task. Returns false once the loop has stopped.
func (l *Loop) Submit(task Task) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- task:
		return true
	case <-l.done:
		return false
	}
}

// Do enqueues a task and waits for it to finish
func (l *Loop) Do(ctx context.Context, task Task) error {
	finished := make(chan struct{})
	if !l.Submit(func(ctx context.Context) {
		defer close(finished)
		task(ctx)
	}) {
		return ErrLoopStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// Run processes tasks until ctx is cancelled
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	l.logger.Info("event loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("event loop stopped", slog.Int("pending", len(l.tasks)))
			return
		case task := <-l.tasks:
			l.run(ctx, task)
		}
	}
}

// run executes one task, containing any panic to that task
func (l *Loop) run(ctx context.Context, task Task) {
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("task panicked",
				slog.String("error", fmt.Sprint(err)),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	task(ctx)
}
