package gojahost

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrLoopClosed is returned when a job is scheduled on a stopped loop.
var ErrLoopClosed = errors.New("gojahost: loop is closed")

// Job is a unit of work run on the host thread.
type Job func()

// Loop is the host thread's job queue. Any goroutine may schedule jobs; only the
// goroutine driving the Runtime runs them.
type Loop struct {
	mu     sync.Mutex
	jobs   []Job
	closed bool

	wake    chan struct{}
	pending atomic.Int64 // outstanding work that will schedule a job later
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// ScheduleJob adds a job to the loop.
func (l *Loop) ScheduleJob(j Job) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.jobs = append(l.jobs, j)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// hold records work that will schedule a job later; the loop keeps running
// until every hold is matched by a done.
func (l *Loop) hold() {
	l.pending.Add(1)
}

func (l *Loop) done() {
	l.pending.Add(-1)
}

// IsLoopPending reports whether there are jobs queued or work outstanding.
func (l *Loop) IsLoopPending() bool {
	l.mu.Lock()
	queued := len(l.jobs)
	l.mu.Unlock()
	return queued > 0 || l.pending.Load() > 0
}

// runPending executes the jobs queued so far and returns how many ran.
// Jobs scheduled while running wait for the next round.
func (l *Loop) runPending() int {
	l.mu.Lock()
	jobs := l.jobs
	l.jobs = nil
	l.mu.Unlock()

	for _, job := range jobs {
		job()
	}
	return len(jobs)
}

// RunOnce runs the queued jobs, waiting for at least one to arrive if none is
// queued yet and work is outstanding.
func (l *Loop) RunOnce(ctx context.Context) error {
	for {
		if l.runPending() > 0 {
			return nil
		}
		if !l.IsLoopPending() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Run executes jobs until nothing is queued and no work is outstanding.
func (l *Loop) Run(ctx context.Context) error {
	for l.IsLoopPending() {
		if err := l.RunOnce(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop closes the loop and drops queued jobs.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.closed = true
	l.jobs = nil
	l.mu.Unlock()
}
