package gojahost

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	napi "github.com/buke/napi-go"
)

type workState int

const (
	workCreated workState = iota
	workQueued
	workRunning
	workDone
	workCancelled
)

// work is one async work item. state is shared with the worker goroutine.
type work struct {
	name     string
	execute  napi.AsyncExecute
	complete napi.AsyncComplete

	mu    sync.Mutex
	state workState
}

// CreateAsyncWork implements napi.Env.
func (r *Runtime) CreateAsyncWork(name string, execute napi.AsyncExecute, complete napi.AsyncComplete) (napi.AsyncWork, error) {
	if execute == nil {
		return 0, r.fail(napi.StatusInvalidArg, "execute callback is nil")
	}
	r.nextWork++
	r.works[r.nextWork] = &work{name: name, execute: execute, complete: complete}
	return r.nextWork, nil
}

func (r *Runtime) lookupWork(id napi.AsyncWork) (*work, error) {
	w, ok := r.works[id]
	if !ok {
		return nil, r.fail(napi.StatusInvalidArg, "invalid async work %d", id)
	}
	return w, nil
}

// QueueAsyncWork implements napi.Env. execute runs on the worker pool; complete
// is posted to the loop afterwards.
func (r *Runtime) QueueAsyncWork(id napi.AsyncWork) error {
	if r.closed {
		return r.fail(napi.StatusClosing, "runtime is closed")
	}
	w, err := r.lookupWork(id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	if w.state != workCreated {
		w.mu.Unlock()
		return r.fail(napi.StatusGenericFailure, "async work %s is already queued", w.name)
	}
	w.state = workQueued
	w.mu.Unlock()

	r.loop.hold()
	go r.runWork(w)
	r.logger.Debug("queued async work", zap.String("name", w.name))
	return nil
}

// runWork is the worker side of a work item.
func (r *Runtime) runWork(w *work) {
	if err := r.pool.Acquire(r.ctx, 1); err != nil {
		// The runtime closed while waiting for a worker.
		w.mu.Lock()
		if w.state == workQueued {
			w.state = workCancelled
			r.loop.done()
		}
		w.mu.Unlock()
		return
	}
	w.mu.Lock()
	if w.state != workQueued {
		// Cancelled while waiting; the cancellation already posted complete.
		w.mu.Unlock()
		r.pool.Release(1)
		return
	}
	w.state = workRunning
	w.mu.Unlock()

	status := napi.StatusOK
	func() {
		defer r.pool.Release(1)
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("async work panicked", zap.String("name", w.name), zap.Any("panic", p))
				status = napi.StatusGenericFailure
			}
		}()
		w.execute()
	}()

	w.mu.Lock()
	w.state = workDone
	w.mu.Unlock()
	r.postComplete(w, status)
}

// postComplete schedules w's complete callback on the loop and releases the
// loop hold taken by QueueAsyncWork once it has run.
func (r *Runtime) postComplete(w *work, status napi.Status) {
	err := r.loop.ScheduleJob(func() {
		defer r.loop.done()
		if w.complete == nil {
			return
		}
		if err := r.Scope(func() error {
			w.complete(r, status)
			r.reportUncaught(fmt.Sprintf("async work %s", w.name))
			return nil
		}); err != nil {
			r.logger.Warn("async completion skipped", zap.String("name", w.name), zap.Error(err))
		}
	})
	if err != nil {
		r.loop.done()
		r.logger.Debug("dropped async completion", zap.String("name", w.name), zap.Error(err))
	}
}

// CancelAsyncWork implements napi.Env. Only work that has not started can be
// cancelled; its complete callback then runs with napi.StatusCancelled.
func (r *Runtime) CancelAsyncWork(id napi.AsyncWork) error {
	w, err := r.lookupWork(id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	if w.state != workQueued {
		state := w.state
		w.mu.Unlock()
		return r.fail(napi.StatusGenericFailure, "async work %s cannot be cancelled in state %d", w.name, state)
	}
	w.state = workCancelled
	w.mu.Unlock()

	r.logger.Debug("cancelled async work", zap.String("name", w.name))
	r.postComplete(w, napi.StatusCancelled)
	return nil
}

// DeleteAsyncWork implements napi.Env. Deleting queued work cancels it without
// a completion.
func (r *Runtime) DeleteAsyncWork(id napi.AsyncWork) error {
	w, err := r.lookupWork(id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	if w.state == workQueued {
		w.state = workCancelled
		w.mu.Unlock()
		r.loop.done()
	} else {
		w.mu.Unlock()
	}
	delete(r.works, id)
	return nil
}

// PendingWork reports how many work items have been created and not deleted.
func (r *Runtime) PendingWork() int {
	return len(r.works)
}
