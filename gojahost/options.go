package gojahost

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

type options struct {
	workers   int64
	logger    *zap.Logger
	require   bool
	collector bool
	timeout   time.Duration
}

// Option configures a Runtime.
type Option func(*options)

func defaultOptions() options {
	return options{
		workers:   int64(runtime.GOMAXPROCS(0)),
		require:   true,
		collector: true,
	}
}

// WithWorkers bounds how many async work items execute at once. Values below 1
// are treated as 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.workers = int64(n)
	}
}

// WithLogger sets the runtime logger. The default is napi.Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRequire controls whether a global require(name) loading registered
// modules is installed. It is on by default.
func WithRequire(enable bool) Option {
	return func(o *options) {
		o.require = enable
	}
}

// WithCollector controls whether finalizers run when the Go collector finds
// their object unreachable. When off, finalizers only run on Close.
func WithCollector(enable bool) Option {
	return func(o *options) {
		o.collector = enable
	}
}

// WithExecuteTimeout interrupts scripts run by Eval that take longer than d.
// Zero disables the limit.
func WithExecuteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}
