package timeout

import (
	"context"
	"sync"
	"time"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
)

// Option configures a Promise.
type Option func(*options)

type options struct {
	id      string
	message func() string
}

// WithID names the operation in timeout diagnostics.
func WithID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.id = id
		}
	}
}

// WithMessage sets a literal timeout reason.
func WithMessage(message string) Option {
	return func(o *options) {
		o.message = func() string { return message }
	}
}

// WithMessageFunc sets a reason that is only computed if the deadline
// expires.
func WithMessageFunc(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.message = fn
		}
	}
}

// Promise is a Future bounded by a Deadline.
type Promise[T any] struct {
	future   *Future[T]
	deadline Deadline
	started  time.Time
	stack    []ierrors.Frame
	opts     options

	timerMu sync.Mutex
	timer   *time.Timer
}

// New runs executor with resolve/reject callbacks and bounds the result by d.
// The executor runs on the calling goroutine; long work belongs on its own
// goroutine.
func New[T any](d Deadline, executor func(resolve func(T), reject func(error)), opts ...Option) *Promise[T] {
	p := newPromise(NewFuture[T](), d, opts)
	p.arm()
	executor(func(v T) { p.future.Resolve(v) }, func(err error) { p.future.Reject(err) })
	p.checkOnce()
	return p
}

// From bounds an operation that is already in flight.
func From[T any](f *Future[T], d Deadline, opts ...Option) *Promise[T] {
	p := newPromise(f, d, opts)
	p.arm()
	p.checkOnce()
	return p
}

func newPromise[T any](f *Future[T], d Deadline, opts []Option) *Promise[T] {
	o := options{id: DefaultID, message: func() string { return "" }}
	for _, opt := range opts {
		opt(&o)
	}
	p := &Promise[T]{
		future:   f,
		deadline: d,
		started:  time.Now(),
		stack:    ierrors.CaptureStack(2),
		opts:     o,
	}
	f.OnSettle(p.stopTimer)
	return p
}

func (p *Promise[T]) arm() {
	if !p.deadline.IsBounded() || p.deadline.IsOnce() || p.future.Settled() {
		return
	}
	p.timerMu.Lock()
	p.timer = time.AfterFunc(p.deadline.Duration(), p.expire)
	p.timerMu.Unlock()
	if p.future.Settled() {
		p.stopTimer()
	}
}

// checkOnce fails a single-attempt promise that did not settle synchronously.
func (p *Promise[T]) checkOnce() {
	if p.deadline.IsOnce() && !p.future.Settled() {
		p.expire()
	}
}

func (p *Promise[T]) expire() {
	p.Expire("")
}

// Expire rejects the promise with a *TimeoutError now, whatever its deadline.
// detail, when set, is appended to the configured reason. It reports whether
// the expiry won the race.
func (p *Promise[T]) Expire(detail string) bool {
	if p.future.Settled() {
		return false
	}
	te := newTimeoutError(p.opts.id, p.opts.message(), time.Since(p.started), p.stack)
	te.AppendMessage(detail)
	return p.future.Reject(te)
}

func (p *Promise[T]) stopTimer() {
	p.timerMu.Lock()
	defer p.timerMu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Wait blocks for the result. If ctx ends first the promise is aborted with
// the context error, so the timer never outlives the waiter.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.future.Done():
	case <-ctx.Done():
		p.Abort(ctx.Err())
	}
	return p.future.Result()
}

// Abort settles the promise early. A nil cause rejects with a generic abort.
// It reports whether the abort won the race.
func (p *Promise[T]) Abort(cause error) bool {
	return p.future.Reject(abortError(p.opts.id, cause))
}

// Resolve settles the promise with a value from outside the executor.
func (p *Promise[T]) Resolve(v T) bool {
	return p.future.Resolve(v)
}

// Done is closed on settlement.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.future.Done()
}

// Future exposes the underlying single-settlement result.
func (p *Promise[T]) Future() *Future[T] {
	return p.future
}

// ID returns the diagnostic name.
func (p *Promise[T]) ID() string {
	return p.opts.id
}

// Deadline returns the bound this promise was created with.
func (p *Promise[T]) Deadline() Deadline {
	return p.deadline
}

// Elapsed is the time since creation.
func (p *Promise[T]) Elapsed() time.Duration {
	return time.Since(p.started)
}
