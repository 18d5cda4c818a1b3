package timeout

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrRejected is used when a Future is rejected without a reason.
	ErrRejected = errors.New("rejected without reason")
	// ErrPending is returned by Result before the future settles.
	ErrPending = errors.New("future still pending")
)

// Future is a single-settlement result. The first Resolve or Reject wins;
// every later attempt is discarded.
type Future[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	value   T
	err     error
	hooks   []func()
}

// NewFuture returns a pending Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve settles the future with v. It reports whether this call won.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil)
}

// Reject settles the future with err. It reports whether this call won.
func (f *Future[T]) Reject(err error) bool {
	if err == nil {
		err = ErrRejected
	}
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = v
	f.err = err
	hooks := f.hooks
	f.hooks = nil
	close(f.done)
	f.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	return true
}

// OnSettle registers fn to run once the future settles. If it already has,
// fn runs immediately on the calling goroutine.
func (f *Future[T]) OnSettle(fn func()) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		fn()
		return
	}
	f.hooks = append(f.hooks, fn)
	f.mu.Unlock()
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether a result is available.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Result returns the settled value. While the future is pending it returns
// the zero value and ErrPending.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.settled {
		var zero T
		return zero, ErrPending
	}
	return f.value, f.err
}

// Wait blocks until the future settles or ctx is done. Cancelling ctx does
// not settle the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
