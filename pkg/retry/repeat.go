package retry

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
	"github.com/odvcencio/ideprobe/pkg/observability"
	"github.com/odvcencio/ideprobe/pkg/telemetry"
	"github.com/odvcencio/ideprobe/pkg/timeout"
)

// Func is polled until it reports ok. A non-nil error ends the session
// immediately with that error.
type Func[T any] func(ctx context.Context) (T, bool, error)

// Options configures a retry session. The zero value polls without a
// deadline, accepts the first ok result and only yields between attempts.
type Options struct {
	// Timeout bounds the whole session. timeout.Once() allows exactly one
	// attempt.
	Timeout timeout.Deadline
	// Threshold is how long results must stay ok before one is accepted.
	Threshold time.Duration
	// ID names the session in diagnostics.
	ID string
	// Message is the timeout reason. MessageFunc wins when both are set and
	// is only evaluated if the session times out.
	Message     string
	MessageFunc func() string
	// Interval paces attempts. Zero yields the processor between attempts.
	Interval time.Duration

	Logger *observability.Logger
	Hub    *telemetry.Hub
}

const onceDetail = "(cannot iterate more than once with zero timeout)"

// Repeat is a one-shot polling session.
//
// NotStarted -> Running -> Resolved | Rejected | Aborted | TimedOut
type Repeat[T any] struct {
	fn    Func[T]
	opts  Options
	equal func(a, b T) bool

	mu        sync.Mutex
	started   bool
	promise   *timeout.Promise[T]
	runID     string
	threshold *Threshold

	attempts atomic.Int64
}

// New builds a session. Nothing runs until Start or Execute.
func New[T any](fn Func[T], opts Options) *Repeat[T] {
	if opts.ID == "" {
		opts.ID = timeout.DefaultID
	}
	return &Repeat[T]{fn: fn, opts: opts}
}

// WithEqual makes the threshold restart whenever two consecutive ok values
// differ according to eq.
func (r *Repeat[T]) WithEqual(eq func(a, b T) bool) *Repeat[T] {
	r.equal = eq
	return r
}

// Start launches the polling goroutine and returns the session's promise.
// fn is never invoked on the caller's goroutine, so Abort may be wired up
// before the first attempt observes anything. A session starts once.
func (r *Repeat[T]) Start(ctx context.Context) (*timeout.Promise[T], error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil, ierrors.ContractViolation("repeat session %q was already started", r.opts.ID)
	}
	r.started = true
	r.runID = ulid.Make().String()
	r.threshold = NewThreshold(r.opts.Threshold)

	// A single-attempt session is enforced by the loop, which needs the
	// attempt to run before the promise may expire.
	deadline := r.opts.Timeout
	if deadline.IsOnce() {
		deadline = timeout.Unbounded
	}
	p := timeout.From(timeout.NewFuture[T](), deadline,
		timeout.WithID(r.opts.ID),
		timeout.WithMessageFunc(r.message))
	r.promise = p
	r.mu.Unlock()

	attemptCtx, cancel := context.WithCancel(ctx)
	p.Future().OnSettle(cancel)
	p.Future().OnSettle(r.report)

	go r.run(attemptCtx, p)
	return p, nil
}

// Execute starts the session and waits for its result. Cancelling ctx aborts
// the session.
func (r *Repeat[T]) Execute(ctx context.Context) (T, error) {
	ctx, span := observability.StartSpan(ctx, "retry.Repeat",
		trace.WithAttributes(
			observability.AttrOperationID.String(r.opts.ID),
			observability.AttrDeadline.String(r.opts.Timeout.String()),
		))
	defer span.End()

	p, err := r.Start(ctx)
	if err != nil {
		var zero T
		observability.RecordError(ctx, err)
		return zero, err
	}
	v, err := p.Wait(ctx)
	span.SetAttributes(
		observability.AttrRunID.String(r.RunID()),
		observability.AttrAttempts.Int(r.Attempts()),
	)
	observability.RecordError(ctx, err)
	return v, err
}

func (r *Repeat[T]) run(ctx context.Context, p *timeout.Promise[T]) {
	once := r.opts.Timeout.IsOnce()
	var limiter *rate.Limiter
	if r.opts.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(r.opts.Interval), 1)
	}

	var last T
	haveLast := false
	for {
		if err := pace(ctx, limiter); err != nil {
			p.Abort(err)
			return
		}

		r.attempts.Add(1)
		observability.RepeatAttempts.Inc()
		v, ok, err := r.fn(ctx)

		// Settled while the attempt was in flight: its result is discarded.
		if p.Future().Settled() {
			return
		}
		if err != nil {
			p.Future().Reject(err)
			return
		}

		switch {
		case !ok:
			r.threshold.Reset()
			haveLast = false
		case haveLast && r.equal != nil && !r.equal(last, v):
			r.threshold.Reset()
			last = v
		default:
			last, haveLast = v, true
		}

		if ok && r.threshold.HasFinished() {
			p.Resolve(v)
			return
		}
		if once {
			p.Expire(onceDetail)
			return
		}
	}
}

// pace waits for the next attempt slot. Without a limiter it only yields.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		runtime.Gosched()
		return ctx.Err()
	}
	res := limiter.Reserve()
	delay := res.Delay()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	}
}

func (r *Repeat[T]) message() string {
	if r.opts.MessageFunc != nil {
		return r.opts.MessageFunc()
	}
	return r.opts.Message
}

func (r *Repeat[T]) report() {
	_, err := r.promise.Future().Result()
	outcome := outcomeOf(err)
	elapsed := r.promise.Elapsed()
	attempts := r.Attempts()
	resets := r.ResetCount()

	observability.RepeatSessions.WithLabelValues(outcome).Inc()
	observability.RepeatDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	logger := observability.OrNop(r.opts.Logger).WithOperation(r.opts.ID, r.runID)
	if err == nil {
		logger.RepeatSettled(r.opts.ID, attempts, resets, elapsed)
	} else {
		logger.RepeatFailed(r.opts.ID, outcome, attempts, elapsed, err)
	}

	r.opts.Hub.Publish(telemetry.Event{
		Type:        eventTypeOf(outcome),
		OperationID: r.opts.ID,
		RunID:       r.runID,
		Data: map[string]any{
			"attempts":         attempts,
			"threshold_resets": resets,
			"elapsed_ms":       elapsed.Milliseconds(),
		},
	})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeResolved
	case timeout.IsTimeout(err):
		return observability.OutcomeTimedOut
	case ierrors.IsCode(err, ierrors.ErrCodeAborted):
		return observability.OutcomeAborted
	default:
		return observability.OutcomeRejected
	}
}

func eventTypeOf(outcome string) telemetry.EventType {
	switch outcome {
	case observability.OutcomeResolved:
		return telemetry.EventRepeatSettled
	case observability.OutcomeTimedOut:
		return telemetry.EventRepeatTimedOut
	case observability.OutcomeAborted:
		return telemetry.EventRepeatAborted
	default:
		return telemetry.EventRepeatRejected
	}
}

// Abort settles a running session as aborted.
func (r *Repeat[T]) Abort() error {
	p, err := r.running("abort")
	if err != nil {
		return err
	}
	p.Abort(nil)
	return nil
}

// AbortWith settles a running session with v.
func (r *Repeat[T]) AbortWith(v T) error {
	p, err := r.running("abort")
	if err != nil {
		return err
	}
	p.Resolve(v)
	return nil
}

// AbortErr settles a running session as aborted because of cause.
func (r *Repeat[T]) AbortErr(cause error) error {
	p, err := r.running("abort")
	if err != nil {
		return err
	}
	p.Abort(cause)
	return nil
}

func (r *Repeat[T]) running(op string) (*timeout.Promise[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil, ierrors.ContractViolation("cannot %s repeat session %q before it was started", op, r.opts.ID)
	}
	return r.promise, nil
}

// ID returns the diagnostic name.
func (r *Repeat[T]) ID() string { return r.opts.ID }

// RunID identifies this execution in logs and telemetry. Empty before Start.
func (r *Repeat[T]) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// Attempts is the number of times fn has been invoked.
func (r *Repeat[T]) Attempts() int { return int(r.attempts.Load()) }

// ResetCount reports how often the stability threshold restarted.
func (r *Repeat[T]) ResetCount() int {
	r.mu.Lock()
	th := r.threshold
	r.mu.Unlock()
	if th == nil {
		return 0
	}
	return th.ResetCount()
}

// Do polls fn until it reports ok and returns the accepted value.
func Do[T any](ctx context.Context, fn Func[T], opts Options) (T, error) {
	return New(fn, opts).Execute(ctx)
}

// Until polls cond until it returns true.
func Until(ctx context.Context, cond func(ctx context.Context) (bool, error), opts Options) error {
	_, err := Do(ctx, func(ctx context.Context) (bool, bool, error) {
		ok, err := cond(ctx)
		return ok, ok, err
	}, opts)
	return err
}

// NonZero adapts a producer whose zero value means "not ready yet".
func NonZero[T comparable](fn func(ctx context.Context) (T, error)) Func[T] {
	return func(ctx context.Context) (T, bool, error) {
		var zero T
		v, err := fn(ctx)
		if err != nil {
			return zero, false, err
		}
		return v, v != zero, nil
	}
}
