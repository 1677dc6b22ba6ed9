package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/boniface/opsig/clock"
	"github.com/boniface/opsig/internal/logattr"
	"github.com/boniface/opsig/resilience"
	"github.com/lestrrat-go/blackmagic"
)

// Resilient wraps a Transport with a retry loop and a circuit breaker.
// It is safe for concurrent use; the breaker is shared by every call.
type Resilient struct {
	next     Transport
	cfg      resilience.Config
	strategy resilience.Strategy
	breaker  *resilience.Breaker
	wait     Waiter
	logger   *slog.Logger
}

// NewResilient creates a Resilient transport sending through next.
// The breaker is omitted when cfg.CircuitBreakerEnabled is false and no
// breaker is passed with WithBreaker.
func NewResilient(next Transport, cfg resilience.Config, options ...ResilientOption) (*Resilient, error) {
	if next == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Resilient{
		next:     next,
		cfg:      cfg,
		strategy: resilience.StrategyFromConfig(cfg),
		wait:     sleep,
		logger:   logattr.Discard(),
	}

	var clk clock.Clock = clock.SystemClock{}
	for _, opt := range options {
		switch opt.Ident() {
		case identClock{}:
			if err := blackmagic.AssignIfCompatible(&clk, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign clock: %w", err)
			}
		case identWaiter{}:
			if err := blackmagic.AssignIfCompatible(&r.wait, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign waiter: %w", err)
			}
		case identLogger{}:
			if err := blackmagic.AssignIfCompatible(&r.logger, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign logger: %w", err)
			}
		case identBreaker{}:
			if err := blackmagic.AssignIfCompatible(&r.breaker, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign breaker: %w", err)
			}
		case identStrategy{}:
			if err := blackmagic.AssignIfCompatible(&r.strategy, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign strategy: %w", err)
			}
		}
	}

	if r.wait == nil || r.logger == nil {
		return nil, fmt.Errorf("waiter and logger must not be nil")
	}

	if r.breaker == nil && cfg.CircuitBreakerEnabled {
		b, err := resilience.NewBreakerFromConfig(cfg,
			resilience.WithClock(clk),
			resilience.WithStateChangeHook(r.logTransition),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		r.breaker = b
	}
	return r, nil
}

// Breaker returns the circuit breaker, or nil when it is disabled.
func (r *Resilient) Breaker() *resilience.Breaker {
	return r.breaker
}

// Execute sends req, retrying transport errors and retryable statuses up
// to cfg.MaxRetries times. A *PermanentError from next ends the call at
// once with the error it wraps. It returns resilience.ErrCircuitOpen without
// calling the transport while the breaker is open, a
// *resilience.RetryExhaustedError when every attempt failed, and ctx.Err()
// when ctx ends first.
func (r *Resilient) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("HTTP request is required")
	}
	req = req.Clone(ctx)
	if err := rewindable(req); err != nil {
		return nil, err
	}

	attempts := r.cfg.MaxRetries + 1
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		permit, err := r.allow()
		if err != nil {
			if last != nil {
				return nil, fmt.Errorf("%w after %d attempts: %w", err, attempt-1, last)
			}
			return nil, err
		}

		attemptReq, err := prepare(ctx, req, attempt)
		if err != nil {
			r.release(permit)
			return nil, err
		}

		resp, err := r.next.Execute(ctx, attemptReq)
		var permanent *PermanentError
		switch {
		case errors.As(err, &permanent):
			r.release(permit)
			return nil, permanent.Err
		case err != nil:
			if ctx.Err() != nil {
				r.release(permit)
				return nil, ctx.Err()
			}
			r.failure(permit)
			last = err
		case resp == nil:
			r.failure(permit)
			last = errors.New("transport returned neither a response nor an error")
		case r.cfg.IsRetryableStatus(resp.StatusCode):
			r.failure(permit)
			last = &resilience.StatusError{StatusCode: resp.StatusCode}
			discard(resp)
		default:
			r.success(permit)
			return resp, nil
		}

		if attempt == attempts {
			break
		}
		if r.breaker != nil && r.breaker.State() == resilience.StateOpen {
			r.logger.WarnContext(ctx, "circuit opened, giving up",
				logattr.Request(req), logattr.Attempt(attempt), logattr.Error(last))
			return nil, fmt.Errorf("%w after %d attempts: %w", resilience.ErrCircuitOpen, attempt, last)
		}

		delay := r.strategy.Delay(attempt)
		r.logger.DebugContext(ctx, "retrying request",
			logattr.Request(req), logattr.Attempt(attempt), logattr.Delay(delay), logattr.Error(last))
		if err := r.wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	r.logger.WarnContext(ctx, "retries exhausted",
		logattr.Request(req), logattr.Attempt(attempts), logattr.Error(last))
	return nil, &resilience.RetryExhaustedError{Attempts: attempts, Last: last}
}

// ExecuteAsync runs Execute on its own goroutine and returns immediately.
func (r *Resilient) ExecuteAsync(ctx context.Context, req *http.Request) *Future {
	f := newFuture()
	go func() {
		resp, err := r.Execute(ctx, req)
		f.complete(resp, err)
	}()
	return f
}

// RoundTrip implements http.RoundTripper.
func (r *Resilient) RoundTrip(req *http.Request) (*http.Response, error) {
	return r.Execute(req.Context(), req)
}

func (r *Resilient) allow() (resilience.Permit, error) {
	if r.breaker == nil {
		return resilience.Permit{}, nil
	}
	return r.breaker.Allow()
}

func (r *Resilient) success(p resilience.Permit) {
	if r.breaker != nil {
		r.breaker.Success(p)
	}
}

func (r *Resilient) failure(p resilience.Permit) {
	if r.breaker != nil {
		r.breaker.Failure(p)
	}
}

func (r *Resilient) release(p resilience.Permit) {
	if r.breaker != nil {
		r.breaker.Release(p)
	}
}

func (r *Resilient) logTransition(from, to resilience.State) {
	r.logger.Info("circuit breaker state changed", logattr.State(from.String(), to.String()))
}

// rewindable makes sure a request body can be sent more than once. It
// replaces Body and GetBody, so it must only see a clone of the caller's
// request.
func rewindable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return nil
}

// prepare returns the request for one attempt. The first attempt sends the
// caller's body; later attempts get a fresh copy from GetBody.
func prepare(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	clone := req.Clone(ctx)
	if attempt > 1 && clone.Body != nil && clone.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, errors.New("request body cannot be re-sent")
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		clone.Body = body
	}
	return clone, nil
}

// discard drains and closes a response that will not be returned, so the
// connection can be reused.
func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
