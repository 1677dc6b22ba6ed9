package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/boniface/opsig"
	"github.com/boniface/opsig/clock"
	"github.com/boniface/opsig/interceptor"
	"github.com/boniface/opsig/internal/logattr"
	"github.com/boniface/opsig/resilience"
	"github.com/boniface/opsig/transport"
	"github.com/lestrrat-go/blackmagic"
)

// Client sends signed requests through a resilient transport.
//
// Each attempt is signed separately, so a retried request carries a fresh
// nonce. The request id is assigned once per logical call and is shared
// by every attempt.
type Client struct {
	engine    *opsig.Engine
	resilient *transport.Resilient
	pipeline  transport.Transport
}

// NewClient creates a Client signing with key.
func NewClient(key *opsig.KeyMaterial, options ...ClientOption) (*Client, error) {
	var (
		rt        http.RoundTripper
		cfg       = resilience.DefaultConfig()
		tokens    interceptor.TokenSource
		logger    = logattr.Discard()
		clk       clock.Clock = clock.SystemClock{}
		waiter    transport.Waiter
		breaker   *resilience.Breaker
		requests  []interceptor.RequestFunc
		responses []interceptor.ResponseFunc
	)

	for _, opt := range options {
		switch opt.Ident() {
		case identTransport{}:
			if err := blackmagic.AssignIfCompatible(&rt, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign transport: %w", err)
			}
		case identConfig{}:
			if err := blackmagic.AssignIfCompatible(&cfg, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign config: %w", err)
			}
		case identTokenSource{}:
			if err := blackmagic.AssignIfCompatible(&tokens, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign token source: %w", err)
			}
		case identLogger{}:
			if err := blackmagic.AssignIfCompatible(&logger, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign logger: %w", err)
			}
		case identClock{}:
			if err := blackmagic.AssignIfCompatible(&clk, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign clock: %w", err)
			}
		case identWaiter{}:
			if err := blackmagic.AssignIfCompatible(&waiter, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign waiter: %w", err)
			}
		case identBreaker{}:
			if err := blackmagic.AssignIfCompatible(&breaker, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign breaker: %w", err)
			}
		case identRequestInterceptor{}:
			var fn interceptor.RequestFunc
			if err := blackmagic.AssignIfCompatible(&fn, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign request interceptor: %w", err)
			}
			requests = append(requests, fn)
		case identResponseInterceptor{}:
			var fn interceptor.ResponseFunc
			if err := blackmagic.AssignIfCompatible(&fn, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign response interceptor: %w", err)
			}
			responses = append(responses, fn)
		}
	}

	if rt == nil {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	engine, err := opsig.NewEngine(key, opsig.WithClock(clk))
	if err != nil {
		return nil, fmt.Errorf("failed to create signing engine: %w", err)
	}

	// per-attempt chain: covered headers first, signature last
	attempt := interceptor.NewChain()
	if tokens != nil {
		attempt.UseRequest(interceptor.Authorization(tokens))
	}
	attempt.UseRequest(requests...)
	attempt.UseRequest(
		interceptor.ContentDigest(),
		interceptor.Sign(engine),
		interceptor.LogRequest(logger),
	)

	resilientOptions := []transport.ResilientOption{
		transport.WithClock(clk),
		transport.WithLogger(logger),
	}
	if waiter != nil {
		resilientOptions = append(resilientOptions, transport.WithWaiter(waiter))
	}
	if breaker != nil {
		resilientOptions = append(resilientOptions, transport.WithBreaker(breaker))
	}
	resilient, err := transport.NewResilient(attempt.Wrap(transport.FromRoundTripper(rt)), cfg, resilientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resilient transport: %w", err)
	}

	call := interceptor.NewChain().
		UseRequest(interceptor.RequestID()).
		UseResponse(responses...).
		UseResponse(interceptor.LogResponse(logger))

	return &Client{
		engine:    engine,
		resilient: resilient,
		pipeline:  call.Wrap(resilient),
	}, nil
}

// Engine returns the signing engine.
func (c *Client) Engine() *opsig.Engine {
	return c.engine
}

// Breaker returns the circuit breaker, or nil when it is disabled.
func (c *Client) Breaker() *resilience.Breaker {
	return c.resilient.Breaker()
}

// Execute sends req through the whole pipeline and returns the response
// whatever its status. req is not modified.
func (c *Client) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: HTTP request is required", opsig.ErrInvalidArgument)
	}
	resp, err := c.pipeline.Execute(ctx, req.Clone(ctx))
	var permanent *transport.PermanentError
	if errors.As(err, &permanent) {
		return nil, permanent.Err
	}
	return resp, err
}

// Do is Execute followed by error extraction: a non-2xx response is
// returned as an *interceptor.APIError.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return interceptor.ExtractError()(resp)
}

// HTTPClient returns an *http.Client whose transport is the signing
// pipeline. Responses are returned whatever their status, as usual for
// net/http.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Transport: roundTripper{c}}
}

type roundTripper struct {
	client *Client
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt.client.Execute(req.Context(), req)
}
