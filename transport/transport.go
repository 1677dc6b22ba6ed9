// Package transport defines the collaborator that actually sends requests
// and the resilient wrapper that adds retries and a circuit breaker on top
// of it.
package transport

import (
	"context"
	"net/http"
)

// Transport sends a request and returns its response. Implementations
// must honor ctx cancellation.
type Transport interface {
	Execute(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f Func) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// FromRoundTripper sends requests through rt.
func FromRoundTripper(rt http.RoundTripper) Transport {
	return Func(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return rt.RoundTrip(req.WithContext(ctx))
	})
}

// FromClient sends requests through c. Redirects and cookies are handled
// by c as usual.
func FromClient(c *http.Client) Transport {
	return Func(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return c.Do(req.WithContext(ctx))
	})
}
