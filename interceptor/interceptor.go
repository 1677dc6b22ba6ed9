// Package interceptor provides an ordered chain of request and response
// functions and the built-in functions used by the signing client.
package interceptor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boniface/opsig/transport"
)

// RequestFunc transforms an outgoing request. It may modify req in place
// or return a different request.
type RequestFunc func(*http.Request) (*http.Request, error)

// ResponseFunc transforms an incoming response.
type ResponseFunc func(*http.Response) (*http.Response, error)

// Chain runs request and response functions in registration order. The
// first error stops the chain. A Chain must not be modified once it is in
// use.
type Chain struct {
	request  []RequestFunc
	response []ResponseFunc
}

// NewChain creates an empty Chain.
func NewChain() *Chain {
	return &Chain{}
}

// UseRequest appends request functions.
func (c *Chain) UseRequest(fns ...RequestFunc) *Chain {
	c.request = append(c.request, fns...)
	return c
}

// UseResponse appends response functions.
func (c *Chain) UseResponse(fns ...ResponseFunc) *Chain {
	c.response = append(c.response, fns...)
	return c
}

// ApplyRequest runs the request functions.
func (c *Chain) ApplyRequest(req *http.Request) (*http.Request, error) {
	for i, fn := range c.request {
		next, err := fn(req)
		if err != nil {
			return nil, fmt.Errorf("request interceptor %d failed: %w", i, err)
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

// ApplyResponse runs the response functions.
func (c *Chain) ApplyResponse(resp *http.Response) (*http.Response, error) {
	for i, fn := range c.response {
		next, err := fn(resp)
		if err != nil {
			return nil, fmt.Errorf("response interceptor %d failed: %w", i, err)
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}

// Wrap returns a Transport that applies the request functions, sends the
// request through next and applies the response functions. Request function
// errors are returned as *transport.PermanentError.
func (c *Chain) Wrap(next transport.Transport) transport.Transport {
	return transport.Func(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		req, err := c.ApplyRequest(req)
		if err != nil {
			return nil, transport.Permanent(err)
		}
		resp, err := next.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		return c.ApplyResponse(resp)
	})
}
