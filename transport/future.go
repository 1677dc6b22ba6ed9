package transport

import (
	"context"
	"net/http"
)

// Future is the pending result of an asynchronous call.
type Future struct {
	resp *http.Response
	err  error
	done chan struct{}
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(resp *http.Response, err error) {
	f.resp = resp
	f.err = err
	close(f.done)
}

// Await waits for the call to complete. If ctx ends first, Await returns
// ctx.Err() and the call keeps running; cancel the context given to
// ExecuteAsync to stop it.
func (f *Future) Await(ctx context.Context) (*http.Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when the call completes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsComplete checks if the call is complete without blocking.
func (f *Future) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
