// Package logattr holds slog attribute helpers shared by the transport
// and interceptor packages. Helpers return an empty slog.Attr for zero
// inputs so call sites never need nil checks.
package logattr

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Delay creates an attribute for a retry wait.
func Delay(d time.Duration) slog.Attr {
	return slog.Duration("delay", d)
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Request describes the method and URL of r.
func Request(r *http.Request) slog.Attr {
	if r == nil || r.URL == nil {
		return slog.Attr{}
	}
	return slog.Group("request",
		slog.String("method", r.Method),
		slog.String("url", r.URL.String()),
	)
}

// Status creates an attribute for the status code of resp.
func Status(resp *http.Response) slog.Attr {
	if resp == nil {
		return slog.Attr{}
	}
	return slog.Int("status", resp.StatusCode)
}

// RequestID creates an attribute for a request correlation id.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// State creates an attribute for a circuit breaker state transition.
func State(from, to string) slog.Attr {
	return slog.Group("circuit", slog.String("from", from), slog.String("to", to))
}
