package interceptor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/boniface/opsig"
	"github.com/boniface/opsig/digest"
	"github.com/boniface/opsig/internal/logattr"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id set by RequestID.
const RequestIDHeader = "X-Request-Id"

// TokenSource supplies the access token for the Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// Authorization sets "Authorization: GNAP <token>". Requests that already
// carry an Authorization header, or for which the source returns an empty
// token, are left alone.
func Authorization(ts TokenSource) RequestFunc {
	return func(req *http.Request) (*http.Request, error) {
		if req.Header.Get("Authorization") != "" {
			return req, nil
		}
		token, err := ts.Token(req.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "GNAP "+token)
		}
		return req, nil
	}
}

// ContentDigest sets the Content-Digest header on requests with a body.
func ContentDigest() RequestFunc {
	return func(req *http.Request) (*http.Request, error) {
		if err := digest.SetRequestDigest(req); err != nil {
			return nil, err
		}
		return req, nil
	}
}

// Sign signs the request with engine. It must run after every function
// that sets a covered header.
func Sign(engine *opsig.Engine) RequestFunc {
	return func(req *http.Request) (*http.Request, error) {
		if _, err := engine.SignRequest(req); err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
		return req, nil
	}
}

// RequestID sets a random X-Request-Id when the request has none.
func RequestID() RequestFunc {
	return func(req *http.Request) (*http.Request, error) {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
		return req, nil
	}
}

func LogRequest(logger *slog.Logger) RequestFunc {
	return func(req *http.Request) (*http.Request, error) {
		logger.DebugContext(req.Context(), "sending request",
			logattr.Request(req),
			logattr.RequestID(req.Header.Get(RequestIDHeader)),
		)
		return req, nil
	}
}

func LogResponse(logger *slog.Logger) ResponseFunc {
	return func(resp *http.Response) (*http.Response, error) {
		ctx := context.Background()
		var id string
		if resp.Request != nil {
			ctx = resp.Request.Context()
			id = resp.Request.Header.Get(RequestIDHeader)
		}
		logger.DebugContext(ctx, "received response",
			logattr.Request(resp.Request),
			logattr.Status(resp),
			logattr.RequestID(id),
		)
		return resp, nil
	}
}
