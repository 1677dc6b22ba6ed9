package http

import (
	"log/slog"
	"net/http"

	"github.com/boniface/opsig/clock"
	"github.com/boniface/opsig/interceptor"
	"github.com/boniface/opsig/resilience"
	"github.com/boniface/opsig/transport"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

// ClientOption configures a Client.
type ClientOption interface {
	Option
	clientOption()
}

type clientOption struct {
	Option
}

func (clientOption) clientOption() {}

// WithTransport sets the underlying transport. The default is a clone of
// http.DefaultTransport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return clientOption{option.New(identTransport{}, rt)}
}

// WithConfig sets the retry and circuit breaker configuration.
func WithConfig(cfg resilience.Config) ClientOption {
	return clientOption{option.New(identConfig{}, cfg)}
}

// WithTokenSource adds a GNAP Authorization header to every request.
func WithTokenSource(ts interceptor.TokenSource) ClientOption {
	return clientOption{option.New(identTokenSource{}, ts)}
}

func WithLogger(l *slog.Logger) ClientOption {
	return clientOption{option.New(identLogger{}, l)}
}

// WithClock sets the clock for signature timestamps and the breaker.
func WithClock(c clock.Clock) ClientOption {
	return clientOption{option.New(identClock{}, c)}
}

// WithWaiter replaces the timer-based wait between retries.
func WithWaiter(w transport.Waiter) ClientOption {
	return clientOption{option.New(identWaiter{}, w)}
}

// WithBreaker shares b with other clients instead of creating a breaker
// from the config.
func WithBreaker(b *resilience.Breaker) ClientOption {
	return clientOption{option.New(identBreaker{}, b)}
}

// WithRequestInterceptor adds fn to every attempt, after the Authorization
// header is set and before the digest and signature are computed. May be
// given more than once; functions run in the order given.
func WithRequestInterceptor(fn interceptor.RequestFunc) ClientOption {
	return clientOption{option.New(identRequestInterceptor{}, fn)}
}

// WithResponseInterceptor adds fn to the final response of every call.
func WithResponseInterceptor(fn interceptor.ResponseFunc) ClientOption {
	return clientOption{option.New(identResponseInterceptor{}, fn)}
}

type identTransport struct{}

func (identTransport) String() string { return "WithTransport" }

type identConfig struct{}

func (identConfig) String() string { return "WithConfig" }

type identTokenSource struct{}

func (identTokenSource) String() string { return "WithTokenSource" }

type identLogger struct{}

func (identLogger) String() string { return "WithLogger" }

type identClock struct{}

func (identClock) String() string { return "WithClock" }

type identWaiter struct{}

func (identWaiter) String() string { return "WithWaiter" }

type identBreaker struct{}

func (identBreaker) String() string { return "WithBreaker" }

type identRequestInterceptor struct{}

func (identRequestInterceptor) String() string { return "WithRequestInterceptor" }

type identResponseInterceptor struct{}

func (identResponseInterceptor) String() string { return "WithResponseInterceptor" }
