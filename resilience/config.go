package resilience

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config describes retry and circuit breaker behavior. Field tags name the
// environment variables read by LoadConfig, before any prefix.
type Config struct {
	MaxRetries            int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryStrategy         Kind          `env:"RETRY_STRATEGY" envDefault:"exponential"`
	RetryBaseDelay        time.Duration `env:"RETRY_BASE_DELAY" envDefault:"100ms"`
	RetryJitter           Jitter        `env:"RETRY_JITTER" envDefault:"none"`
	MaxRetryDelay         time.Duration `env:"MAX_RETRY_DELAY" envDefault:"10s"`
	RetryableStatusCodes  []int         `env:"RETRYABLE_STATUS_CODES" envDefault:"429,502,503,504" envSeparator:","`
	CircuitBreakerEnabled bool          `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`
	FailureThreshold      int           `env:"FAILURE_THRESHOLD" envDefault:"5"`
	OpenTimeout           time.Duration `env:"OPEN_TIMEOUT" envDefault:"30s"`
	HalfOpenProbeCount    int           `env:"HALF_OPEN_PROBE_COUNT" envDefault:"1"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		MaxRetries:            3,
		RetryStrategy:         KindExponential,
		RetryBaseDelay:        100 * time.Millisecond,
		RetryJitter:           JitterNone,
		MaxRetryDelay:         10 * time.Second,
		RetryableStatusCodes:  []int{429, 502, 503, 504},
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		OpenTimeout:           30 * time.Second,
		HalfOpenProbeCount:    1,
	}
}

// LoadConfig reads the configuration from the process environment. Each
// variable name is prefixed with prefix, e.g. "OPSIG_" + "MAX_RETRIES".
func LoadConfig(prefix string) (Config, error) {
	return parseConfig(prefix, env.ToMap(os.Environ()))
}

// LoadConfigFile reads a dotenv file and then the process environment,
// which takes precedence, in the same way godotenv.Load does.
func LoadConfigFile(path, prefix string) (Config, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}
	return parseConfig(prefix, vars)
}

func parseConfig(prefix string, vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      prefix,
		Environment: vars,
	}); err != nil {
		return Config{}, fmt.Errorf("failed to parse resilience config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	switch c.RetryStrategy {
	case KindFixed, KindExponential:
	default:
		return fmt.Errorf("%w: unknown retry strategy %q", ErrInvalidConfig, c.RetryStrategy)
	}
	switch c.RetryJitter {
	case JitterNone, JitterFull:
	default:
		return fmt.Errorf("%w: unknown retry jitter %q", ErrInvalidConfig, c.RetryJitter)
	}
	if c.RetryBaseDelay < 0 || c.MaxRetryDelay < 0 {
		return fmt.Errorf("%w: retry delays must not be negative", ErrInvalidConfig)
	}
	if c.CircuitBreakerEnabled {
		if c.FailureThreshold < 1 {
			return fmt.Errorf("%w: failure threshold must be positive, got %d", ErrInvalidConfig, c.FailureThreshold)
		}
		if c.HalfOpenProbeCount < 1 {
			return fmt.Errorf("%w: half-open probe count must be positive, got %d", ErrInvalidConfig, c.HalfOpenProbeCount)
		}
		if c.OpenTimeout < 0 {
			return fmt.Errorf("%w: open timeout must not be negative", ErrInvalidConfig)
		}
	}
	return nil
}

// IsRetryableStatus reports whether a response with the given status code
// should be retried.
func (c Config) IsRetryableStatus(code int) bool {
	return slices.Contains(c.RetryableStatusCodes, code)
}
