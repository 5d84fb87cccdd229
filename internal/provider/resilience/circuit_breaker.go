// Package resilience provides circuit breakers and retry helpers for
// dependencies that can fail independently of the scoring core, such as the
// snow-quality model and dataset sources.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and in the ops status.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval clears the closed-state counts periodically. Zero never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before a trial call.
	// Default: 60 seconds
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker after this many failures in a row.
	// A local model failing on one input tends to fail on the next, so this
	// fires well before the ratio rule. Default: 3
	ConsecutiveFailures uint32

	// ReadyToTrip replaces both trip rules when set.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called after the transition has been logged.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)

	// Logger receives one Warn line per state change.
	Logger zerolog.Logger
}

// DefaultCircuitBreakerConfig returns the configuration used for the snow model.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                name,
		MaxRequests:         1,
		Timeout:             60 * time.Second,
		ConsecutiveFailures: 3,
	}
}

// DefaultReadyToTrip trips at a 50% failure rate once 5 calls were made.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// tripPolicy combines the consecutive-failure rule with DefaultReadyToTrip.
func tripPolicy(consecutive uint32) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= consecutive || DefaultReadyToTrip(counts)
	}
}

// NewCircuitBreaker creates a circuit breaker. Zero-value fields take the
// defaults of DefaultCircuitBreakerConfig.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = tripPolicy(cfg.ConsecutiveFailures)
	}

	logger := cfg.Logger
	notify := cfg.OnStateChange

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if notify != nil {
				notify(name, from, to)
			}
		},
	})
}
