package providers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/met-local-forecast/internal/weather"
)

// LimitConfig controls how fast outbound calls may be issued.
type LimitConfig struct {
	// RequestsPerSecond may be fractional; zero or less disables limiting.
	RequestsPerSecond float64
	Burst             int
}

var (
	errCircuitOpen = errors.New("circuit breaker open")
	errRateLimited = errors.New("rate limit wait canceled")
)

// breakerCooldown is how long an open breaker rejects calls. It is shorter
// than any gap between two refreshes, so the call after a failure is always
// admitted as the half-open trial and reaches the network.
const breakerCooldown = time.Nanosecond

// newCircuitBreaker returns the breaker for one location. It opens after
// more than five consecutive failed exchanges and then admits a single trial
// call at a time until one succeeds. A not-found answer is a completed
// exchange and does not count against the remote.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     breakerCooldown,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, weather.ErrLocationNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("WARN: %s: circuit %s -> %s", name, from, to)
		},
	})
}

func newLimiter(cfg LimitConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

// doRequest runs call exactly once, after waiting for the limiter and only
// if the circuit breaker admits it. Failures are returned as-is; retrying is
// left to the caller's next refresh.
func doRequest(
	ctx context.Context,
	limiter *rate.Limiter,
	cb *gobreaker.CircuitBreaker,
	call func() (*weather.Payload, error),
) (*weather.Payload, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", errRateLimited, err)
	}

	result, err := cb.Execute(func() (interface{}, error) {
		return call()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	payload, ok := result.(*weather.Payload)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return payload, nil
}
