// Package platform provides dependency injection and application bootstrapping.
// This file contains recovery mechanisms for external dependencies: retry
// with backoff and a circuit breaker, reused to wrap Postgres/Redis connects
// and the osu! API client pool's warm-up probe.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryWithBackoff executes fn with exponential backoff retry logic.
func RetryWithBackoff(ctx context.Context, logger zerolog.Logger, config RetryConfig, fn func() error) error {
	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Info().Int("attempt", attempt+1).Msg("operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if attempt == config.MaxAttempts-1 {
			break
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", config.MaxAttempts).
			Dur("delay", delay).
			Msg("operation failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * config.BackoffMultiplier)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}
	}

	return lastErr
}

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

// CircuitBreaker implements the circuit breaker pattern for external dependencies.
type CircuitBreaker struct {
	logger           zerolog.Logger
	maxFailures      int
	resetTimeout     time.Duration
	state            CircuitBreakerState
	failureCount     int
	lastFailureTime  time.Time
	successCount     int
	halfOpenRequests int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(logger zerolog.Logger, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		logger:           logger,
		maxFailures:      maxFailures,
		resetTimeout:     resetTimeout,
		state:            CircuitBreakerClosed,
		halfOpenRequests: 3,
	}
}

// Execute executes fn through the circuit breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.updateState()

	switch cb.state {
	case CircuitBreakerOpen:
		return errors.New("circuit breaker is open - service unavailable")
	case CircuitBreakerHalfOpen:
		if cb.successCount >= cb.halfOpenRequests {
			cb.state = CircuitBreakerClosed
			cb.failureCount = 0
			cb.successCount = 0
			cb.logger.Info().Msg("circuit breaker closed - service recovered")
		}
		fallthrough
	case CircuitBreakerClosed:
		err := fn()
		if err != nil {
			cb.recordFailure()
			return err
		}
		cb.recordSuccess()
		return nil
	}

	return nil
}

func (cb *CircuitBreaker) updateState() {
	now := time.Now()

	switch cb.state {
	case CircuitBreakerOpen:
		if now.Sub(cb.lastFailureTime) >= cb.resetTimeout {
			cb.state = CircuitBreakerHalfOpen
			cb.successCount = 0
			cb.logger.Info().Msg("circuit breaker half-open - testing service recovery")
		}
	case CircuitBreakerHalfOpen:
	case CircuitBreakerClosed:
		if cb.failureCount >= cb.maxFailures {
			cb.state = CircuitBreakerOpen
			cb.lastFailureTime = now
			cb.logger.Error().Int("failures", cb.failureCount).Msg("circuit breaker opened - too many failures")
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.state == CircuitBreakerHalfOpen {
		cb.state = CircuitBreakerOpen
		cb.logger.Warn().Msg("circuit breaker reopened - service still failing")
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	if cb.state == CircuitBreakerHalfOpen {
		cb.successCount++
	} else {
		cb.failureCount = 0
	}
}

// ConnectPostgresWithRetry connects to PostgreSQL with retry logic and circuit breaker.
func ConnectPostgresWithRetry(ctx context.Context, logger zerolog.Logger, dsn string, retryConfig RetryConfig, cb *CircuitBreaker) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := RetryWithBackoff(ctx, logger, retryConfig, func() error {
		return cb.Execute(func() error {
			var e error
			pool, e = pgxpool.New(ctx, dsn)
			if e != nil {
				return e
			}
			return pool.Ping(ctx)
		})
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}

// ConnectRedisWithRetry connects to Redis with retry logic and circuit breaker.
func ConnectRedisWithRetry(ctx context.Context, logger zerolog.Logger, addr, password string, db int, retryConfig RetryConfig, cb *CircuitBreaker) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	err := RetryWithBackoff(ctx, logger, retryConfig, func() error {
		return cb.Execute(func() error {
			return rdb.Ping(ctx).Err()
		})
	})
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// WarmUpClientPool probes the osu! API client pool through the same
// retry+circuit-breaker wrapper used for the database connects, so a
// transient upstream outage at boot doesn't fail the whole process.
func WarmUpClientPool(ctx context.Context, logger zerolog.Logger, probe func(ctx context.Context) error, retryConfig RetryConfig, cb *CircuitBreaker) error {
	return RetryWithBackoff(ctx, logger, retryConfig, func() error {
		return cb.Execute(func() error {
			return probe(ctx)
		})
	})
}
