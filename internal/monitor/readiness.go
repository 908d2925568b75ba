package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StatusFetcher reads the current status of an endpoint. failureReason is
// only meaningful when the status is Failed.
type StatusFetcher interface {
	EndpointStatus(ctx context.Context, name string) (status string, failureReason string, err error)
}

// Clock is the subset of github.com/raulk/clock.Clock the monitor needs
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// terminalError is implemented by errors that know whether retrying can help
type terminalError interface {
	Terminal() bool
}

// IsTerminal reports whether err, or any error it wraps, is marked terminal
func IsTerminal(err error) bool {
	var te terminalError
	return errors.As(err, &te) && te.Terminal()
}

// Readiness waits for a single endpoint to reach a terminal status
type Readiness struct {
	fetcher  StatusFetcher
	clock    Clock
	interval time.Duration
	logger   *zap.Logger
}

// Option configures a Readiness
type Option func(*Readiness)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(r *Readiness) { r.clock = c }
}

// WithInterval sets the delay between two fetches
func WithInterval(d time.Duration) Option {
	return func(r *Readiness) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Readiness) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReadiness creates a new readiness monitor
func NewReadiness(fetcher StatusFetcher, clk Clock, opts ...Option) *Readiness {
	r := &Readiness{
		fetcher:  fetcher,
		clock:    clk,
		interval: DefaultPollInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AwaitReady polls the endpoint until it is InService, Failed, or the
// deadline passes. A returned error is either a terminal fetch error (with
// OutcomeFailed) or the context error (with OutcomeTimedOut).
func (r *Readiness) AwaitReady(ctx context.Context, name string, deadline time.Time) (Outcome, error) {
	logger := r.logger.With(zap.String("endpoint", name), zap.Time("deadline", deadline))
	start := r.clock.Now()
	polls := 0

	for r.clock.Now().Before(deadline) {
		status, reason, err := r.fetcher.EndpointStatus(ctx, name)
		polls++

		switch {
		case err != nil && ctx.Err() != nil:
			return OutcomeTimedOut, ctx.Err()
		case err != nil && IsTerminal(err):
			logger.Error("Endpoint status check failed", zap.Int("poll", polls), zap.Error(err))
			return OutcomeFailed, fmt.Errorf("failed to get status of endpoint %s: %w", name, err)
		case err != nil:
			logger.Warn("Error checking endpoint status, will retry", zap.Int("poll", polls), zap.Error(err))
		default:
			switch Status(status) {
			case StatusInService:
				logger.Info("Endpoint is in service",
					zap.Int("polls", polls),
					zap.Duration("elapsed", r.clock.Now().Sub(start)))
				return OutcomeSuccess, nil
			case StatusFailed:
				logger.Error("Endpoint creation failed", zap.String("reason", reason), zap.Int("polls", polls))
				return OutcomeFailed, nil
			case StatusCreating, StatusUpdating, StatusSystemUpdating, StatusRollingBack:
				logger.Info("Endpoint is not ready yet", zap.String("status", status))
			case StatusDeleting:
				logger.Warn("Endpoint is being deleted while awaited", zap.String("status", status))
			case StatusOutOfService:
				logger.Warn("Endpoint is out of service", zap.String("status", status))
			default:
				logger.Warn("Unrecognized endpoint status", zap.String("status", status))
			}
		}

		select {
		case <-ctx.Done():
			return OutcomeTimedOut, ctx.Err()
		case <-r.clock.After(r.interval):
		}
	}

	logger.Error("Timed out waiting for endpoint", zap.Int("polls", polls))
	return OutcomeTimedOut, nil
}
