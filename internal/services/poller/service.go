// Package poller waits for a TCP endpoint to accept connections.
package poller

import (
	"context"
	"net"
	"time"

	"github.com/fgeck/wait-for-it/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for waiting on a target.
type Service interface {
	Wait(ctx context.Context, cfg models.WaitConfig) (*models.PollOutcome, error)
}

// Dialer allows mocking TCP connects in tests. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Impl implements the poller Service interface.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a new poller service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		dialer: &net.Dialer{},
		logger: logger,
	}
}

// NewWithDialer creates a new poller service with a custom dialer (for testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{
		dialer: dialer,
		logger: logger,
	}
}

// Wait dials cfg.Target until a connection succeeds or cfg.Timeout elapses.
// A zero timeout waits until ctx is cancelled. Cancellation returns ctx.Err()
// together with the outcome so far.
func (s *Impl) Wait(ctx context.Context, cfg models.WaitConfig) (*models.PollOutcome, error) {
	start := time.Now()
	outcome := &models.PollOutcome{State: models.PollTimedOut}

	var deadline time.Time
	if cfg.Timeout > 0 {
		deadline = start.Add(cfg.Timeout)
	}

	for {
		outcome.Attempts++
		err := s.dial(ctx, cfg, deadline)
		outcome.Elapsed = time.Since(start)
		if err == nil {
			outcome.State = models.PollConnected
			outcome.LastErr = nil
			return outcome, nil
		}
		outcome.LastErr = err

		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}

		s.logger.Debug().
			Err(err).
			Str("target", cfg.Target.String()).
			Int("attempt", outcome.Attempts).
			Msg("target not ready yet")

		wait := cfg.Interval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return outcome, nil
			}
			wait = min(wait, remaining)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			outcome.Elapsed = time.Since(start)
			return outcome, ctx.Err()
		case <-timer.C:
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			outcome.Elapsed = time.Since(start)
			return outcome, nil
		}
	}
}

func (s *Impl) dial(ctx context.Context, cfg models.WaitConfig, deadline time.Time) error {
	if cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		defer cancel()
	}
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", cfg.Target.Address())
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}
