// Package runner orchestrates waking, waiting and running the trailing command.
package runner

import (
	"context"
	"errors"

	"github.com/fgeck/wait-for-it/internal/models"
	"github.com/fgeck/wait-for-it/internal/services/executor"
	"github.com/fgeck/wait-for-it/internal/services/poller"
	"github.com/fgeck/wait-for-it/internal/services/wol"
	"github.com/rs/zerolog"
)

// Exit codes produced by the runner itself. Anything else is the command's.
const (
	ExitOK          = 0
	ExitTimeout     = 124
	ExitInterrupted = 130
)

// Service defines the interface for a complete wait-for-it run.
type Service interface {
	Run(ctx context.Context, cfg models.WaitConfig) (int, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	name        string
	pollerSvc   poller.Service
	executorSvc executor.Service
	wolSvc      wol.Service
	logger      zerolog.Logger
}

// New creates a new runner. name prefixes every status message.
func New(logger zerolog.Logger, name string) *Impl {
	return &Impl{
		name:        name,
		pollerSvc:   poller.New(logger),
		executorSvc: executor.New(logger),
		wolSvc:      wol.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new runner with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	name string,
	pollerSvc poller.Service,
	executorSvc executor.Service,
	wolSvc wol.Service,
) *Impl {
	return &Impl{
		name:        name,
		pollerSvc:   pollerSvc,
		executorSvc: executorSvc,
		wolSvc:      wolSvc,
		logger:      logger,
	}
}

// Run waits for cfg.Target and, depending on the outcome and cfg.Strict,
// runs cfg.Command. It returns the process exit code. The error is non-nil
// only when the wait was interrupted.
func (s *Impl) Run(ctx context.Context, cfg models.WaitConfig) (int, error) {
	if cfg.WOL != nil {
		s.runWOL(ctx, cfg.WOL)
	}

	if cfg.Timeout > 0 {
		s.logger.Info().Msgf("%s: waiting %d seconds for %s", s.name, cfg.TimeoutSeconds(), cfg.Target)
	} else {
		s.logger.Info().Msgf("%s: waiting for %s without a timeout", s.name, cfg.Target)
	}

	outcome, err := s.pollerSvc.Wait(ctx, cfg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn().Msgf("%s: interrupted while waiting for %s", s.name, cfg.Target)
		}
		return ExitInterrupted, err
	}

	code := ExitOK
	if outcome.Connected() {
		s.logger.Info().Msgf("%s: %s is available after %d seconds", s.name, cfg.Target, outcome.ElapsedSeconds())
	} else {
		s.logger.Warn().Msgf("%s: timeout occurred after waiting %d seconds for %s", s.name, cfg.TimeoutSeconds(), cfg.Target)
		s.logger.Debug().Err(outcome.LastErr).Int("attempts", outcome.Attempts).Msg("last connection error")
		code = ExitTimeout
	}

	if !cfg.HasCommand() {
		return code, nil
	}

	if !outcome.Connected() && cfg.Strict {
		s.logger.Warn().Msgf("%s: strict mode, refusing to execute subprocess", s.name)
		return code, nil
	}

	result, err := s.executorSvc.Run(ctx, cfg.Command)
	if err != nil {
		s.logger.Error().Msgf("%s: %v", s.name, err)
	}
	if result == nil {
		return executor.ExitNotExecutable, nil
	}

	return result.ExitCode, nil
}

func (s *Impl) runWOL(ctx context.Context, cfg *models.WOLConfig) {
	result, err := s.wolSvc.Wake(ctx, *cfg)
	if err == nil && result.Error != nil {
		err = result.Error
	}
	if err != nil {
		s.logger.Warn().Msgf("%s: Wake-on-LAN for %s failed: %v", s.name, cfg.MACAddress, err)
		return
	}

	s.logger.Info().Msgf("%s: sent Wake-on-LAN packet to %s", s.name, cfg.MACAddress)
}
