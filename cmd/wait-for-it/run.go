package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/wait-for-it/internal/config"
	"github.com/fgeck/wait-for-it/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runWait(cmd *cobra.Command, args []string) error {
	setupLogging(cmd.ErrOrStderr())
	name := programName()

	parser := config.NewParser(name)
	cfg, err := parser.Parse(args)
	if err != nil {
		var argErr *config.ArgumentError
		if errors.As(err, &argErr) {
			log.Error().Msg(argErr.Message)
		}
		_ = cmd.Usage()
		return &exitError{code: 1}
	}

	setLogLevel(cfg.Quiet, cfg.Verbose)

	log.Debug().
		Str("target", cfg.Target.String()).
		Dur("timeout", cfg.Timeout).
		Bool("strict", cfg.Strict).
		Strs("command", cfg.Command).
		Msg("configuration parsed")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Debug().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	code, err := runner.New(log.Logger, name).Run(ctx, *cfg)
	if err != nil {
		log.Debug().Err(err).Msg("wait aborted")
	}

	if code != runner.ExitOK {
		return &exitError{code: code}
	}
	return nil
}
