package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fgeck/wait-for-it/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// exitError carries a non-zero exit code out of RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var rootCmd = &cobra.Command{
	Use:   "wait-for-it host:port [-s] [-t timeout] [-- command args]",
	Short: "Wait until a TCP host:port accepts connections",
	Long: `wait-for-it blocks until a TCP endpoint becomes connectable, then
optionally executes a command. Use it to sequence service startup:

  wait-for-it db:5432 -t 30 -- ./start-app

Exit codes: 0 on success, 1 on usage errors, 124 on timeout, otherwise the
exit code of the command.`,
	// The parser owns -h (host) and --help, so cobra must not touch the flags.
	DisableFlagParsing:    true,
	DisableFlagsInUseLine: true,
	SilenceErrors:         true,
	SilenceUsage:          true,
	Args:                  cobra.ArbitraryArgs,
	RunE:                  runWait,
}

func init() {
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		_, err := fmt.Fprint(cmd.ErrOrStderr(), config.Usage(programName()))
		return err
	})
}

// programName is the basename the binary was invoked as.
func programName() string {
	return filepath.Base(os.Args[0])
}

func setupLogging(out io.Writer) {
	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		PartsOrder: []string{zerolog.MessageFieldName},
	}
	log.Logger = zerolog.New(output)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func setLogLevel(quiet, verbose bool) {
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	log.Error().Msgf("%s: %v", programName(), err)
	return 1
}
