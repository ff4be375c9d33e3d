// Package config turns the command line into a WaitConfig.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/wait-for-it/internal/models"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults applied when the corresponding flag is absent.
const (
	DefaultTimeout        = 15 // seconds
	DefaultBroadcastIP    = "255.255.255.255"
	DefaultInterval       = time.Second
	DefaultAttemptTimeout = time.Second
)

// MissingTargetMessage is reported when either host or port is absent.
const MissingTargetMessage = "Error: you need to provide a host and port to test."

// ErrHelp is returned when --help is given.
var ErrHelp = errors.New("help requested")

// ArgumentError is a fatal command-line error. Message is printed as is.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

func argumentErrorf(format string, args ...any) *ArgumentError {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// Parser handles command-line parsing. A Parser is good for one Parse call.
type Parser struct {
	fs *pflag.FlagSet
	v  *viper.Viper
}

// NewParser creates a new parser for the program called name.
func NewParser(name string) *Parser {
	fs := newFlagSet(name)
	v := viper.New()
	// BindPFlags only fails on a nil flag set.
	_ = v.BindPFlags(fs)
	return &Parser{fs: fs, v: v}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringP("host", "h", "", "Host or IP under test")
	fs.StringP("port", "p", "", "TCP port under test")
	fs.IntP("timeout", "t", DefaultTimeout, "Timeout in seconds, zero for no timeout")
	fs.BoolP("strict", "s", false, "Only execute subcommand if the test succeeds")
	fs.BoolP("quiet", "q", false, "Don't output any status messages")
	fs.BoolP("verbose", "v", false, "Report every failed connection attempt")
	fs.String("wake", "", "Send a Wake-on-LAN packet to this MAC address before waiting")
	fs.String("broadcast", DefaultBroadcastIP, "Broadcast address for the Wake-on-LAN packet")
	fs.Bool("help", false, "Show this help")
	return fs
}

// Usage renders the help text for the program called name.
func Usage(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n    %s host:port [-s] [-t timeout] [-- command args]\n", name)
	b.WriteString("    Alternatively, you specify the host and port with --host and --port\n\n")
	b.WriteString(newFlagSet(name).FlagUsages())
	b.WriteString("  -- COMMAND ARGS          Execute command with args after the test finishes\n")
	return b.String()
}

// Parse converts args (without the program name) into a WaitConfig.
//
//nolint:gocyclo // argument validation checks each field in turn
func (p *Parser) Parse(args []string) (*models.WaitConfig, error) {
	if err := p.fs.Parse(args); err != nil {
		return nil, argumentErrorf("Error: %s", err)
	}

	if p.v.GetBool("help") {
		return nil, ErrHelp
	}

	positional, command := p.splitAtDash()

	host := p.v.GetString("host")
	port := p.v.GetString("port")

	// A host:port positional overrides --host and --port.
	targets := 0
	for _, arg := range positional {
		if !strings.Contains(arg, ":") {
			return nil, argumentErrorf("Unknown argument: %s", arg)
		}
		targets++
		if targets > 1 {
			return nil, argumentErrorf("Error: only one host:port may be given, got %q", arg)
		}

		h, pt, err := net.SplitHostPort(arg)
		if err != nil {
			return nil, argumentErrorf("Error: invalid host:port %q", arg)
		}
		host, port = h, pt
	}

	if host == "" || port == "" {
		return nil, &ArgumentError{Message: MissingTargetMessage}
	}

	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return nil, argumentErrorf("Error: invalid port %q", port)
	}

	timeout := p.v.GetInt("timeout")
	if timeout < 0 {
		return nil, argumentErrorf("Error: timeout must not be negative, got %d", timeout)
	}

	cfg := &models.WaitConfig{
		Target:         models.WaitTarget{Host: host, Port: portNum},
		Timeout:        time.Duration(timeout) * time.Second,
		Interval:       DefaultInterval,
		AttemptTimeout: DefaultAttemptTimeout,
		Quiet:          p.v.GetBool("quiet"),
		Strict:         p.v.GetBool("strict"),
		Verbose:        p.v.GetBool("verbose"),
		Command:        command,
	}

	if mac := p.v.GetString("wake"); mac != "" {
		if _, err := net.ParseMAC(mac); err != nil {
			return nil, argumentErrorf("Error: invalid MAC address %q", mac)
		}
		broadcast := p.v.GetString("broadcast")
		if net.ParseIP(broadcast) == nil {
			return nil, argumentErrorf("Error: invalid broadcast address %q", broadcast)
		}
		cfg.WOL = &models.WOLConfig{
			MACAddress:  mac,
			BroadcastIP: broadcast,
		}
	}

	return cfg, nil
}

// splitAtDash separates positionals from the command that follows "--".
func (p *Parser) splitAtDash() (positional, command []string) {
	rest := p.fs.Args()
	dash := p.fs.ArgsLenAtDash()
	if dash < 0 {
		return rest, nil
	}
	if dash < len(rest) {
		command = append([]string(nil), rest[dash:]...)
	}
	return rest[:dash], command
}
