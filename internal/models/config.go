// Package models contains the data structures used throughout wait-for-it.
package models

import (
	"net"
	"strconv"
	"time"
)

// WaitTarget is the endpoint being polled.
type WaitTarget struct {
	Host string
	Port int
}

// String renders the target the way it appears in status messages.
func (t WaitTarget) String() string {
	return t.Host + ":" + strconv.Itoa(t.Port)
}

// Address renders a dialable address, bracketing IPv6 literals.
func (t WaitTarget) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// WaitConfig holds the complete configuration for one invocation.
type WaitConfig struct {
	Target         WaitTarget
	Timeout        time.Duration // zero waits forever
	Interval       time.Duration // pause between failed attempts
	AttemptTimeout time.Duration // upper bound for a single dial
	Quiet          bool
	Strict         bool // only run Command if the target became available
	Verbose        bool
	Command        []string   // empty if no trailing command
	WOL            *WOLConfig // nil if not configured
}

// HasCommand reports whether a trailing command was supplied.
func (c WaitConfig) HasCommand() bool {
	return len(c.Command) > 0
}

// TimeoutSeconds returns the timeout in whole seconds.
func (c WaitConfig) TimeoutSeconds() int {
	return int(c.Timeout / time.Second)
}
