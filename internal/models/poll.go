package models

import "time"

// PollState is the terminal state of a poll loop.
type PollState int

// Terminal poll states.
const (
	PollConnected PollState = iota
	PollTimedOut
)

func (s PollState) String() string {
	switch s {
	case PollConnected:
		return "connected"
	case PollTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// PollOutcome holds the result of waiting for a target.
type PollOutcome struct {
	State    PollState
	Elapsed  time.Duration
	Attempts int
	LastErr  error // last dial error, nil once connected
}

// Connected reports whether the target accepted a connection.
func (o PollOutcome) Connected() bool {
	return o.State == PollConnected
}

// ElapsedSeconds returns the elapsed time in whole seconds.
func (o PollOutcome) ElapsedSeconds() int {
	return int(o.Elapsed / time.Second)
}

// CommandResult holds the result of running the trailing command.
type CommandResult struct {
	ExitCode int
	Duration time.Duration
}
