package vici

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("vici: session closed")

// ProtocolError reports a malformed or unexpected packet. It is scoped to
// one exchange; the session stays usable unless the transport failed too.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("vici: protocol error in %s: %s", e.Op, e.Reason)
}

// UnavailableError reports that the daemon could not be reached or did not
// answer in time. The next call redials.
type UnavailableError struct {
	Socket string
	Op     string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("vici: %s on %s unavailable: %v", e.Op, e.Socket, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// CommandError is a failure the daemon reported for a named command.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("vici: %s rejected", e.Command)
	}
	return fmt.Sprintf("vici: %s rejected: %s", e.Command, e.Message)
}
