package swan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luscis/ipsecman/pkg/config"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/vici"
)

type Kind string

const (
	KindNone           Kind = ""
	KindProtocol       Kind = "ProtocolError"
	KindUnavailable    Kind = "ConnectionUnavailable"
	KindRejected       Kind = "CommandRejected"
	KindValidation     Kind = "ValidationError"
	KindPartialUpdate  Kind = "PartialUpdateFailure"
	KindCommandTimeout Kind = "ExternalCommandTimeout"
	KindCommandFailure Kind = "ExternalCommandFailure"
	KindNotFound       Kind = "NotFound"
	KindUnknown        Kind = "Unknown"
)

type ValidationError = config.ValidationError

// PartialUpdateError means an edit unloaded the old connection but could
// not load the new one. Neither is loaded afterwards.
type PartialUpdateError struct {
	Name    string
	NewName string
	Err     error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("%s unloaded but %s not created: %v", e.Name, e.NewName, e.Err)
}

func (e *PartialUpdateError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("connection %s not found", e.Name)
}

// CommandTimeoutError is an external command killed at its deadline.
type CommandTimeoutError struct {
	Args    []string
	Timeout time.Duration
	Stdout  string
	Stderr  string
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("%s: killed after %s", strings.Join(e.Args, " "), e.Timeout)
}

type CommandFailureError struct {
	Args   []string
	Code   int
	Stdout string
	Stderr string
	Err    error
}

func (e *CommandFailureError) Error() string {
	msg := fmt.Sprintf("%s: exit %d", strings.Join(e.Args, " "), e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandFailureError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. A partial update wins over the cause it wraps.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		partial  *PartialUpdateError
		invalid  *ValidationError
		timeout  *CommandTimeoutError
		failure  *CommandFailureError
		notFound *NotFoundError
		rejected *vici.CommandError
		down     *vici.UnavailableError
		proto    *vici.ProtocolError
	)
	switch {
	case errors.As(err, &partial):
		return KindPartialUpdate
	case errors.As(err, &invalid):
		return KindValidation
	case errors.As(err, &timeout):
		return KindCommandTimeout
	case errors.As(err, &failure):
		return KindCommandFailure
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &rejected):
		return KindRejected
	case errors.As(err, &down), errors.Is(err, vici.ErrClosed):
		return KindUnavailable
	case errors.As(err, &proto):
		return KindProtocol
	}
	return KindUnknown
}

func commandOutput(err error) string {
	var (
		timeout *CommandTimeoutError
		failure *CommandFailureError
	)
	var out []string
	switch {
	case errors.As(err, &timeout):
		out = []string{timeout.Stdout, timeout.Stderr}
	case errors.As(err, &failure):
		out = []string{failure.Stdout, failure.Stderr}
	}
	var lines []string
	for _, o := range out {
		if o != "" {
			lines = append(lines, o)
		}
	}
	return strings.Join(lines, "\n")
}

// NewResult renders the outcome of action on name.
func NewResult(action, name string, output string, err error) schema.Result {
	r := schema.Result{
		Name:   name,
		Action: action,
		Output: output,
	}
	if err != nil {
		r.Kind = string(KindOf(err))
		r.Message = err.Error()
		if out := commandOutput(err); out != "" {
			r.Output = out
		}
	}
	return r
}
