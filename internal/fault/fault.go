// Package fault classifies pipeline failures so callers can tell a dead
// network apart from a garbled response or a command that refused to run.
package fault

import (
	"errors"
	"fmt"
)

type Kind uint

const (
	Unknown Kind = iota
	IO
	Network
	Parse
	Safety
	Execution
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case Network:
		return "network"
	case Parse:
		return "parse"
	case Safety:
		return "safety"
	case Execution:
		return "execution"
	default:
		return "unknown"
	}
}

// ExitCode maps a kind to the process exit status. Safety rejections are a
// normal outcome and exit cleanly.
func (k Kind) ExitCode() int {
	switch k {
	case IO:
		return 2
	case Network:
		return 3
	case Parse:
		return 4
	case Execution:
		return 5
	case Safety:
		return 0
	default:
		return 1
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: k}) match any fault of kind k.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost fault in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}
