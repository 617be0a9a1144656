package command

import (
	"fmt"
	"strings"
)

const (
	ReasonEmpty     = "empty"
	ReasonMultiLine = "multi-line"
	reasonUnsafe    = "unsafe: contains "
)

// Decision is the outcome of the safety gate: either an allowed command or a
// rejection reason, never both.
type Decision struct {
	command string
	reason  string
	allowed bool
}

func Allowed(cmd string) Decision { return Decision{command: cmd, allowed: true} }

func Rejected(reason string) Decision { return Decision{reason: reason} }

func (d Decision) IsAllowed() bool { return d.allowed }

// Command is the exact string to run. Empty for rejections.
func (d Decision) Command() string { return d.command }

// Reason explains a rejection. Empty for allowed decisions.
func (d Decision) Reason() string { return d.reason }

// NoCommand reports a rejection caused by the completion carrying no command
// at all, as opposed to one that matched the policy.
func (d Decision) NoCommand() bool { return !d.allowed && d.reason == ReasonEmpty }

func (d Decision) String() string {
	if d.allowed {
		return fmt.Sprintf("Allowed(%q)", d.command)
	}
	return fmt.Sprintf("Rejected(%q)", d.reason)
}

// Classify applies the policy to an extracted candidate. Matching is plain
// substring containment, so "echo rm" is rejected as well.
func Classify(candidate string, p Policy) Decision {
	if candidate == "" {
		return Rejected(ReasonEmpty)
	}
	if entry, ok := p.Denylist.Match(candidate); ok {
		return Rejected(reasonUnsafe + entry)
	}
	if p.SingleLine && strings.ContainsAny(candidate, "\r\n") {
		return Rejected(ReasonMultiLine)
	}
	return Allowed(candidate)
}

// Evaluate runs Extract followed by Classify.
func Evaluate(raw string, p Policy) (string, Decision) {
	candidate := Extract(raw)
	return candidate, Classify(candidate, p)
}
