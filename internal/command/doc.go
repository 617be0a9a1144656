// Package command turns untrusted model output into a run-or-don't decision.
//
// Extract pulls the body of the first ```bash fenced block out of a
// completion. Classify then checks it against a Policy: an empty candidate or
// one containing any Denylist entry as a substring is rejected, anything else
// is allowed verbatim. Both functions are pure and safe for concurrent use.
//
// The denylist is a blunt safety net, not a parser. It over-blocks on
// purpose ("echo rm" is rejected) and does not sandbox what it lets through.
package command
