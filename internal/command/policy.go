package command

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Denylist is an ordered, immutable set of literal substrings that mark a
// command as unsafe.
type Denylist struct {
	entries []string
}

func NewDenylist(entries ...string) Denylist {
	return Denylist{entries: append([]string(nil), entries...)}
}

// DefaultDenylist covers recursive or forced deletes, permission and
// ownership changes, bulk copy/move and disk wiping. Longer entries come
// first so the reported match is the most specific one.
func DefaultDenylist() Denylist {
	return NewDenylist(
		"rm -rf",
		"rm -fr",
		"rm -r",
		"rm",
		"chmod",
		"chown",
		"chgrp",
		"mv",
		"cp",
		"dd if=",
		"mkfs",
		"shred",
		"sudo",
	)
}

func (d Denylist) Entries() []string {
	return append([]string(nil), d.entries...)
}

func (d Denylist) Len() int { return len(d.entries) }

// Match returns the first entry contained in cmd.
func (d Denylist) Match(cmd string) (string, bool) {
	for _, e := range d.entries {
		if strings.Contains(cmd, e) {
			return e, true
		}
	}
	return "", false
}

// Policy is the safety configuration handed to Classify.
type Policy struct {
	Denylist Denylist
	// SingleLine rejects multi-line candidates. Off by default; bodies are
	// otherwise passed to the shell exactly as extracted.
	SingleLine bool
}

func DefaultPolicy() Policy {
	return Policy{Denylist: DefaultDenylist()}
}

type policyFile struct {
	Denylist   []string `yaml:"denylist"`
	SingleLine bool     `yaml:"single_line"`
}

// LoadPolicy reads a YAML policy file:
//
//	denylist:
//	  - "rm"
//	  - "curl"
//	single_line: true
//
// A missing or empty denylist keeps the built-in one.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (Policy, error) {
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	p := Policy{SingleLine: pf.SingleLine}
	if len(pf.Denylist) == 0 {
		p.Denylist = DefaultDenylist()
		return p, nil
	}

	for i, e := range pf.Denylist {
		// an empty substring would match every command
		if e == "" {
			return Policy{}, fmt.Errorf("parse policy: denylist entry %d is empty", i)
		}
	}
	p.Denylist = NewDenylist(pf.Denylist...)
	return p, nil
}
