package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"voxsh/internal/command"
	"voxsh/internal/fault"
)

const DefaultShell = "bash"

// Executor hands accepted commands to a shell as a single -c argument.
type Executor struct {
	shell string
	dir   string
}

func NewExecutor(shell string) *Executor {
	if shell == "" {
		shell = DefaultShell
	}
	return &Executor{shell: shell}
}

// InDir runs commands from dir instead of the current working directory.
func (e *Executor) InDir(dir string) *Executor {
	e.dir = dir
	return e
}

type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Execute runs an allowed decision. A rejected decision runs nothing and
// comes back as a safety fault carrying its reason. A launch failure or a
// non-zero exit is an execution fault; the result is still returned so the
// caller can report stderr.
func (e *Executor) Execute(ctx context.Context, d command.Decision) (*Result, error) {
	if !d.IsAllowed() {
		return nil, fault.Newf(fault.Safety, "execute", "rejected: %s", d.Reason())
	}

	// the command string is passed through untouched
	cmd := exec.CommandContext(ctx, e.shell, "-c", d.Command())
	cmd.Dir = e.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := &Result{
		Command: d.Command(),
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fault.New(fault.Execution, "execute",
				fmt.Errorf("exit status %d: %s", res.ExitCode, res.Stderr))
		}
		res.ExitCode = -1
		return res, fault.New(fault.Execution, "execute", fmt.Errorf("launch %s: %w", e.shell, err))
	}

	return res, nil
}
