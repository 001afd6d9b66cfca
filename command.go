package setup

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"strings"
)

type (
	// CmdResult holds the captured output of a finished command.
	CmdResult struct {
		Stdout   string
		Stderr   string
		ExitCode int
	}
	// Commander runs external commands. Everything the tool does to the
	// Python environment (pip, python, uv, git) goes through this interface
	// so that tests can substitute a recorder.
	Commander interface {
		Run(ctx context.Context, dir string, name string, args ...string) (CmdResult, error)
	}
	systemCommander struct{}
)

// NewCommander returns the Commander backed by the real system.
func NewCommander() Commander { return systemCommander{} }

// Run executes the command, captures stdout and stderr, and returns a
// CmdResult. A non-zero exit is not an error; the exit code is reported in
// the result. An error is only returned when the command could not be run at
// all (not found, context cancelled, ...).
func (systemCommander) Run(ctx context.Context, dir string, name string, args ...string) (CmdResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Printf("Running: %s %s", name, strings.Join(args, " "))
	err := cmd.Run()
	result := CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		log.Printf("Command failed (exit %d): %s", result.ExitCode, strings.TrimSpace(result.Stderr))
		return result, nil
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// OK reports a clean exit.
func (r CmdResult) OK() bool { return r.ExitCode == 0 }

// Output returns the trimmed stdout of the command.
func (r CmdResult) Output() string { return strings.TrimSpace(r.Stdout) }
