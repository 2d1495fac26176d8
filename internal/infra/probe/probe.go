// Package probe runs external commands with a hard wall-clock timeout and a
// classified outcome, so callers can tell "tool not installed" apart from
// "tool broken" without inspecting raw exec errors.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrTimedOut means the command exceeded its timeout budget and was killed.
	ErrTimedOut = errors.New("probe: command timed out")

	// ErrNotFound means the command binary does not exist on PATH.
	ErrNotFound = errors.New("probe: command not found")
)

// Outcome captures the result of one completed external command.
// ExitCode is non-zero when the command ran but failed; callers decide
// whether that is an error for their purposes.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes external commands. The interface exists so adapters can be
// tested against canned outcomes without spawning processes.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, command string, args ...string) (Outcome, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes command with args, enforcing timeout. On expiry the process is
// killed and ErrTimedOut returned. A non-zero exit is not an error: the
// Outcome carries the exit code and both output streams. No retries happen at
// this layer.
func (r *ExecRunner) Run(ctx context.Context, timeout time.Duration, command string, args ...string) (Outcome, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	outcome := Outcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return outcome, nil
	}

	// Timeout wins over whatever error the killed process produced.
	if runCtx.Err() == context.DeadlineExceeded {
		log.Debug().
			Str("command", command).
			Dur("timeout", timeout).
			Msg("Command timed out and was killed")
		return Outcome{}, ErrTimedOut
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
		return outcome, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		log.Debug().Str("command", command).Msg("Command not found")
		return Outcome{}, ErrNotFound
	}

	return Outcome{}, fmt.Errorf("probe: spawn %s: %w", command, err)
}
