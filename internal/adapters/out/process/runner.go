// Package process implements the ProcessRunner adapter on top of os/exec.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/ltuffery/Octopus/internal/domain"
)

const (
	// DefaultMaxOutput bounds each captured stream.
	DefaultMaxOutput = 64 * 1024
	// DefaultKillGrace is how long a terminated group gets before SIGKILL.
	DefaultKillGrace = 500 * time.Millisecond
	// DefaultShell runs command lines.
	DefaultShell = "/bin/sh"
)

// Config holds the runner settings.
type Config struct {
	MaxOutput int
	KillGrace time.Duration
	Shell     string
}

// Runner implements the ProcessRunner interface.
type Runner struct {
	config Config
}

// NewRunner creates a runner, filling unset settings with defaults.
func NewRunner(config Config) *Runner {
	if config.MaxOutput <= 0 {
		config.MaxOutput = DefaultMaxOutput
	}
	if config.KillGrace <= 0 {
		config.KillGrace = DefaultKillGrace
	}
	if config.Shell == "" {
		config.Shell = DefaultShell
	}
	return &Runner{config: config}
}

// Run executes the command in its own process group and waits for it.
// When the timeout elapses the whole group is terminated and a Timeout error
// is returned together with the partial result.
func (r *Runner) Run(ctx context.Context, c domain.Command) (*domain.ProcessResult, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "process",
		zerowrap.FieldAction:  "Run",
		"command":             describe(c),
		"dir":                 c.Dir,
	})
	log := zerowrap.FromCtx(ctx)

	cmd, err := r.command(c)
	if err != nil {
		return nil, err
	}

	stdout := newBoundedBuffer(r.config.MaxOutput)
	stderr := newBoundedBuffer(r.config.MaxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.config.KillGrace
	SetProcessGroup(cmd)

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	defer cancel()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, domain.WrapError(domain.KindExecutionFailure, "run", fmt.Errorf("start %q: %w", describe(c), err))
	}
	log.Debug().Int("pid", cmd.Process.Pid).Dur("timeout", c.Timeout).Msg("process started")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	interrupted := false
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		interrupted = true
		waitErr = r.terminate(cmd.Process.Pid, done)
	}

	result := &domain.ProcessResult{
		ExitCode: exitCode(cmd),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if interrupted {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			result.TimedOut = true
			log.Warn().Dur(zerowrap.FieldDuration, result.Duration).Msg("process timed out, group killed")
			return result, domain.Errorf(domain.KindTimeout, "run", "command timed out after %s", c.Timeout)
		}
		return result, domain.WrapError(domain.KindExecutionFailure, "run", fmt.Errorf("command interrupted: %w", runCtx.Err()))
	}

	if waitErr != nil {
		log.Debug().Int("exit_code", result.ExitCode).Dur(zerowrap.FieldDuration, result.Duration).Msg("process failed")
		return result, domain.Errorf(domain.KindExecutionFailure, "run", "command exited with code %d%s", result.ExitCode, lastLine(result.Stderr))
	}

	log.Debug().Dur(zerowrap.FieldDuration, result.Duration).Msg("process finished")
	return result, nil
}

func (r *Runner) command(c domain.Command) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	switch {
	case len(c.Args) > 0:
		cmd = exec.Command(c.Args[0], c.Args[1:]...)
	case strings.TrimSpace(c.Line) != "":
		cmd = exec.Command(r.config.Shell, "-c", c.Line)
	default:
		return nil, domain.NewError(domain.KindValidation, "run", "empty command")
	}
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	return cmd, nil
}

// terminate sends SIGTERM to the group, then SIGKILL after the grace period.
func (r *Runner) terminate(pid int, done <-chan error) error {
	_ = Terminate(pid)
	select {
	case err := <-done:
		return err
	case <-time.After(r.config.KillGrace):
	}
	_ = Kill(pid)
	return <-done
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

func describe(c domain.Command) string {
	if len(c.Args) > 0 {
		return strings.Join(c.Args, " ")
	}
	return c.Line
}

// lastLine returns the last non-empty stderr line, formatted as a message suffix.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if len(line) > 200 {
			line = line[:200]
		}
		return ": " + line
	}
	return ""
}
