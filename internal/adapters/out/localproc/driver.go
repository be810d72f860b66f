// Package localproc implements the ContainerDriver port with supervised OS processes.
package localproc

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/ltuffery/Octopus/internal/adapters/out/process"
	"github.com/ltuffery/Octopus/internal/domain"
)

const (
	DefaultStopGrace = 10 * time.Second
	DefaultSettle    = 500 * time.Millisecond
)

// LogSink provides per-site output files.
type LogSink interface {
	Open(site string) io.WriteCloser
	Remove(site string) error
}

// Config holds driver settings.
type Config struct {
	// StopGrace is the delay between SIGTERM and SIGKILL.
	StopGrace time.Duration
	// Settle is how long a fresh process must survive for Start to succeed.
	Settle time.Duration
	Shell  string
}

// Driver runs each site as a process group on the host.
type Driver struct {
	config Config
	logs   LogSink

	mu    sync.Mutex
	units map[string]*unit
}

type unit struct {
	handle   string
	site     string
	cmd      *exec.Cmd
	out      io.WriteCloser
	done     chan struct{}
	exitCode int
	stopping bool
}

// New creates a Driver.
func New(config Config, logs LogSink) *Driver {
	if config.StopGrace <= 0 {
		config.StopGrace = DefaultStopGrace
	}
	if config.Settle <= 0 {
		config.Settle = DefaultSettle
	}
	if config.Shell == "" {
		config.Shell = process.DefaultShell
	}
	return &Driver{
		config: config,
		logs:   logs,
		units:  make(map[string]*unit),
	}
}

// Start launches the site's start command in its workspace.
func (d *Driver) Start(ctx context.Context, spec domain.RuntimeSpec) (string, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "localproc",
		zerowrap.FieldAction:   "Start",
		zerowrap.FieldEntityID: spec.SiteID,
	})
	log := zerowrap.FromCtx(ctx)

	if strings.TrimSpace(spec.Command) == "" {
		return "", domain.NewError(domain.KindValidation, "start unit", "site has no start command")
	}

	cmd := exec.Command(d.config.Shell, "-c", spec.Command)
	cmd.Dir = spec.Workdir
	cmd.Env = append(os.Environ(), spec.Env...)
	if spec.Port > 0 {
		cmd.Env = append(cmd.Env, "PORT="+strconv.Itoa(spec.Port))
	}
	out := d.logs.Open(spec.Name)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = d.config.StopGrace
	process.SetProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		out.Close()
		return "", domain.WrapError(domain.KindExecutionFailure, "start unit", fmt.Errorf("spawn %q: %w", spec.Command, err))
	}

	u := &unit{
		handle: fmt.Sprintf("proc-%s-%d", spec.SiteID, cmd.Process.Pid),
		site:   spec.Name,
		cmd:    cmd,
		out:    out,
		done:   make(chan struct{}),
	}
	go d.wait(u)

	d.mu.Lock()
	d.units[u.handle] = u
	d.mu.Unlock()

	select {
	case <-u.done:
		d.forget(u.handle)
		return "", domain.Errorf(domain.KindExecutionFailure, "start unit", "process exited during startup with code %d", u.exitCode)
	case <-ctx.Done():
		d.kill(u)
		d.forget(u.handle)
		return "", domain.Errorf(domain.KindTimeout, "start unit", "start interrupted: %v", ctx.Err())
	case <-time.After(d.config.Settle):
	}

	log.Info().Int("pid", cmd.Process.Pid).Str("handle", u.handle).Msg("unit started")
	return u.handle, nil
}

// Stop terminates the process group, escalating to SIGKILL after the grace period.
// Unknown handles are treated as already stopped.
func (d *Driver) Stop(ctx context.Context, handle string) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "localproc",
		zerowrap.FieldAction:  "Stop",
		"handle":              handle,
	})
	log := zerowrap.FromCtx(ctx)

	u, ok := d.lookup(handle)
	if !ok {
		log.Debug().Msg("unit not tracked, nothing to stop")
		return nil
	}

	d.mu.Lock()
	u.stopping = true
	d.mu.Unlock()

	_ = process.Terminate(u.cmd.Process.Pid)
	select {
	case <-u.done:
	case <-time.After(d.config.StopGrace):
		log.Warn().Dur("grace", d.config.StopGrace).Msg("unit ignored SIGTERM, killing")
		d.kill(u)
	case <-ctx.Done():
		d.kill(u)
	}

	d.forget(handle)
	log.Info().Msg("unit stopped")
	return nil
}

// Status reports whether the unit is alive. A unit that exited non-zero on its
// own is in error.
func (d *Driver) Status(_ context.Context, handle string) (domain.UnitState, error) {
	u, ok := d.lookup(handle)
	if !ok {
		return domain.UnitStopped, nil
	}
	select {
	case <-u.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		if u.stopping || u.exitCode == 0 {
			return domain.UnitStopped, nil
		}
		return domain.UnitError, nil
	default:
		return domain.UnitRunning, nil
	}
}

// Usage samples CPU and memory of the whole process group.
func (d *Driver) Usage(_ context.Context, handle string) (domain.ResourceUsage, error) {
	u, ok := d.lookup(handle)
	if !ok {
		return domain.ResourceUsage{}, domain.NewError(domain.KindNotFound, "usage", "unit is not running")
	}
	select {
	case <-u.done:
		return domain.ResourceUsage{}, domain.NewError(domain.KindNotFound, "usage", "unit is not running")
	default:
	}
	usage, err := groupUsage(u.cmd.Process.Pid)
	if err != nil {
		return domain.ResourceUsage{}, fmt.Errorf("sample process group %d: %w", u.cmd.Process.Pid, err)
	}
	return usage, nil
}

// Remove stops the unit and deletes its log files.
func (d *Driver) Remove(ctx context.Context, handle string, spec domain.RuntimeSpec) error {
	if handle != "" {
		if err := d.Stop(ctx, handle); err != nil {
			return err
		}
	}
	return d.logs.Remove(spec.Name)
}

// Close kills every tracked unit.
func (d *Driver) Close() error {
	d.mu.Lock()
	units := make([]*unit, 0, len(d.units))
	for _, u := range d.units {
		u.stopping = true
		units = append(units, u)
	}
	d.mu.Unlock()

	for _, u := range units {
		d.kill(u)
		d.forget(u.handle)
	}
	return nil
}

func (d *Driver) wait(u *unit) {
	_ = u.cmd.Wait()
	d.mu.Lock()
	u.exitCode = u.cmd.ProcessState.ExitCode()
	d.mu.Unlock()
	u.out.Close()
	close(u.done)
}

func (d *Driver) kill(u *unit) {
	_ = process.Kill(u.cmd.Process.Pid)
	<-u.done
}

func (d *Driver) lookup(handle string) (*unit, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.units[handle]
	return u, ok
}

func (d *Driver) forget(handle string) {
	d.mu.Lock()
	delete(d.units, handle)
	d.mu.Unlock()
}
