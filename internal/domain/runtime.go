package domain

import "time"

// UnitState is the observed state of a site's runtime unit.
type UnitState string

const (
	UnitRunning UnitState = "running"
	UnitStopped UnitState = "stopped"
	UnitError   UnitState = "error"
)

// ResourceUsage is a resource sample of a runtime unit.
type ResourceUsage struct {
	CPUPercent  float64
	MemoryBytes uint64
}

// RuntimeSpec describes the unit a ContainerDriver starts for a site.
type RuntimeSpec struct {
	SiteID  string
	Name    string
	Workdir string
	Command string
	Env     []string
	Port    int
	Image   string
}

// Command is a process invocation handled by the ProcessRunner.
// When Args is set it is executed directly, otherwise Line runs through the shell.
type Command struct {
	Line    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// ProcessResult is the outcome of a finished (or killed) process.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Combined returns stdout followed by stderr.
func (r *ProcessResult) Combined() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Stdout == "":
		return r.Stderr
	case r.Stderr == "":
		return r.Stdout
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}
