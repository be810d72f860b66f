package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// MaxExecutionOutput bounds the captured text kept on an Execution.
const MaxExecutionOutput = 64 * 1024

// ParentKind tells which entity an Execution belongs to.
type ParentKind string

const (
	ParentSite ParentKind = "site"
	ParentCron ParentKind = "cron"
)

// ParentRef references the site or cron job that produced an Execution.
type ParentRef struct {
	Kind ParentKind
	ID   string
}

// SiteParent references a site.
func SiteParent(id string) ParentRef { return ParentRef{Kind: ParentSite, ID: id} }

// CronParent references a cron job.
func CronParent(id string) ParentRef { return ParentRef{Kind: ParentCron, ID: id} }

// ExecutionStatus is the state of one recorded run.
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// ExecutionTrigger tells what started a run.
type ExecutionTrigger string

const (
	TriggerBuild    ExecutionTrigger = "build"
	TriggerRebuild  ExecutionTrigger = "rebuild"
	TriggerStart    ExecutionTrigger = "start"
	TriggerStop     ExecutionTrigger = "stop"
	TriggerRestart  ExecutionTrigger = "restart"
	TriggerDelete   ExecutionTrigger = "delete"
	TriggerSchedule ExecutionTrigger = "schedule"
	TriggerManual   ExecutionTrigger = "manual"
)

// Execution is one recorded run of a lifecycle step or cron firing.
type Execution struct {
	ID          string
	Parent      ParentRef
	Trigger     ExecutionTrigger
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      ExecutionStatus
	Output      string
	Error       string
	FailureKind ErrorKind
	ExitCode    int

	outputTruncated bool
}

// NewExecution starts a running execution.
func NewExecution(id string, parent ParentRef, trigger ExecutionTrigger, now time.Time) *Execution {
	return &Execution{
		ID:        id,
		Parent:    parent,
		Trigger:   trigger,
		StartedAt: now,
		Status:    ExecutionRunning,
	}
}

// AppendOutput adds captured text, keeping the output bounded. Once the
// output has been truncated further text is discarded.
func (e *Execution) AppendOutput(text string) {
	if text == "" || e.outputTruncated {
		return
	}
	if e.Output != "" && e.Output[len(e.Output)-1] != '\n' {
		e.Output += "\n"
	}
	combined := e.Output + text
	e.Output = TruncateOutput(combined, MaxExecutionOutput)
	e.outputTruncated = len(combined) > MaxExecutionOutput
}

// Succeed finishes the execution successfully.
func (e *Execution) Succeed(now time.Time) {
	e.finish(now)
	e.Status = ExecutionSuccess
}

// Fail finishes the execution with err.
func (e *Execution) Fail(now time.Time, err error) {
	e.finish(now)
	e.Status = ExecutionFailed
	if err != nil {
		e.Error = err.Error()
		e.FailureKind = KindOf(err)
		if e.FailureKind == "" {
			e.FailureKind = KindExecutionFailure
		}
	}
}

func (e *Execution) finish(now time.Time) {
	t := now
	e.FinishedAt = &t
}

// Duration is the elapsed time of a finished execution, zero while running.
func (e *Execution) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Clone returns a deep copy.
func (e *Execution) Clone() *Execution {
	if e == nil {
		return nil
	}
	c := *e
	if e.FinishedAt != nil {
		t := *e.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// TruncateOutput keeps the head of s within max bytes and appends a marker.
// The cut never splits a UTF-8 sequence.
func TruncateOutput(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf("\n...[truncated %d bytes]", len(s)-cut)
}
