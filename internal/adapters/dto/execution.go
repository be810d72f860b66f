package dto

import "time"

// Execution is the API view of one recorded run.
type Execution struct {
	ID          string     `json:"id"`
	ParentKind  string     `json:"parent_kind"`
	ParentID    string     `json:"parent_id"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	DurationMs  int64      `json:"duration_ms"`
	ExitCode    int        `json:"exit_code"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	FailureKind string     `json:"failure_kind,omitempty"`
}

// ExecutionsResponse lists executions, newest first.
type ExecutionsResponse struct {
	Executions []Execution `json:"executions"`
}
