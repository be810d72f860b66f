package dto

import "time"

// LogEntry is the API view of an execution log entry.
type LogEntry struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Level       string            `json:"level"`
	Source      string            `json:"source"`
	SubjectID   string            `json:"subject_id,omitempty"`
	ExecutionID string            `json:"execution_id,omitempty"`
	Action      string            `json:"action,omitempty"`
	Kind        string            `json:"kind,omitempty"`
	Message     string            `json:"message"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	DurationMs  int64             `json:"duration_ms,omitempty"`
}

// LogsResponse lists log entries, newest first.
type LogsResponse struct {
	Entries []LogEntry `json:"entries"`
}

// LogStatsResponse summarises log entries.
type LogStatsResponse struct {
	Total         int   `json:"total"`
	Errors        int   `json:"errors"`
	Warnings      int   `json:"warnings"`
	Info          int   `json:"info"`
	Debug         int   `json:"debug"`
	AvgDurationMs int64 `json:"avg_duration_ms"`
}
