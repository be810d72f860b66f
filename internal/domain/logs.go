package domain

import "time"

// LogLevel is the severity of an execution log entry.
type LogLevel string

const (
	LogDebug   LogLevel = "debug"
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// LogSource tells which component emitted an entry.
type LogSource string

const (
	LogSourceSite    LogSource = "site"
	LogSourceCron    LogSource = "cron"
	LogSourceWebhook LogSource = "webhook"
	LogSourceSystem  LogSource = "system"
)

// LogEntry is one append-only record of the execution log.
type LogEntry struct {
	ID          string
	Timestamp   time.Time
	Level       LogLevel
	Source      LogSource
	SubjectID   string
	ExecutionID string
	Action      string
	Kind        ErrorKind
	Message     string
	Metadata    map[string]string
	Duration    time.Duration
}

// LogFilter selects entries from the execution log.
// Zero values match everything. Limit <= 0 means no limit.
type LogFilter struct {
	Level     LogLevel
	Source    LogSource
	SubjectID string
	Kind      ErrorKind
	Search    string
	From      time.Time
	To        time.Time
	Limit     int
}

// LogStats summarises a set of entries.
type LogStats struct {
	Total       int
	Errors      int
	Warnings    int
	Info        int
	Debug       int
	AvgDuration time.Duration
}
