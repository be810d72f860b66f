// Package execlog implements the ExecutionLog port as a bounded in-memory ring
// with an optional rotated JSON lines file.
package execlog

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ltuffery/Octopus/internal/domain"
)

// DefaultCapacity is the number of entries kept in memory.
const DefaultCapacity = 10000

// FileConfig configures the JSON lines sink.
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// Config holds the store settings.
type Config struct {
	Capacity int
	File     FileConfig
}

// Store keeps the most recent entries. Once full, the oldest entry is overwritten.
type Store struct {
	mu       sync.RWMutex
	entries  []domain.LogEntry
	next     int
	size     int
	file     *lumberjack.Logger
	encoder  *json.Encoder
	nowFn    func() time.Time
	newID    func() string
	capacity int
}

// record is the on-disk shape of an entry.
type record struct {
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
	DurationMS  int64             `json:"duration_ms,omitempty"`
}

// New creates a Store.
func New(config Config) *Store {
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	s := &Store{
		entries:  make([]domain.LogEntry, config.Capacity),
		capacity: config.Capacity,
		nowFn:    time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	if config.File.Enabled && config.File.Path != "" {
		s.file = &lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSize,
			MaxBackups: config.File.MaxBackups,
			MaxAge:     config.File.MaxAge,
			Compress:   true,
		}
		s.encoder = json.NewEncoder(s.file)
	}
	return s
}

// Append stores an entry, filling its ID and timestamp when unset.
func (s *Store) Append(_ context.Context, entry domain.LogEntry) error {
	if entry.ID == "" {
		entry.ID = s.newID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.nowFn()
	}
	entry.Metadata = copyMetadata(entry.Metadata)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[s.next] = entry
	s.next = (s.next + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}

	if s.encoder != nil {
		return s.encoder.Encode(toRecord(entry))
	}
	return nil
}

// Query returns matching entries, newest first.
func (s *Store) Query(_ context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	result := make([]domain.LogEntry, 0)
	for i := 0; i < s.size; i++ {
		idx := (s.next - 1 - i + s.capacity) % s.capacity
		entry := s.entries[idx]
		if !matches(entry, filter, search) {
			continue
		}
		entry.Metadata = copyMetadata(entry.Metadata)
		result = append(result, entry)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// Close flushes the file sink.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

func matches(e domain.LogEntry, f domain.LogFilter, search string) bool {
	switch {
	case f.Level != "" && e.Level != f.Level:
		return false
	case f.Source != "" && e.Source != f.Source:
		return false
	case f.SubjectID != "" && e.SubjectID != f.SubjectID:
		return false
	case f.Kind != "" && e.Kind != f.Kind:
		return false
	case !f.From.IsZero() && e.Timestamp.Before(f.From):
		return false
	case !f.To.IsZero() && e.Timestamp.After(f.To):
		return false
	}
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), search) ||
		strings.Contains(strings.ToLower(e.Action), search)
}

func toRecord(e domain.LogEntry) record {
	return record{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Level:       string(e.Level),
		Source:      string(e.Source),
		SubjectID:   e.SubjectID,
		ExecutionID: e.ExecutionID,
		Action:      e.Action,
		Kind:        string(e.Kind),
		Message:     e.Message,
		Metadata:    e.Metadata,
		DurationMS:  e.Duration.Milliseconds(),
	}
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
