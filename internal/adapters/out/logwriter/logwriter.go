// Package logwriter stores the output of site runtime units in rotated files.
package logwriter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/zerowrap"
	"github.com/docker/docker/pkg/stdcopy"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the configuration for the log writer.
type Config struct {
	// Dir is the directory where site logs are stored.
	Dir string
	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int
	// MaxBackups is the number of old log files to retain.
	MaxBackups int
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int
}

// LogWriter hands out per-site rotated writers and collects container streams.
type LogWriter struct {
	config  Config
	streams map[string]*streamInfo
	mu      sync.Mutex
}

type streamInfo struct {
	unitID string
	site   string
	stream io.ReadCloser
	logger *lumberjack.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a LogWriter and its directory.
func New(config Config) (*LogWriter, error) {
	if err := os.MkdirAll(config.Dir, 0700); err != nil {
		return nil, err
	}
	return &LogWriter{
		config:  config,
		streams: make(map[string]*streamInfo),
	}, nil
}

// Path returns the active log file of a site.
func (w *LogWriter) Path(site string) string {
	return filepath.Join(w.config.Dir, sanitizeName(site)+".log")
}

// Open returns a rotated writer appending to the site's log file.
func (w *LogWriter) Open(site string) io.WriteCloser {
	return w.logger(site)
}

// StartLogging copies a multiplexed container log stream into the site's file
// until the stream ends or StopLogging is called.
func (w *LogWriter) StartLogging(ctx context.Context, unitID, site string, stream io.ReadCloser) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "logwriter",
		zerowrap.FieldAction:   "StartLogging",
		zerowrap.FieldEntityID: unitID,
		"site":                 site,
	})
	log := zerowrap.FromCtx(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.streams[unitID]; ok {
		w.stopStreamLocked(existing)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	info := &streamInfo{
		unitID: unitID,
		site:   site,
		stream: stream,
		logger: w.logger(site),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	w.streams[unitID] = info

	go w.copyStream(streamCtx, info, log)

	log.Debug().Str("path", w.Path(site)).Msg("started unit log collection")
	return nil
}

// StopLogging stops collection for a unit.
func (w *LogWriter) StopLogging(unitID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if info, ok := w.streams[unitID]; ok {
		w.stopStreamLocked(info)
		delete(w.streams, unitID)
	}
	return nil
}

// Remove deletes the site's log file and its rotated backups.
func (w *LogWriter) Remove(site string) error {
	base := sanitizeName(site)
	// lumberjack names backups <name>-<timestamp>.log[.gz]
	backups, err := filepath.Glob(filepath.Join(w.config.Dir, base+"-[0-9][0-9][0-9][0-9]-*.log*"))
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range append(backups, w.Path(site)) {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops all collection.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for unitID, info := range w.streams {
		w.stopStreamLocked(info)
		delete(w.streams, unitID)
	}
	return nil
}

func (w *LogWriter) logger(site string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   w.Path(site),
		MaxSize:    w.config.MaxSize,
		MaxBackups: w.config.MaxBackups,
		MaxAge:     w.config.MaxAge,
		Compress:   true,
	}
}

// stopStreamLocked must be called with the lock held.
func (w *LogWriter) stopStreamLocked(info *streamInfo) {
	info.cancel()
	info.stream.Close()
	<-info.done
	info.logger.Close()
}

func (w *LogWriter) copyStream(ctx context.Context, info *streamInfo, log zerowrap.Logger) {
	defer close(info.done)

	// Both streams go to the same file.
	_, err := stdcopy.StdCopy(info.logger, info.logger, info.stream)
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("unit", info.unitID).Msg("unit log stream ended with error")
	}
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
