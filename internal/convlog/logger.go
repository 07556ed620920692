// Package convlog writes an optional per-session audit log of conversation
// turns as NDJSON files. Logging is asynchronous behind a bounded queue;
// when the queue is full events are dropped rather than blocking a request.
package convlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playforge/playforge/internal/domain"
)

// Config controls the audit log.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Event is one logged conversation turn.
type Event struct {
	Timestamp   time.Time     `json:"timestamp"`
	SessionID   string        `json:"session_id"`
	Role        domain.Role   `json:"role"`
	Intent      domain.Intent `json:"intent,omitempty"`
	Text        string        `json:"text"`
	GameVersion int           `json:"game_version,omitempty"`
}

// Logger records conversation events.
type Logger interface {
	Log(Event)
	Close() error
}

// New creates a logger. Returns a no-op logger when disabled.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("conversation log enabled without a directory")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create conversation log directory: %w", err)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	fl := &fileLogger{
		dir:    cfg.Dir,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go fl.run()
	return fl, nil
}

// Noop discards all events.
type Noop struct{}

func (Noop) Log(Event) {}

func (Noop) Close() error { return nil }

type fileLogger struct {
	dir    string
	queue  chan Event
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// Log implements Logger. Non-blocking; drops when the queue is full.
func (l *fileLogger) Log(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case l.queue <- ev:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"session_id", ev.SessionID)
	}
}

// Close implements Logger. Flushes queued events before returning.
func (l *fileLogger) Close() error {
	l.closeOnce.Do(func() {
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *fileLogger) run() {
	defer close(l.done)
	for ev := range l.queue {
		if err := l.write(ev); err != nil {
			l.logger.Warn("conversation log write failed",
				"session_id", ev.SessionID, "error", err)
		}
	}
}

func (l *fileLogger) write(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	path := filepath.Join(l.dir, ev.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append log line: %w", err)
	}
	return nil
}
