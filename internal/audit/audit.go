// Package audit records session lifecycle transitions as JSON lines.
//
// A trail starts with a header line identifying the process run, followed by
// one line per event:
//
//	{"run":"3f1c...","startedAt":"2024-07-16T08:40:21Z"}
//	{"t":1.25,"ts":"2024-07-16T08:40:22Z","session":"A","kind":"ready"}
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names a recorded transition.
type Kind string

const (
	KindInit          Kind = "init"
	KindChallenge     Kind = "challenge"
	KindAuthenticated Kind = "authenticated"
	KindReady         Kind = "ready"
	KindDisconnected  Kind = "disconnected"
	KindAuthFailure   Kind = "auth_failure"
	KindInitError     Kind = "init_error"
	KindSelfHeal      Kind = "self_heal"
	KindRemoved       Kind = "removed"
)

// Header is the first line of a trail.
type Header struct {
	Run       string    `json:"run"`
	StartedAt time.Time `json:"startedAt"`
}

// Event is one recorded transition.
type Event struct {
	TimeOffset float64   `json:"t"`
	Timestamp  time.Time `json:"ts"`
	SessionID  string    `json:"session"`
	Kind       Kind      `json:"kind"`
	Status     string    `json:"status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Logger appends events to a trail. A nil *Logger discards everything.
type Logger struct {
	writer    io.Writer
	file      *os.File // only set if we own the file
	run       string
	startTime time.Time
	mu        sync.Mutex
}

// NewLogger opens (or creates) the trail at path for appending and writes a header.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	l := newLogger(file)
	l.file = file
	if err := l.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return l, nil
}

// NewLoggerWithWriter creates a Logger that writes to w.
// This is useful for testing.
func NewLoggerWithWriter(w io.Writer) *Logger {
	l := newLogger(w)
	_ = l.writeHeader()
	return l
}

func newLogger(w io.Writer) *Logger {
	return &Logger{
		writer:    w,
		run:       uuid.NewString(),
		startTime: time.Now(),
	}
}

// Run returns the identifier written in the header.
func (l *Logger) Run() string {
	if l == nil {
		return ""
	}
	return l.run
}

func (l *Logger) writeHeader() error {
	return l.writeLine(Header{Run: l.run, StartedAt: l.startTime.UTC()})
}

// Record appends one event.
func (l *Logger) Record(sessionID string, kind Kind, status, detail string) error {
	if l == nil {
		return nil
	}
	now := time.Now()
	return l.writeLine(Event{
		TimeOffset: now.Sub(l.startTime).Seconds(),
		Timestamp:  now.UTC(),
		SessionID:  sessionID,
		Kind:       kind,
		Status:     status,
		Detail:     detail,
	})
}

func (l *Logger) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal audit line: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit line: %w", err)
	}
	return nil
}

// Close closes the trail file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
