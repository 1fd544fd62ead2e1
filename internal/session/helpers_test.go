package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/audit"
	"github.com/pompomputin/wwebjs-webui-docker/internal/db"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/repository"
	"github.com/pompomputin/wwebjs-webui-docker/internal/waclient"
	"github.com/pompomputin/wwebjs-webui-docker/internal/waclient/waclienttest"
)

type sent struct {
	SessionID string // empty for global broadcasts
	Event     string
	Payload   any
}

// recorder is a Broadcaster that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []sent
}

func (r *recorder) ToSession(sessionID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{SessionID: sessionID, Event: event, Payload: payload})
}

func (r *recorder) ToAll(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{Event: event, Payload: payload})
}

func (r *recorder) find(event string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// stubFetcher counts fetches.
type stubFetcher struct {
	calls atomic.Int64
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*model.Media, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Media{Data: []byte("img"), MimeType: "image/png", Filename: "a.png"}, nil
}

type testEnv struct {
	manager  *Manager
	factory  *waclienttest.Factory
	rec      *recorder
	fetcher  *stubFetcher
	settings *repository.SettingsRepository
	trail    *lockedWriter
}

func setupTestManager(t *testing.T) (*testEnv, func()) {
	t.Helper()

	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	env := &testEnv{
		factory:  waclienttest.NewFactory(),
		rec:      &recorder{},
		fetcher:  &stubFetcher{},
		settings: repository.NewSettingsRepository(database),
		trail:    &lockedWriter{w: &bytes.Buffer{}},
	}
	env.manager = NewManager(
		env.factory,
		env.settings,
		env.fetcher,
		env.rec,
		audit.NewLoggerWithWriter(env.trail),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config{RemoveGrace: 10 * time.Millisecond, TypingDuration: time.Millisecond, EventWorkers: 4, HistorySize: 3},
	)

	cleanup := func() {
		env.manager.Close()
		database.Close()
	}
	return env, cleanup
}

// emit delivers evt from the newest handle of id and waits until it is applied.
func (e *testEnv) emit(t *testing.T, id string, evt waclient.Event) {
	t.Helper()
	h := e.factory.Last(id)
	if h == nil {
		t.Fatalf("No handle for session %s", id)
	}
	h.Emit(evt)
	e.flush(t, id)
}

func (e *testEnv) flush(t *testing.T, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.manager.Flush(ctx, id); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

// ready drives id through a full login.
func (e *testEnv) ready(t *testing.T, id string) *waclienttest.Handle {
	t.Helper()
	if _, err := e.manager.Init(context.Background(), id); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	e.emit(t, id, waclient.Event{Kind: waclient.EventChallenge, Challenge: "qr"})
	e.emit(t, id, waclient.Event{Kind: waclient.EventAuthenticated})
	e.emit(t, id, waclient.Event{Kind: waclient.EventReady})
	return e.factory.Last(id)
}

func (e *testEnv) auditKinds() []audit.Kind {
	e.trail.mu.Lock()
	data := append([]byte(nil), e.trail.w.(*bytes.Buffer).Bytes()...)
	e.trail.mu.Unlock()

	var kinds []audit.Kind
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var ev audit.Event
		if err := dec.Decode(&ev); err != nil {
			break
		}
		if ev.Kind != "" {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
