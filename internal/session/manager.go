// Package session owns the lifecycle of messaging sessions: it creates and
// destroys protocol-client handles, applies their events to the registry in
// order, and exposes the commands that run against a ready session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/audit"
	"github.com/pompomputin/wwebjs-webui-docker/internal/buffer"
	"github.com/pompomputin/wwebjs-webui-docker/internal/eventbus"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/registry"
	"github.com/pompomputin/wwebjs-webui-docker/internal/waclient"
)

// SettingsStore persists per-session toggles.
type SettingsStore interface {
	Get(ctx context.Context, sessionID string) (model.Settings, error)
	Save(ctx context.Context, sessionID string, s model.Settings) error
}

// MediaFetcher downloads remote attachments.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (*model.Media, error)
}

// Config holds configuration for the session manager.
type Config struct {
	// RemoveGrace is waited between a successful logout and the forced destroy.
	RemoveGrace time.Duration
	// TypingDuration is how long the composing indicator is shown.
	TypingDuration time.Duration
	// EventWorkers is the number of event bus lanes.
	EventWorkers int
	// SideEffectTimeout bounds presence and read-receipt calls made in reaction to events.
	SideEffectTimeout time.Duration
	// HistorySize is how many recent inbound messages are replayed to a joining subscriber.
	HistorySize int
}

// Manager manages messaging sessions.
type Manager struct {
	registry    *registry.Registry
	factory     waclient.Factory
	settings    SettingsStore
	fetcher     MediaFetcher
	broadcaster Broadcaster
	trail       *audit.Logger
	logger      *slog.Logger
	cfg         Config

	bus *eventbus.Bus[envelope]
	gen atomic.Uint64

	// settingsMu orders settings writes against the settings snapshot taken at init.
	settingsMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// envelope tags an event with the handle generation that produced it.
type envelope struct {
	gen   uint64
	event waclient.Event
}

// NewManager creates a new session manager. broadcaster, fetcher and trail may be nil.
func NewManager(factory waclient.Factory, settings SettingsStore, fetcher MediaFetcher, broadcaster Broadcaster, trail *audit.Logger, logger *slog.Logger, cfg Config) *Manager {
	if cfg.EventWorkers <= 0 {
		cfg.EventWorkers = 8
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = 30 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 20
	}
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		registry:    registry.New(),
		factory:     factory,
		settings:    settings,
		fetcher:     fetcher,
		broadcaster: broadcaster,
		trail:       trail,
		logger:      logger.With("component", "session"),
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
	}
	m.bus = eventbus.New(cfg.EventWorkers, 256, m.handleEvent)
	return m
}

// Init starts a session, or acknowledges one that is already starting or running.
// Failures after input validation are reported through events, not returned.
func (m *Manager) Init(ctx context.Context, sessionID string) (*model.InitResult, error) {
	if err := model.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	log := m.logger.With("session_id", sessionID)

	if rec, ok := m.registry.Get(sessionID); ok {
		if rec.InitInFlight && rec.Handle == nil {
			// Still constructing the client.
			return inProgress(rec), nil
		}
		if rec.Handle != nil {
			state, err := rec.Handle.State(ctx)
			if err == nil && (rec.InitInFlight || !rec.Status.Live()) {
				return inProgress(rec), nil
			}
			if err == nil {
				return &model.InitResult{
					Status:   rec.Status,
					Existing: true,
					State:    state,
					Message:  fmt.Sprintf("Session '%s' is already active.", sessionID),
				}, nil
			}
			log.Warn("live state query failed, re-initializing", "error", err)
			m.discard(rec, audit.KindSelfHeal, err.Error())
		} else {
			m.discard(rec, audit.KindSelfHeal, "record without handle")
		}
	}

	// Settings are read and the record reserved under one lock so a toggle
	// issued in between is not lost.
	m.settingsMu.Lock()
	settings := m.loadSettings(ctx, sessionID)
	gen := m.gen.Add(1)
	rec, created := m.registry.Reserve(sessionID, gen, settings)
	m.settingsMu.Unlock()
	if !created {
		return inProgress(rec), nil
	}

	m.trail.Record(sessionID, audit.KindInit, string(rec.Status), "")
	log.Info("initializing session", "generation", gen)

	handle, err := m.factory.New(sessionID, m.sink(sessionID, gen))
	if err != nil {
		log.Error("failed to create client", "error", err)
		m.publish(sessionID, gen, waclient.Event{Kind: waclient.EventInitError, Reason: err.Error()})
		return &model.InitResult{
			Status:  model.SessionStatusInitializing,
			Message: fmt.Sprintf("Session '%s' initialization started.", sessionID),
		}, nil
	}

	if _, ok := m.registry.Update(sessionID, gen, func(r *registry.Record) {
		r.Handle = handle
		r.History = buffer.NewRing[*model.InboundMessage](m.cfg.HistorySize)
	}); !ok {
		// Removed while the client was being constructed.
		handle.Destroy()
		return &model.InitResult{
			Status:  model.SessionStatusRemoved,
			Message: fmt.Sprintf("Session '%s' was removed during initialization.", sessionID),
		}, nil
	}

	m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: sessionID, Message: fmt.Sprintf("Initializing session '%s'...", sessionID)})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := handle.Connect(m.ctx); err != nil {
			log.Error("connect failed", "error", err)
			m.publish(sessionID, gen, waclient.Event{Kind: waclient.EventInitError, Reason: err.Error()})
		}
	}()

	return &model.InitResult{
		Status:  model.SessionStatusInitializing,
		Message: fmt.Sprintf("Session '%s' initialization started.", sessionID),
	}, nil
}

func inProgress(rec registry.Record) *model.InitResult {
	return &model.InitResult{
		Status:     rec.Status,
		InProgress: true,
		Message:    fmt.Sprintf("Session '%s' initialization already in progress.", rec.ID),
	}
}

// Remove tears a session down. Removing an unknown session succeeds.
func (m *Manager) Remove(ctx context.Context, sessionID string) error {
	if err := model.ValidateSessionID(sessionID); err != nil {
		return err
	}
	log := m.logger.With("session_id", sessionID)

	rec, ok := m.registry.Get(sessionID)
	if !ok {
		log.Info("remove requested for unknown session")
		return nil
	}
	// The record goes first so commands and late events observe the removal at once.
	// Only the caller that deletes it tears the handle down.
	if _, ok := m.registry.DeleteIf(sessionID, rec.Generation); !ok {
		log.Info("session already being removed")
		return nil
	}
	if rec.Handle != nil {
		m.teardown(ctx, log, rec.Handle)
	}
	log.Info("session removed", "previous_status", rec.Status)

	m.trail.Record(sessionID, audit.KindRemoved, string(model.SessionStatusRemoved), "")
	m.broadcaster.ToAll(EventSessionRemoved, SessionPayload{ID: sessionID})
	m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: sessionID, Message: "Session removed."})
	return nil
}

// teardown logs out, waits for the client to flush, then always destroys.
func (m *Manager) teardown(ctx context.Context, log *slog.Logger, h waclient.Handle) {
	if err := h.Logout(ctx); err != nil {
		log.Warn("logout failed, forcing destroy", "error", err)
	} else if m.cfg.RemoveGrace > 0 {
		t := time.NewTimer(m.cfg.RemoveGrace)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	if err := h.Destroy(); err != nil {
		log.Warn("destroy failed", "error", err)
	}
}

// discard destroys a stale handle and drops its record.
func (m *Manager) discard(rec registry.Record, kind audit.Kind, detail string) {
	if _, ok := m.registry.DeleteIf(rec.ID, rec.Generation); !ok {
		return
	}
	if rec.Handle != nil {
		if err := rec.Handle.Destroy(); err != nil {
			m.logger.Warn("destroy failed", "session_id", rec.ID, "error", err)
		}
	}
	m.trail.Record(rec.ID, kind, string(rec.Status), detail)
	m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: rec.ID, Message: "Session was unresponsive, re-initializing."})
}

// List returns the public view of every session.
func (m *Manager) List() []model.SessionSummary {
	records := m.registry.List()
	out := make([]model.SessionSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Summary())
	}
	return out
}

// Get returns the public view of one session.
func (m *Manager) Get(sessionID string) (model.SessionSummary, bool) {
	rec, ok := m.registry.Get(sessionID)
	if !ok {
		return model.SessionSummary{}, false
	}
	return rec.Summary(), true
}

// Replay returns what a subscriber joining the session's room should be told
// about its current state.
func (m *Manager) Replay(sessionID string) []Notice {
	rec, ok := m.registry.Get(sessionID)
	if !ok {
		return []Notice{{Event: EventStatusUpdate, Payload: StatusPayload{ID: sessionID, Message: "Session not active."}}}
	}

	switch {
	case rec.HasChallenge():
		return []Notice{{Event: EventQRCode, Payload: ChallengePayload{ID: sessionID, Challenge: rec.Challenge}}}
	case rec.Status == model.SessionStatusReady:
		notices := []Notice{{Event: EventReady, Payload: SessionPayload{ID: sessionID}}}
		if rec.History != nil {
			for _, msg := range rec.History.Items() {
				notices = append(notices, Notice{Event: EventNewMessage, Payload: MessagePayload{ID: sessionID, Message: msg}})
			}
		}
		return notices
	case rec.Status == model.SessionStatusAuthenticated:
		return []Notice{{Event: EventAuthenticated, Payload: SessionPayload{ID: sessionID}}}
	default:
		return []Notice{{Event: EventStatusUpdate, Payload: StatusPayload{ID: sessionID, Message: "Session initializing..."}}}
	}
}

// Flush waits until every event the session's client emitted so far has been applied.
func (m *Manager) Flush(ctx context.Context, sessionID string) error {
	return m.bus.Flush(ctx, sessionID)
}

// Close stops event processing and destroys every handle.
func (m *Manager) Close() {
	m.cancel()
	m.bus.Close()
	m.wg.Wait()

	for _, rec := range m.registry.List() {
		m.registry.Delete(rec.ID)
		if rec.Handle != nil {
			if err := rec.Handle.Destroy(); err != nil {
				m.logger.Warn("destroy failed", "session_id", rec.ID, "error", err)
			}
		}
	}
}

func (m *Manager) sink(sessionID string, gen uint64) waclient.Sink {
	return func(evt waclient.Event) {
		m.publish(sessionID, gen, evt)
	}
}

func (m *Manager) publish(sessionID string, gen uint64, evt waclient.Event) {
	if err := m.bus.Publish(sessionID, envelope{gen: gen, event: evt}); err != nil {
		m.logger.Debug("event dropped", "session_id", sessionID, "kind", evt.Kind, "error", err)
	}
}

func (m *Manager) loadSettings(ctx context.Context, sessionID string) model.Settings {
	if m.settings == nil {
		return model.Settings{}
	}
	s, err := m.settings.Get(ctx, sessionID)
	if err != nil {
		m.logger.Warn("failed to load settings, using defaults", "session_id", sessionID, "error", err)
		return model.Settings{}
	}
	return s
}

// async runs fn in the background with a bounded context.
func (m *Manager) async(fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(m.ctx, m.cfg.SideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}
