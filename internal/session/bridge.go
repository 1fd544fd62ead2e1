package session

import (
	"context"
	"fmt"

	"github.com/pompomputin/wwebjs-webui-docker/internal/audit"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/registry"
	"github.com/pompomputin/wwebjs-webui-docker/internal/waclient"
)

// handleEvent is the only place client events mutate the registry. The bus
// calls it sequentially per session, in emission order.
func (m *Manager) handleEvent(sessionID string, env envelope) {
	log := m.logger.With("session_id", sessionID, "kind", env.event.Kind)

	rec, ok := m.registry.Get(sessionID)
	if !ok || rec.Generation != env.gen {
		log.Debug("dropping event from a discarded client", "generation", env.gen)
		return
	}

	evt := env.event
	switch evt.Kind {
	case waclient.EventChallenge:
		m.transition(rec, func(r *registry.Record) {
			r.Status = model.SessionStatusAwaitingCredential
			r.Challenge = evt.Challenge
		}, audit.KindChallenge, "")
		m.broadcaster.ToSession(sessionID, EventQRCode, ChallengePayload{ID: sessionID, Challenge: evt.Challenge})
		m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: sessionID, Message: "QR code received. Scan."})

	case waclient.EventAuthenticated:
		m.transition(rec, func(r *registry.Record) {
			r.Status = model.SessionStatusAuthenticated
			r.Challenge = ""
		}, audit.KindAuthenticated, "")
		m.broadcaster.ToSession(sessionID, EventAuthenticated, SessionPayload{ID: sessionID})
		m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: sessionID, Message: "Authenticated!"})

	case waclient.EventReady:
		next, ok := m.transition(rec, func(r *registry.Record) {
			r.Status = model.SessionStatusReady
			r.Challenge = ""
			r.InitInFlight = false
		}, audit.KindReady, "")
		log.Info("session ready")
		m.broadcaster.ToSession(sessionID, EventReady, SessionPayload{ID: sessionID})
		m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: sessionID, Message: "Client is READY!"})
		if ok && next.Settings.OnlinePresence && next.Handle != nil {
			m.applyPresence(next, true)
		}

	case waclient.EventMessage:
		if evt.Message == nil {
			return
		}
		if rec.History != nil {
			rec.History.Push(evt.Message)
		}
		m.broadcaster.ToSession(sessionID, EventNewMessage, MessagePayload{ID: sessionID, Message: evt.Message})
		if rec.Settings.AutoSeen && !evt.Message.FromMe && rec.Handle != nil {
			h, chat, id := rec.Handle, evt.Message.From, evt.Message.ID
			m.async(func(ctx context.Context) {
				if err := h.SendSeen(ctx, chat, id); err != nil {
					m.logger.Warn("auto seen failed", "session_id", sessionID, "error", err)
				}
			})
		}

	case waclient.EventDisconnected:
		log.Info("session disconnected", "reason", evt.Reason)
		m.terminate(rec, model.SessionStatusDisconnected, audit.KindDisconnected, evt.Reason)
		m.broadcaster.ToSession(sessionID, EventDisconnected, DisconnectPayload{ID: sessionID, Reason: evt.Reason})
		m.broadcaster.ToAll(EventSessionRemoved, SessionPayload{ID: sessionID})
		m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: sessionID, Message: fmt.Sprintf("Client disconnected: %s", evt.Reason)})

	case waclient.EventAuthFailure:
		log.Warn("authentication failed", "reason", evt.Reason)
		m.terminate(rec, model.SessionStatusAuthFailed, audit.KindAuthFailure, evt.Reason)
		m.broadcaster.ToSession(sessionID, EventAuthFailure, FailurePayload{ID: sessionID, Message: evt.Reason})
		m.broadcaster.ToAll(EventSessionRemoved, SessionPayload{ID: sessionID})
		m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: sessionID, Message: fmt.Sprintf("Authentication failed: %s", evt.Reason)})

	case waclient.EventInitError:
		log.Error("initialization failed", "reason", evt.Reason)
		m.terminate(rec, model.SessionStatusInitError, audit.KindInitError, evt.Reason)
		m.broadcaster.ToSession(sessionID, EventInitError, FailurePayload{ID: sessionID, Error: evt.Reason})
		m.broadcaster.ToAll(EventSessionRemoved, SessionPayload{ID: sessionID})
		m.broadcaster.ToAll(EventStatusUpdate, StatusPayload{ID: sessionID, Message: fmt.Sprintf("Initialization failed: %s", evt.Reason)})

	default:
		log.Warn("unknown event kind")
	}
}

// transition applies patch to the record generation the event belongs to.
func (m *Manager) transition(rec registry.Record, patch func(*registry.Record), kind audit.Kind, detail string) (registry.Record, bool) {
	next, ok := m.registry.Update(rec.ID, rec.Generation, patch)
	if ok {
		m.trail.Record(rec.ID, kind, string(next.Status), detail)
	}
	return next, ok
}

// terminate records the terminal status, destroys the handle and deletes the record.
func (m *Manager) terminate(rec registry.Record, status model.SessionStatus, kind audit.Kind, reason string) {
	m.transition(rec, func(r *registry.Record) {
		r.Status = status
		r.InitInFlight = false
	}, kind, reason)

	if _, ok := m.registry.DeleteIf(rec.ID, rec.Generation); !ok {
		return
	}
	if rec.Handle != nil {
		if err := rec.Handle.Destroy(); err != nil {
			m.logger.Warn("destroy failed", "session_id", rec.ID, "error", err)
		}
	}
}

func (m *Manager) applyPresence(rec registry.Record, available bool) {
	h := rec.Handle
	m.async(func(ctx context.Context) {
		if err := h.SetPresence(ctx, available); err != nil {
			m.logger.Warn("presence update failed", "session_id", rec.ID, "error", err)
		}
	})
}
