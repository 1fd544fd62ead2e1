package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/pompomputin/wwebjs-webui-docker/internal/address"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/registry"
)

// ready looks the session up on every call; handles are never cached outside the registry.
func (m *Manager) ready(sessionID string) (registry.Record, error) {
	rec, ok := m.registry.Get(sessionID)
	if !ok || rec.Status != model.SessionStatusReady || rec.Handle == nil {
		return registry.Record{}, fmt.Errorf("%w: session '%s'", model.ErrSessionNotReady, sessionID)
	}
	return rec, nil
}

func recipient(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: recipient is required", model.ErrInvalidArgument)
	}
	addr := address.Normalize(raw, region)
	if !address.HasNumber(raw) || !address.Valid(addr) {
		return "", fmt.Errorf("%w: recipient %q has no number", model.ErrInvalidArgument, raw)
	}
	return addr, nil
}

func dispatchErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrDispatch, op, err)
}

// SendText sends a text message.
func (m *Manager) SendText(ctx context.Context, sessionID string, req *model.SendTextRequest) (*model.SendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rec, err := m.ready(sessionID)
	if err != nil {
		return nil, err
	}
	to, err := recipient(req.Number, req.RegionCode)
	if err != nil {
		return nil, err
	}

	if rec.Settings.TypingIndicator && m.cfg.TypingDuration > 0 {
		if err := rec.Handle.SendTyping(ctx, to, m.cfg.TypingDuration); err != nil {
			m.logger.Warn("typing indicator failed", "session_id", sessionID, "error", err)
		}
	}

	res, err := rec.Handle.SendText(ctx, to, req.Message)
	if err != nil {
		return nil, dispatchErr("send message", err)
	}

	m.broadcaster.ToSession(sessionID, EventMessageSent, SentPayload{
		ID:        sessionID,
		To:        to,
		Body:      req.Message,
		MessageID: res.MessageID,
		Timestamp: res.Timestamp,
	})
	return res, nil
}

// SendMedia sends an image from an inline payload or a remote URL.
func (m *Manager) SendMedia(ctx context.Context, sessionID string, req *model.SendMediaRequest) (*model.SendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rec, err := m.ready(sessionID)
	if err != nil {
		return nil, err
	}
	to, err := recipient(req.Number, req.RegionCode)
	if err != nil {
		return nil, err
	}

	media := req.Media
	if req.URL != "" {
		if m.fetcher == nil {
			return nil, fmt.Errorf("%w: url fetching is disabled", model.ErrMediaFetch)
		}
		media, err = m.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			return nil, err
		}
	}

	res, err := rec.Handle.SendMedia(ctx, to, *media, req.Caption)
	if err != nil {
		return nil, dispatchErr("send media", err)
	}

	m.broadcaster.ToSession(sessionID, EventMediaSent, SentPayload{
		ID:        sessionID,
		To:        to,
		Caption:   req.Caption,
		Filename:  media.Filename,
		MessageID: res.MessageID,
		Timestamp: res.Timestamp,
	})
	return res, nil
}

// SendLocation sends a location pin.
func (m *Manager) SendLocation(ctx context.Context, sessionID string, req *model.SendLocationRequest) (*model.SendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rec, err := m.ready(sessionID)
	if err != nil {
		return nil, err
	}
	to, err := recipient(req.Number, req.RegionCode)
	if err != nil {
		return nil, err
	}

	res, err := rec.Handle.SendLocation(ctx, to, *req.Lat, *req.Lon, req.Description)
	if err != nil {
		return nil, dispatchErr("send location", err)
	}

	m.broadcaster.ToSession(sessionID, EventLocationSent, SentPayload{
		ID:        sessionID,
		To:        to,
		Lat:       req.Lat,
		Lon:       req.Lon,
		Body:      req.Description,
		MessageID: res.MessageID,
		Timestamp: res.Timestamp,
	})
	return res, nil
}

// ContactInfo returns profile fields of a contact.
func (m *Manager) ContactInfo(ctx context.Context, sessionID, contactID, region string) (*model.ContactInfo, error) {
	rec, err := m.ready(sessionID)
	if err != nil {
		return nil, err
	}
	addr, err := recipient(contactID, region)
	if err != nil {
		return nil, err
	}
	info, err := rec.Handle.ContactInfo(ctx, addr)
	if err != nil {
		return nil, dispatchErr("contact info", err)
	}
	return info, nil
}

// IsRegistered reports whether number has an account on the network.
func (m *Manager) IsRegistered(ctx context.Context, sessionID, number, region string) (bool, error) {
	rec, err := m.ready(sessionID)
	if err != nil {
		return false, err
	}
	addr, err := recipient(number, region)
	if err != nil {
		return false, err
	}
	ok, err := rec.Handle.IsRegistered(ctx, addr)
	if err != nil {
		return false, dispatchErr("is registered", err)
	}
	return ok, nil
}

// SetStatusMessage changes the account's about text.
func (m *Manager) SetStatusMessage(ctx context.Context, sessionID, msg string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("%w: statusMessage is required", model.ErrInvalidArgument)
	}
	rec, err := m.ready(sessionID)
	if err != nil {
		return err
	}
	if err := rec.Handle.SetStatusMessage(ctx, msg); err != nil {
		return dispatchErr("set status", err)
	}
	m.broadcaster.ToSession(sessionID, EventStatusMessageSet, StatusMessagePayload{ID: sessionID, StatusMessage: msg})
	return nil
}

// SendTyping shows the composing indicator in chat now.
func (m *Manager) SendTyping(ctx context.Context, sessionID, chat, region string) error {
	rec, err := m.ready(sessionID)
	if err != nil {
		return err
	}
	addr, err := recipient(chat, region)
	if err != nil {
		return err
	}
	if err := rec.Handle.SendTyping(ctx, addr, m.cfg.TypingDuration); err != nil {
		return dispatchErr("send typing", err)
	}
	return nil
}

// SendSeen marks chat as read now.
func (m *Manager) SendSeen(ctx context.Context, sessionID, chat, region string) error {
	rec, err := m.ready(sessionID)
	if err != nil {
		return err
	}
	addr, err := recipient(chat, region)
	if err != nil {
		return err
	}
	if err := rec.Handle.SendSeen(ctx, addr); err != nil {
		return dispatchErr("send seen", err)
	}
	return nil
}

// SetPresence announces the account as available or unavailable now.
func (m *Manager) SetPresence(ctx context.Context, sessionID string, available bool) error {
	rec, err := m.ready(sessionID)
	if err != nil {
		return err
	}
	if err := rec.Handle.SetPresence(ctx, available); err != nil {
		return dispatchErr("set presence", err)
	}
	return nil
}

// SetTypingIndicator toggles the typing indicator sent before each message.
func (m *Manager) SetTypingIndicator(ctx context.Context, sessionID string, enabled bool) (model.Settings, error) {
	return m.updateSettings(ctx, sessionID, func(s *model.Settings) { s.TypingIndicator = enabled })
}

// SetAutoSeen toggles marking inbound messages as read.
func (m *Manager) SetAutoSeen(ctx context.Context, sessionID string, enabled bool) (model.Settings, error) {
	return m.updateSettings(ctx, sessionID, func(s *model.Settings) { s.AutoSeen = enabled })
}

// SetOnlinePresence toggles announcing the account as online once ready.
// A ready session is updated immediately.
func (m *Manager) SetOnlinePresence(ctx context.Context, sessionID string, enabled bool) (model.Settings, error) {
	s, err := m.updateSettings(ctx, sessionID, func(s *model.Settings) { s.OnlinePresence = enabled })
	if err != nil {
		return s, err
	}
	if rec, err := m.ready(sessionID); err == nil {
		m.applyPresence(rec, enabled)
	}
	return s, nil
}

// Settings returns the current toggles of a session, live or not.
func (m *Manager) Settings(ctx context.Context, sessionID string) (model.Settings, error) {
	if err := model.ValidateSessionID(sessionID); err != nil {
		return model.Settings{}, err
	}
	if rec, ok := m.registry.Get(sessionID); ok {
		return rec.Settings, nil
	}
	return m.loadSettings(ctx, sessionID), nil
}

// updateSettings works in any status, including when no session exists yet.
func (m *Manager) updateSettings(ctx context.Context, sessionID string, patch func(*model.Settings)) (model.Settings, error) {
	if err := model.ValidateSessionID(sessionID); err != nil {
		return model.Settings{}, err
	}

	m.settingsMu.Lock()
	defer m.settingsMu.Unlock()

	var current model.Settings
	if rec, ok := m.registry.Get(sessionID); ok {
		current = rec.Settings
	} else {
		current = m.loadSettings(ctx, sessionID)
	}
	patch(&current)

	if m.settings != nil {
		if err := m.settings.Save(ctx, sessionID, current); err != nil {
			return model.Settings{}, err
		}
	}
	m.registry.Update(sessionID, 0, func(r *registry.Record) { r.Settings = current })
	return current, nil
}
