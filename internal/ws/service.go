package ws

import (
	"log/slog"
)

// Service delivers session events to websocket subscribers. It satisfies
// session.Broadcaster.
type Service struct {
	hubManager *HubManager
	handler    *Handler
	logger     *slog.Logger
}

// NewService creates a new WebSocket service.
func NewService(verifier TokenVerifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	hubManager := NewHubManager()
	return &Service{
		hubManager: hubManager,
		handler:    NewHandler(hubManager, verifier, logger),
		logger:     logger.With("component", "ws"),
	}
}

// Handler returns the WebSocket handler.
func (s *Service) Handler() *Handler {
	return s.handler
}

// HubManager returns the hub manager.
func (s *Service) HubManager() *HubManager {
	return s.hubManager
}

// SetSessions wires the session manager into the handler.
func (s *Service) SetSessions(sessions SessionService) {
	s.handler.SetSessions(sessions)
}

// ToSession sends event to the subscribers of sessionID's room.
func (s *Service) ToSession(sessionID, event string, payload any) {
	data, err := NewMessage(event, sessionID, payload)
	if err != nil {
		s.logger.Error("marshal frame failed", "event", event, "session", sessionID, "error", err)
		return
	}
	s.hubManager.BroadcastRoom(sessionID, data)
}

// ToAll sends event to every connected subscriber.
func (s *Service) ToAll(event string, payload any) {
	data, err := NewMessage(event, "", payload)
	if err != nil {
		s.logger.Error("marshal frame failed", "event", event, "error", err)
		return
	}
	s.hubManager.BroadcastAll(data)
}

// Close disconnects every subscriber.
func (s *Service) Close() {
	s.hubManager.Close()
}
