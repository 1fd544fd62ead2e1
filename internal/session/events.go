package session

import (
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// Real-time event names emitted to subscribers.
const (
	EventQRCode           = "qr_code"
	EventAuthenticated    = "authenticated"
	EventReady            = "ready"
	EventAuthFailure      = "auth_failure"
	EventInitError        = "init_error"
	EventDisconnected     = "disconnected"
	EventSessionRemoved   = "session_removed"
	EventNewMessage       = "new_message"
	EventMessageSent      = "message_sent"
	EventMediaSent        = "media_sent"
	EventLocationSent     = "location_sent"
	EventStatusMessageSet = "status_message_set"
	EventStatusUpdate     = "status_update"
)

// Broadcaster fans events out to real-time subscribers.
type Broadcaster interface {
	// ToSession delivers to subscribers that joined the session's room.
	ToSession(sessionID, event string, payload any)
	// ToAll delivers to every connected subscriber.
	ToAll(event string, payload any)
}

// Notice is one event addressed to a single subscriber.
type Notice struct {
	Event   string
	Payload any
}

// SessionPayload carries only the session id.
type SessionPayload struct {
	ID string `json:"id"`
}

// ChallengePayload carries a credential challenge.
type ChallengePayload struct {
	ID        string `json:"id"`
	Challenge string `json:"challenge"`
}

// FailurePayload is sent on auth_failure (Message) and init_error (Error).
type FailurePayload struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DisconnectPayload is sent on disconnected.
type DisconnectPayload struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// MessagePayload relays an inbound message.
type MessagePayload struct {
	ID      string                `json:"id"`
	Message *model.InboundMessage `json:"message"`
}

// StatusPayload is a human-readable status text. An empty ID marks a
// process-wide notice.
type StatusPayload struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// SentPayload confirms an outbound message.
type SentPayload struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Body      string    `json:"body,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusMessagePayload confirms an about-text change.
type StatusMessagePayload struct {
	ID            string `json:"id"`
	StatusMessage string `json:"statusMessage"`
}

type nopBroadcaster struct{}

func (nopBroadcaster) ToSession(string, string, any) {}
func (nopBroadcaster) ToAll(string, any)             {}
