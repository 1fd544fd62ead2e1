// Package waclient defines the contract between the session manager and a
// messaging-protocol client. Implementations translate their native events into
// Event values and never leak library types past this boundary.
//
// Addresses crossing the boundary are canonical: "<digits>@c.us" for accounts
// and "<id>@g.us" for groups.
package waclient

import (
	"context"
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// EventKind identifies a lifecycle signal emitted by a Handle.
type EventKind string

const (
	EventChallenge     EventKind = "challenge"
	EventAuthenticated EventKind = "authenticated"
	EventReady         EventKind = "ready"
	EventMessage       EventKind = "message"
	EventDisconnected  EventKind = "disconnected"
	EventAuthFailure   EventKind = "auth_failure"
	EventInitError     EventKind = "init_error"
)

// Event is a tagged union; only the fields for Kind are set.
type Event struct {
	Kind EventKind

	// Challenge is the credential challenge payload (EventChallenge).
	Challenge string
	// Reason explains EventDisconnected, EventAuthFailure and EventInitError.
	Reason string
	// Message is the inbound envelope (EventMessage).
	Message *model.InboundMessage
}

// Sink receives events from one Handle in emission order.
type Sink func(Event)

// Handle is a live protocol client bound to one session. It is owned
// exclusively by that session's registry record.
type Handle interface {
	// Connect starts the client. It may return before authentication completes;
	// progress is reported through the Sink.
	Connect(ctx context.Context) error
	// State queries the live connection state. An error means the handle is broken.
	State(ctx context.Context) (string, error)
	// Logout unlinks the device and releases the connection.
	Logout(ctx context.Context) error
	// Destroy releases every resource held by the handle. It is safe to call more than once.
	Destroy() error

	SendText(ctx context.Context, to, body string) (*model.SendResult, error)
	SendMedia(ctx context.Context, to string, media model.Media, caption string) (*model.SendResult, error)
	SendLocation(ctx context.Context, to string, lat, lon float64, description string) (*model.SendResult, error)
	ContactInfo(ctx context.Context, addr string) (*model.ContactInfo, error)
	IsRegistered(ctx context.Context, addr string) (bool, error)
	SetStatusMessage(ctx context.Context, msg string) error

	// SetPresence announces the account as available or unavailable.
	SetPresence(ctx context.Context, available bool) error
	// SendTyping shows a composing indicator in chat for d.
	SendTyping(ctx context.Context, chat string, d time.Duration) error
	// SendSeen marks messages in chat as read. With no ids the adapter marks
	// whatever it last received in that chat.
	SendSeen(ctx context.Context, chat string, ids ...string) error
}

// Factory creates handles. sessionID selects the isolated credential storage.
type Factory interface {
	New(sessionID string, sink Sink) (Handle, error)
}
