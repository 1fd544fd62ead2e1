package model

import (
	"fmt"
	"regexp"
	"time"
)

// SessionStatus represents the lifecycle state of a messaging session.
type SessionStatus string

const (
	SessionStatusInitializing       SessionStatus = "Initializing"
	SessionStatusAwaitingCredential SessionStatus = "AwaitingCredential"
	SessionStatusAuthenticated      SessionStatus = "Authenticated"
	SessionStatusReady              SessionStatus = "Ready"
	SessionStatusDisconnected       SessionStatus = "Disconnected"
	SessionStatusAuthFailed         SessionStatus = "AuthFailed"
	SessionStatusInitError          SessionStatus = "InitError"
	SessionStatusRemoved            SessionStatus = "Removed"
)

// Live reports whether the status belongs to a session with a working client handle.
func (s SessionStatus) Live() bool {
	switch s {
	case SessionStatusAwaitingCredential, SessionStatusAuthenticated, SessionStatusReady:
		return true
	}
	return false
}

// Settings are per-session feature toggles. They are independent of connection state.
type Settings struct {
	TypingIndicator bool `json:"typingIndicator"`
	AutoSeen        bool `json:"autoSeen"`
	OnlinePresence  bool `json:"onlinePresence"`
}

// SessionSummary is the public view of a session returned by listSessions.
// The challenge payload itself is never part of it.
type SessionSummary struct {
	ID           string        `json:"id"`
	Status       SessionStatus `json:"status"`
	HasChallenge bool          `json:"hasChallenge"`
	Settings     Settings      `json:"settings"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// InitResult is the acknowledgment of an init request.
type InitResult struct {
	Status     SessionStatus `json:"status"`
	InProgress bool          `json:"inProgress,omitempty"`
	Existing   bool          `json:"existing,omitempty"`
	State      string        `json:"state,omitempty"`
	Message    string        `json:"message"`
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateSessionID checks that id is usable as a registry key and as a path segment.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidArgument)
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("%w: session id %q must match [A-Za-z0-9_-]{1,64}", ErrInvalidArgument, id)
	}
	return nil
}
