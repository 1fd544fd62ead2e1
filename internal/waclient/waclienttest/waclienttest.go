// Package waclienttest provides an in-memory waclient.Factory for tests.
package waclienttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/address"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/waclient"
)

// ErrDestroyed is returned by calls on a destroyed Handle.
var ErrDestroyed = errors.New("handle destroyed")

// Call is one recorded method invocation.
type Call struct {
	Method string
	Args   []any
}

// Factory creates fake handles and remembers every one of them.
type Factory struct {
	// NewErr, when set, is returned by New.
	NewErr error
	// Configure, when set, runs on each handle before New returns it.
	Configure func(h *Handle)
	// Delay, when set, is slept inside New to widen race windows in tests.
	Delay time.Duration

	mu      sync.Mutex
	handles map[string][]*Handle
	created atomic.Int64
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{handles: make(map[string][]*Handle)}
}

// New implements waclient.Factory.
func (f *Factory) New(sessionID string, sink waclient.Sink) (waclient.Handle, error) {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	h := &Handle{SessionID: sessionID, sink: sink, state: "CONNECTED"}
	if f.Configure != nil {
		f.Configure(h)
	}
	f.mu.Lock()
	if f.handles == nil {
		f.handles = make(map[string][]*Handle)
	}
	f.handles[sessionID] = append(f.handles[sessionID], h)
	f.mu.Unlock()
	f.created.Add(1)
	return h, nil
}

// Created returns the number of handles created across all sessions.
func (f *Factory) Created() int {
	return int(f.created.Load())
}

// Handles returns the handles created for sessionID, oldest first.
func (f *Factory) Handles(sessionID string) []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Handle, len(f.handles[sessionID]))
	copy(out, f.handles[sessionID])
	return out
}

// Last returns the newest handle for sessionID, or nil.
func (f *Factory) Last(sessionID string) *Handle {
	hs := f.Handles(sessionID)
	if len(hs) == 0 {
		return nil
	}
	return hs[len(hs)-1]
}

// Handle is a scriptable waclient.Handle.
type Handle struct {
	SessionID string

	// Errors returned by the corresponding methods when set.
	ConnectErr error
	StateErr   error
	LogoutErr  error
	SendErr    error

	// Registered is the answer of IsRegistered.
	Registered bool

	sink waclient.Sink

	mu        sync.Mutex
	state     string
	calls     []Call
	destroyed bool
}

// Emit delivers evt to the session's sink as the real client would.
func (h *Handle) Emit(evt waclient.Event) {
	h.sink(evt)
}

// Calls returns the recorded invocations.
func (h *Handle) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Call, len(h.calls))
	copy(out, h.calls)
	return out
}

// CallCount returns how many times method was invoked.
func (h *Handle) CallCount(method string) int {
	n := 0
	for _, c := range h.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Destroyed reports whether Destroy was called.
func (h *Handle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

func (h *Handle) record(method string, args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, Call{Method: method, Args: args})
	if h.destroyed && method != "Destroy" {
		return ErrDestroyed
	}
	return nil
}

func (h *Handle) Connect(ctx context.Context) error {
	if err := h.record("Connect"); err != nil {
		return err
	}
	return h.ConnectErr
}

func (h *Handle) State(ctx context.Context) (string, error) {
	if err := h.record("State"); err != nil {
		return "", err
	}
	if h.StateErr != nil {
		return "", h.StateErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, nil
}

func (h *Handle) Logout(ctx context.Context) error {
	if err := h.record("Logout"); err != nil {
		return err
	}
	return h.LogoutErr
}

func (h *Handle) Destroy() error {
	h.record("Destroy")
	h.mu.Lock()
	h.destroyed = true
	h.mu.Unlock()
	return nil
}

func (h *Handle) send(method string, args ...any) (*model.SendResult, error) {
	if err := h.record(method, args...); err != nil {
		return nil, err
	}
	if h.SendErr != nil {
		return nil, h.SendErr
	}
	return &model.SendResult{
		MessageID: fmt.Sprintf("%s-%d", h.SessionID, len(h.Calls())),
		Timestamp: time.Now(),
	}, nil
}

func (h *Handle) SendText(ctx context.Context, to, body string) (*model.SendResult, error) {
	return h.send("SendText", to, body)
}

func (h *Handle) SendMedia(ctx context.Context, to string, media model.Media, caption string) (*model.SendResult, error) {
	return h.send("SendMedia", to, media, caption)
}

func (h *Handle) SendLocation(ctx context.Context, to string, lat, lon float64, description string) (*model.SendResult, error) {
	return h.send("SendLocation", to, lat, lon, description)
}

func (h *Handle) ContactInfo(ctx context.Context, addr string) (*model.ContactInfo, error) {
	if err := h.record("ContactInfo", addr); err != nil {
		return nil, err
	}
	if h.SendErr != nil {
		return nil, h.SendErr
	}
	return &model.ContactInfo{ID: addr, Number: address.User(addr), IsUser: true, IsRegistered: h.Registered}, nil
}

func (h *Handle) IsRegistered(ctx context.Context, addr string) (bool, error) {
	if err := h.record("IsRegistered", addr); err != nil {
		return false, err
	}
	return h.Registered, h.SendErr
}

func (h *Handle) SetStatusMessage(ctx context.Context, msg string) error {
	if err := h.record("SetStatusMessage", msg); err != nil {
		return err
	}
	return h.SendErr
}

func (h *Handle) SetPresence(ctx context.Context, available bool) error {
	if err := h.record("SetPresence", available); err != nil {
		return err
	}
	return h.SendErr
}

func (h *Handle) SendTyping(ctx context.Context, chat string, d time.Duration) error {
	if err := h.record("SendTyping", chat, d); err != nil {
		return err
	}
	return h.SendErr
}

func (h *Handle) SendSeen(ctx context.Context, chat string, ids ...string) error {
	if err := h.record("SendSeen", chat, ids); err != nil {
		return err
	}
	return h.SendErr
}

var _ waclient.Handle = (*Handle)(nil)
var _ waclient.Factory = (*Factory)(nil)
