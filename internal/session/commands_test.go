package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/waclient"
)

func ptr(f float64) *float64 { return &f }

func TestCommands_SessionNotReady(t *testing.T) {
	env, cleanup := setupTestManager(t)
	defer cleanup()
	ctx := context.Background()

	// "I" exists but is still initializing; "none" does not exist.
	env.manager.Init(ctx, "I")

	for _, id := range []string{"none", "I"} {
		t.Run(id, func(t *testing.T) {
			checks := map[string]error{}
			_, checks["send text"] = env.manager.SendText(ctx, id, &model.SendTextRequest{Number: "812", Message: "hi"})
			_, checks["send media"] = env.manager.SendMedia(ctx, id, &model.SendMediaRequest{Number: "812", URL: "http://x/a.png"})
			_, checks["send location"] = env.manager.SendLocation(ctx, id, &model.SendLocationRequest{Number: "812", Lat: ptr(1), Lon: ptr(2)})
			_, checks["contact info"] = env.manager.ContactInfo(ctx, id, "812", "")
			_, checks["is registered"] = env.manager.IsRegistered(ctx, id, "812", "")
			checks["set status"] = env.manager.SetStatusMessage(ctx, id, "busy")
			checks["send typing"] = env.manager.SendTyping(ctx, id, "812", "")
			checks["send seen"] = env.manager.SendSeen(ctx, id, "812", "")
			checks["set presence"] = env.manager.SetPresence(ctx, id, true)

			for name, err := range checks {
				if !errors.Is(err, model.ErrSessionNotReady) {
					t.Errorf("%s: expected ErrSessionNotReady, got %v", name, err)
				}
			}
		})
	}
	if n := env.fetcher.calls.Load(); n != 0 {
		t.Errorf("Expected no media fetch for a session that is not ready, got %d", n)
	}
}

func TestCommands_SendText(t *testing.T) {
	env, cleanup := setupTestManager(t)
	defer cleanup()
	ctx := context.Background()
	h := env.ready(t, "S")

	t.Run("normalizes recipient", func(t *testing.T) {
		res, err := env.manager.SendText(ctx, "S", &model.SendTextRequest{Number: "0812-345", Message: "hello", RegionCode: "62"})
		if err != nil {
			t.Fatalf("SendText failed: %v", err)
		}
		if res.MessageID == "" {
			t.Error("Expected a message id")
		}
		calls := h.Calls()
		last := calls[len(calls)-1]
		if last.Method != "SendText" || last.Args[0] != "62812345@c.us" {
			t.Errorf("Expected send to 62812345@c.us, got %+v", last)
		}
		sentEvents := env.rec.find(EventMessageSent)
		if len(sentEvents) != 1 || sentEvents[0].Payload.(SentPayload).MessageID != res.MessageID {
			t.Errorf("Expected message_sent with id %s, got %+v", res.MessageID, sentEvents)
		}
	})

	t.Run("typing indicator precedes the message", func(t *testing.T) {
		if _, err := env.manager.SetTypingIndicator(ctx, "S", true); err != nil {
			t.Fatalf("SetTypingIndicator failed: %v", err)
		}
		before := len(h.Calls())
		if _, err := env.manager.SendText(ctx, "S", &model.SendTextRequest{Number: "+1 415", Message: "x"}); err != nil {
			t.Fatalf("SendText failed: %v", err)
		}
		calls := h.Calls()[before:]
		if len(calls) != 2 || calls[0].Method != "SendTyping" || calls[1].Method != "SendText" {
			t.Errorf("Expected SendTyping then SendText, got %+v", calls)
		}
	})

	t.Run("invalid arguments", func(t *testing.T) {
		bad := []*model.SendTextRequest{
			{Number: "", Message: "x"},
			{Number: "812", Message: ""},
			{Number: "abc", Message: "x"},
			{Number: "abc", Message: "x", RegionCode: "62"},
			{Number: "+", Message: "x", RegionCode: "62"},
		}
		for _, req := range bad {
			if _, err := env.manager.SendText(ctx, "S", req); !errors.Is(err, model.ErrInvalidArgument) {
				t.Errorf("%+v: expected ErrInvalidArgument, got %v", req, err)
			}
		}
		for _, c := range h.Calls() {
			if c.Method == "SendText" && c.Args[0] == "62@c.us" {
				t.Errorf("Expected no send to the bare region code, got %+v", c)
			}
		}
	})

	t.Run("client failure is a dispatch error", func(t *testing.T) {
		h.SendErr = errors.New("socket closed")
		defer func() { h.SendErr = nil }()
		if _, err := env.manager.SendText(ctx, "S", &model.SendTextRequest{Number: "812", Message: "x"}); !errors.Is(err, model.ErrDispatch) {
			t.Errorf("Expected ErrDispatch, got %v", err)
		}
	})
}

func TestCommands_SendMedia(t *testing.T) {
	env, cleanup := setupTestManager(t)
	defer cleanup()
	ctx := context.Background()
	h := env.ready(t, "S")

	inline := &model.Media{Data: []byte("png"), MimeType: "image/png", Filename: "x.png"}

	t.Run("both payload and url", func(t *testing.T) {
		_, err := env.manager.SendMedia(ctx, "S", &model.SendMediaRequest{Number: "812", Media: inline, URL: "http://example.com/a.png"})
		if !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
		if n := env.fetcher.calls.Load(); n != 0 {
			t.Errorf("Expected no fetch, got %d", n)
		}
		if n := h.CallCount("SendMedia"); n != 0 {
			t.Errorf("Expected no send, got %d", n)
		}
	})

	t.Run("neither payload nor url", func(t *testing.T) {
		if _, err := env.manager.SendMedia(ctx, "S", &model.SendMediaRequest{Number: "812"}); !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("both present on a missing session is still invalid", func(t *testing.T) {
		_, err := env.manager.SendMedia(ctx, "ghost", &model.SendMediaRequest{Number: "812", Media: inline, URL: "http://example.com/a.png"})
		if !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("inline payload", func(t *testing.T) {
		if _, err := env.manager.SendMedia(ctx, "S", &model.SendMediaRequest{Number: "812", Media: inline, Caption: "look"}); err != nil {
			t.Fatalf("SendMedia failed: %v", err)
		}
		if n := env.fetcher.calls.Load(); n != 0 {
			t.Errorf("Expected no fetch for inline payload, got %d", n)
		}
	})

	t.Run("url payload", func(t *testing.T) {
		if _, err := env.manager.SendMedia(ctx, "S", &model.SendMediaRequest{Number: "812", URL: "http://example.com/a.png"}); err != nil {
			t.Fatalf("SendMedia failed: %v", err)
		}
		if n := env.fetcher.calls.Load(); n != 1 {
			t.Errorf("Expected one fetch, got %d", n)
		}
		if len(env.rec.find(EventMediaSent)) != 2 {
			t.Error("Expected media_sent for each send")
		}
	})

	t.Run("fetch failure is distinct", func(t *testing.T) {
		env.fetcher.err = model.ErrMediaFetch
		defer func() { env.fetcher.err = nil }()
		_, err := env.manager.SendMedia(ctx, "S", &model.SendMediaRequest{Number: "812", URL: "http://example.com/404.png"})
		if !errors.Is(err, model.ErrMediaFetch) || errors.Is(err, model.ErrDispatch) {
			t.Errorf("Expected ErrMediaFetch only, got %v", err)
		}
	})
}

func TestCommands_SendLocation(t *testing.T) {
	env, cleanup := setupTestManager(t)
	defer cleanup()
	ctx := context.Background()
	h := env.ready(t, "S")

	if _, err := env.manager.SendLocation(ctx, "S", &model.SendLocationRequest{Number: "812", Lat: ptr(-6.2)}); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument without lon, got %v", err)
	}
	if _, err := env.manager.SendLocation(ctx, "S", &model.SendLocationRequest{Number: "812", Lat: ptr(0), Lon: ptr(0), Description: "null island"}); err != nil {
		t.Fatalf("Expected zero coordinates to be accepted, got %v", err)
	}
	if h.CallCount("SendLocation") != 1 {
		t.Error("Expected one location sent")
	}
}

func TestCommands_QueriesAndActions(t *testing.T) {
	env, cleanup := setupTestManager(t)
	defer cleanup()
	ctx := context.Background()
	h := env.ready(t, "Q")
	h.Registered = true

	ok, err := env.manager.IsRegistered(ctx, "Q", "812", "62")
	if err != nil || !ok {
		t.Errorf("Expected registered, got %v, %v", ok, err)
	}
	info, err := env.manager.ContactInfo(ctx, "Q", "62812@c.us", "")
	if err != nil {
		t.Fatalf("ContactInfo failed: %v", err)
	}
	if info.Number != "62812" {
		t.Errorf("Expected number 62812, got %s", info.Number)
	}
	if err := env.manager.SetStatusMessage(ctx, "Q", "On holiday"); err != nil {
		t.Errorf("SetStatusMessage failed: %v", err)
	}
	if len(env.rec.find(EventStatusMessageSet)) != 1 {
		t.Error("Expected status_message_set")
	}
	if err := env.manager.SetStatusMessage(ctx, "Q", " "); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for blank status, got %v", err)
	}
	if err := env.manager.SendTyping(ctx, "Q", "12036304@g.us", ""); err != nil {
		t.Errorf("SendTyping failed: %v", err)
	}
	if err := env.manager.SendSeen(ctx, "Q", "812", "62"); err != nil {
		t.Errorf("SendSeen failed: %v", err)
	}
	if err := env.manager.SetPresence(ctx, "Q", false); err != nil {
		t.Errorf("SetPresence failed: %v", err)
	}
}

func TestCommands_SettingsIndependentOfStatus(t *testing.T) {
	env, cleanup := setupTestManager(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("unknown session", func(t *testing.T) {
		s, err := env.manager.SetAutoSeen(ctx, "later", true)
		if err != nil {
			t.Fatalf("SetAutoSeen failed: %v", err)
		}
		if !s.AutoSeen {
			t.Error("Expected AutoSeen to be on")
		}
	})

	t.Run("while initializing and across ready", func(t *testing.T) {
		env.manager.Init(ctx, "later")
		got, _ := env.manager.Get("later")
		if !got.Settings.AutoSeen {
			t.Error("Expected stored settings to load at init")
		}

		if _, err := env.manager.SetTypingIndicator(ctx, "later", true); err != nil {
			t.Fatalf("SetTypingIndicator failed while initializing: %v", err)
		}
		if _, err := env.manager.SetOnlinePresence(ctx, "later", true); err != nil {
			t.Fatalf("SetOnlinePresence failed while initializing: %v", err)
		}

		env.emit(t, "later", waclient.Event{Kind: waclient.EventChallenge, Challenge: "qr"})
		env.emit(t, "later", waclient.Event{Kind: waclient.EventAuthenticated})
		env.emit(t, "later", waclient.Event{Kind: waclient.EventReady})

		got, _ = env.manager.Get("later")
		want := model.Settings{TypingIndicator: true, AutoSeen: true, OnlinePresence: true}
		if got.Status != model.SessionStatusReady || got.Settings != want {
			t.Errorf("Expected Ready with %+v, got %+v", want, got)
		}
	})

	t.Run("survive remove and re-init", func(t *testing.T) {
		if err := env.manager.Remove(ctx, "later"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		s, err := env.manager.Settings(ctx, "later")
		if err != nil || !s.TypingIndicator {
			t.Errorf("Expected persisted settings, got %+v, %v", s, err)
		}
		env.manager.Init(ctx, "later")
		got, _ := env.manager.Get("later")
		if !got.Settings.TypingIndicator {
			t.Error("Expected settings restored on re-init")
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		if _, err := env.manager.SetAutoSeen(ctx, "bad id", true); !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
	})

	// Let presence goroutines settle before cleanup.
	time.Sleep(10 * time.Millisecond)
}
