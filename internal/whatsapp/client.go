// Package whatsapp implements waclient on top of whatsmeow. Every session
// gets its own device store under <authDir>/session-<id>/.
package whatsapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/waclient"
)

// Connection states reported by State.
const (
	StateConnected    = "CONNECTED"
	StateOpening      = "OPENING"
	StateUnpaired     = "UNPAIRED"
	StateDisconnected = "DISCONNECTED"
)

var errDestroyed = errors.New("client destroyed")

// SessionDir returns the credential directory for sessionID.
func SessionDir(authDir, sessionID string) string {
	return filepath.Join(authDir, "session-"+sessionID)
}

// Factory creates whatsmeow-backed handles.
type Factory struct {
	authDir string
	logger  *slog.Logger
}

// NewFactory creates a factory storing credentials under authDir.
func NewFactory(authDir string, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{authDir: authDir, logger: logger.With("component", "whatsapp")}
}

// New opens (or creates) the session's device store and builds a client.
// The client does not touch the network until Connect.
func (f *Factory) New(sessionID string, sink waclient.Sink) (waclient.Handle, error) {
	if err := model.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	dir := SessionDir(f.authDir, sessionID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	logger := f.logger.With("session_id", sessionID)
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", filepath.Join(dir, "store.db"))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}
	container := sqlstore.NewWithDB(db, "sqlite3", newLogger(logger, "Database"))
	if err := container.Upgrade(); err != nil {
		db.Close()
		return nil, fmt.Errorf("upgrade device store: %w", err)
	}
	device, err := container.GetFirstDevice()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load device: %w", err)
	}

	c := &Client{
		sessionID: sessionID,
		db:        db,
		wa:        whatsmeow.NewClient(device, newLogger(logger, "Client")),
		sink:      sink,
		logger:    logger,
		seen:      newSeenTracker(),
	}
	c.handlerID = c.wa.AddEventHandler(c.handleEvent)
	return c, nil
}

// Client is a waclient.Handle bound to one whatsmeow device.
type Client struct {
	sessionID string
	db        *sql.DB
	wa        *whatsmeow.Client
	sink      waclient.Sink
	logger    *slog.Logger
	seen      *seenTracker
	handlerID uint32

	authenticated atomic.Bool

	mu        sync.Mutex
	cancelQR  context.CancelFunc
	destroyed bool
}

// Connect dials the server. Unpaired devices first subscribe to the pairing
// QR stream, which feeds challenge events into the sink.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return errDestroyed
	}
	if c.wa.Store.ID == nil {
		qrCtx, cancel := context.WithCancel(ctx)
		c.cancelQR = cancel
		c.mu.Unlock()

		ch, err := c.wa.GetQRChannel(qrCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("qr channel: %w", err)
		}
		go c.watchQR(ch)
	} else {
		c.mu.Unlock()
	}
	return c.wa.Connect()
}

func (c *Client) watchQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.sink(waclient.Event{Kind: waclient.EventChallenge, Challenge: item.Code})
		case whatsmeow.QRChannelSuccess.Event:
			// PairSuccess reports authentication.
		case whatsmeow.QRChannelTimeout.Event:
			c.sink(waclient.Event{Kind: waclient.EventAuthFailure, Reason: "QR code scan timed out"})
		case whatsmeow.QRChannelEventError:
			reason := "pairing failed"
			if item.Error != nil {
				reason = item.Error.Error()
			}
			c.sink(waclient.Event{Kind: waclient.EventAuthFailure, Reason: reason})
		default:
			c.sink(waclient.Event{Kind: waclient.EventAuthFailure, Reason: item.Event})
		}
	}
}

func (c *Client) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		c.authenticated.Store(true)
		c.sink(waclient.Event{Kind: waclient.EventAuthenticated})
	case *events.PairError:
		c.sink(waclient.Event{Kind: waclient.EventAuthFailure, Reason: e.Error.Error()})
	case *events.Connected:
		// Restored credentials skip pairing, so authentication is reported here.
		if c.authenticated.CompareAndSwap(false, true) {
			c.sink(waclient.Event{Kind: waclient.EventAuthenticated})
		}
		c.sink(waclient.Event{Kind: waclient.EventReady})
	case *events.LoggedOut:
		c.sink(waclient.Event{Kind: waclient.EventDisconnected, Reason: "LOGOUT: " + e.Reason.String()})
	case *events.StreamReplaced:
		c.sink(waclient.Event{Kind: waclient.EventDisconnected, Reason: "CONFLICT"})
	case *events.TemporaryBan:
		c.sink(waclient.Event{Kind: waclient.EventDisconnected, Reason: e.String()})
	case *events.ConnectFailure:
		c.sink(waclient.Event{Kind: waclient.EventAuthFailure, Reason: fmt.Sprintf("%s %s", e.Reason.String(), e.Message)})
	case *events.ClientOutdated:
		c.sink(waclient.Event{Kind: waclient.EventInitError, Reason: "client version outdated"})
	case *events.Message:
		c.seen.track(e.Info)
		self := types.EmptyJID
		if c.wa.Store.ID != nil {
			self = *c.wa.Store.ID
		}
		c.sink(waclient.Event{Kind: waclient.EventMessage, Message: inbound(e, self)})
	}
}

// State reports the live connection state. Only a destroyed client errors.
func (c *Client) State(ctx context.Context) (string, error) {
	c.mu.Lock()
	destroyed := c.destroyed
	c.mu.Unlock()
	switch {
	case destroyed:
		return "", errDestroyed
	case c.wa.IsLoggedIn():
		return StateConnected, nil
	case c.wa.IsConnected() && c.wa.Store.ID == nil:
		return StateUnpaired, nil
	case c.wa.IsConnected():
		return StateOpening, nil
	}
	return StateDisconnected, nil
}

// Logout unlinks the device from the account.
func (c *Client) Logout(ctx context.Context) error {
	if c.wa.Store.ID == nil {
		return nil
	}
	return c.wa.Logout()
}

// Destroy disconnects and closes the device store.
func (c *Client) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	cancel := c.cancelQR
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wa.RemoveEventHandler(c.handlerID)
	c.wa.Disconnect()
	return c.db.Close()
}

func (c *Client) send(ctx context.Context, to string, msg *waE2E.Message) (*model.SendResult, error) {
	jid, err := ToJID(to)
	if err != nil {
		return nil, err
	}
	resp, err := c.wa.SendMessage(ctx, jid, msg)
	if err != nil {
		return nil, err
	}
	return &model.SendResult{MessageID: resp.ID, Timestamp: resp.Timestamp}, nil
}

func (c *Client) SendText(ctx context.Context, to, body string) (*model.SendResult, error) {
	return c.send(ctx, to, &waE2E.Message{Conversation: proto.String(body)})
}

func (c *Client) SendMedia(ctx context.Context, to string, media model.Media, caption string) (*model.SendResult, error) {
	kind := mediaKind(media.MimeType)
	up, err := c.wa.Upload(ctx, media.Data, kind)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	return c.send(ctx, to, mediaMessage(kind, up, media, caption))
}

func (c *Client) SendLocation(ctx context.Context, to string, lat, lon float64, description string) (*model.SendResult, error) {
	loc := &waE2E.LocationMessage{
		DegreesLatitude:  proto.Float64(lat),
		DegreesLongitude: proto.Float64(lon),
	}
	if description != "" {
		loc.Name = proto.String(description)
	}
	return c.send(ctx, to, &waE2E.Message{LocationMessage: loc})
}

// ContactInfo gathers what the account can see about addr. Optional fields
// that fail to load are left empty.
func (c *Client) ContactInfo(ctx context.Context, addr string) (*model.ContactInfo, error) {
	jid, err := ToJID(addr)
	if err != nil {
		return nil, err
	}
	info := &model.ContactInfo{
		ID:      FromJID(jid),
		Number:  jid.User,
		IsGroup: jid.Server == types.GroupServer,
		IsUser:  jid.Server == types.DefaultUserServer,
	}
	if own := c.wa.Store.ID; own != nil {
		info.IsMe = own.User == jid.User && info.IsUser
	}

	if info.IsGroup {
		group, err := c.wa.GetGroupInfo(jid)
		if err != nil {
			return nil, err
		}
		info.Name = group.Name
		info.IsRegistered = true
	} else {
		if contact, err := c.wa.Store.Contacts.GetContact(jid); err == nil && contact.Found {
			info.Name = contact.FullName
			if info.Name == "" {
				info.Name = contact.FirstName
			}
			info.PushName = contact.PushName
			info.BusinessName = contact.BusinessName
		}
		registered, err := c.IsRegistered(ctx, addr)
		if err != nil {
			return nil, err
		}
		info.IsRegistered = registered
		if users, err := c.wa.GetUserInfo([]types.JID{jid}); err == nil {
			info.About = users[jid].Status
		} else {
			c.logger.Debug("user info unavailable", "contact", addr, "error", err)
		}
	}

	if pic, err := c.wa.GetProfilePictureInfo(jid, &whatsmeow.GetProfilePictureParams{}); err == nil && pic != nil {
		info.ProfilePicURL = pic.URL
	} else if err != nil {
		c.logger.Debug("profile picture unavailable", "contact", addr, "error", err)
	}
	return info, nil
}

func (c *Client) IsRegistered(ctx context.Context, addr string) (bool, error) {
	jid, err := ToJID(addr)
	if err != nil {
		return false, err
	}
	if jid.Server != types.DefaultUserServer {
		return false, nil
	}
	resp, err := c.wa.IsOnWhatsApp([]string{"+" + jid.User})
	if err != nil {
		return false, err
	}
	for _, r := range resp {
		if r.IsIn {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) SetStatusMessage(ctx context.Context, msg string) error {
	return c.wa.SetStatusMessage(msg)
}

func (c *Client) SetPresence(ctx context.Context, available bool) error {
	presence := types.PresenceUnavailable
	if available {
		presence = types.PresenceAvailable
	}
	return c.wa.SendPresence(presence)
}

// SendTyping shows the composing indicator for d, then clears it. It returns
// early if ctx is cancelled.
func (c *Client) SendTyping(ctx context.Context, chat string, d time.Duration) error {
	jid, err := ToJID(chat)
	if err != nil {
		return err
	}
	if err := c.wa.SendChatPresence(jid, types.ChatPresenceComposing, types.ChatPresenceMediaText); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return c.wa.SendChatPresence(jid, types.ChatPresencePaused, types.ChatPresenceMediaText)
}

// SendSeen marks ids in chat as read. With no ids it marks the latest
// inbound message seen in chat, if any.
func (c *Client) SendSeen(ctx context.Context, chat string, ids ...string) error {
	jid, err := ToJID(chat)
	if err != nil {
		return err
	}
	last, ok := c.seen.last(jid)
	if len(ids) == 0 {
		if !ok {
			return nil
		}
		ids = []string{last.id}
	}
	sender := jid
	if ok && jid.Server == types.GroupServer {
		sender = last.sender
	}
	msgIDs := make([]types.MessageID, len(ids))
	for i, id := range ids {
		msgIDs[i] = types.MessageID(id)
	}
	return c.wa.MarkRead(msgIDs, time.Now(), jid, sender)
}
