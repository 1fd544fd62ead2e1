package whatsapp

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

var (
	self  = types.NewJID("62811", types.DefaultUserServer)
	peer  = types.NewJID("62822", types.DefaultUserServer)
	group = types.NewJID("1203630", types.GroupServer)
)

func textEvent(chat, sender types.JID, fromMe bool, body string) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:     chat,
				Sender:   sender,
				IsFromMe: fromMe,
				IsGroup:  chat.Server == types.GroupServer,
			},
			ID:        "ABC123",
			Timestamp: time.Unix(1700000000, 0),
		},
		Message: &waE2E.Message{Conversation: proto.String(body)},
	}
}

func TestInbound_Direct(t *testing.T) {
	msg := inbound(textEvent(peer, peer, false, "hello"), self)

	if msg.From != "62822@c.us" || msg.To != "62811@c.us" {
		t.Errorf("Expected from peer to self, got %s -> %s", msg.From, msg.To)
	}
	if msg.Body != "hello" || msg.Type != TypeChat || msg.HasMedia {
		t.Errorf("Unexpected envelope: %+v", msg)
	}
	if msg.Author != "" || msg.IsGroup || msg.IsStatus {
		t.Errorf("Expected plain direct message, got %+v", msg)
	}
}

func TestInbound_FromMe(t *testing.T) {
	msg := inbound(textEvent(peer, self, true, "hi"), self)
	if msg.From != "62811@c.us" || msg.To != "62822@c.us" || !msg.FromMe {
		t.Errorf("Expected own message from self to peer, got %+v", msg)
	}
}

func TestInbound_Group(t *testing.T) {
	msg := inbound(textEvent(group, peer, false, "team"), self)
	if !msg.IsGroup || msg.From != "1203630@g.us" || msg.Author != "62822@c.us" {
		t.Errorf("Expected group envelope with author, got %+v", msg)
	}
}

func TestInbound_StatusBroadcast(t *testing.T) {
	msg := inbound(textEvent(types.StatusBroadcastJID, peer, false, "story"), self)
	if !msg.IsStatus || msg.Author != "62822@c.us" {
		t.Errorf("Expected status envelope, got %+v", msg)
	}
}

func TestInbound_Image(t *testing.T) {
	evt := textEvent(peer, peer, false, "")
	evt.Message = &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look")}}
	msg := inbound(evt, self)
	if msg.Type != TypeImage || !msg.HasMedia || msg.Body != "look" {
		t.Errorf("Expected captioned image, got %+v", msg)
	}
}

func TestInbound_ShapeIsLibraryIndependent(t *testing.T) {
	data, err := json.Marshal(inbound(textEvent(group, peer, false, "x"), self))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	for _, key := range []string{`"from"`, `"to"`, `"body"`, `"timestamp"`, `"id"`, `"author"`, `"fromMe"`, `"isStatus"`, `"isGroupMsg"`, `"hasMedia"`, `"type"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("Expected %s in %s", key, data)
		}
	}
}

func TestMessageType(t *testing.T) {
	tests := []struct {
		msg  *waE2E.Message
		want string
	}{
		{&waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("x")}}, TypeChat},
		{&waE2E.Message{VideoMessage: &waE2E.VideoMessage{}}, TypeVideo},
		{&waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}, TypeAudio},
		{&waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{}}, TypeDocument},
		{&waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, TypeSticker},
		{&waE2E.Message{LocationMessage: &waE2E.LocationMessage{}}, TypeLocation},
		{&waE2E.Message{ContactMessage: &waE2E.ContactMessage{}}, TypeVCard},
		{&waE2E.Message{}, TypeUnknown},
		{nil, TypeUnknown},
	}
	for _, tt := range tests {
		if got := messageType(tt.msg); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
}

func TestMediaKind(t *testing.T) {
	tests := map[string]whatsmeow.MediaType{
		"image/png":       whatsmeow.MediaImage,
		"video/mp4":       whatsmeow.MediaVideo,
		"audio/ogg":       whatsmeow.MediaAudio,
		"application/pdf": whatsmeow.MediaDocument,
		"":                whatsmeow.MediaDocument,
	}
	for mime, want := range tests {
		if got := mediaKind(mime); got != want {
			t.Errorf("mediaKind(%q): expected %s, got %s", mime, want, got)
		}
	}
}

func TestMediaMessage(t *testing.T) {
	up := whatsmeow.UploadResponse{URL: "https://mmg/x", DirectPath: "/x", FileLength: 42}
	media := model.Media{MimeType: "image/jpeg", Filename: "a.jpg"}

	msg := mediaMessage(whatsmeow.MediaImage, up, media, "caption")
	img := msg.GetImageMessage()
	if img == nil || img.GetCaption() != "caption" || img.GetFileLength() != 42 || img.GetMimetype() != "image/jpeg" {
		t.Errorf("Unexpected image message: %v", msg)
	}

	media.MimeType = "application/pdf"
	doc := mediaMessage(whatsmeow.MediaDocument, up, media, "").GetDocumentMessage()
	if doc == nil || doc.GetFileName() != "a.jpg" || doc.Caption != nil {
		t.Errorf("Unexpected document message: %v", doc)
	}
}

func TestSeenTracker(t *testing.T) {
	tracker := newSeenTracker()
	tracker.track(textEvent(group, peer, false, "a").Info)
	own := textEvent(group, self, true, "b").Info
	own.ID = "OWN"
	tracker.track(own)

	last, ok := tracker.last(group)
	if !ok {
		t.Fatal("Expected group to be tracked")
	}
	if last.id != "ABC123" || last.sender != peer {
		t.Errorf("Expected last inbound from peer, got %+v", last)
	}
	if _, ok := tracker.last(peer); ok {
		t.Error("Expected untracked chat to be absent")
	}
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log := newLogger(base, "Client").Sub("Socket")
	log.Infof("connected to %s", "server")
	log.Debugf("hidden %d", 1)

	out := buf.String()
	if !strings.Contains(out, `"module":"Client/Socket"`) || !strings.Contains(out, "connected to server") {
		t.Errorf("Unexpected log output: %s", out)
	}
	if strings.Count(out, `"module"`) != 1 {
		t.Errorf("Expected one module attribute, got %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected debug line to be filtered, got %s", out)
	}
}
