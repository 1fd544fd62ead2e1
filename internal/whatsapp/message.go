package whatsapp

import (
	"strings"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// Message types reported on inbound envelopes.
const (
	TypeChat     = "chat"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeDocument = "document"
	TypeSticker  = "sticker"
	TypeLocation = "location"
	TypeVCard    = "vcard"
	TypeUnknown  = "unknown"
)

// inbound converts a protocol message into the envelope relayed to subscribers.
// self is the logged-in account, used as the counterpart address.
func inbound(evt *events.Message, self types.JID) *model.InboundMessage {
	info := evt.Info
	msgType := messageType(evt.Message)
	out := &model.InboundMessage{
		ID:        info.ID,
		Body:      messageBody(evt.Message),
		Timestamp: info.Timestamp,
		FromMe:    info.IsFromMe,
		IsGroup:   info.IsGroup,
		IsStatus:  info.Chat == types.StatusBroadcastJID,
		Type:      msgType,
		HasMedia:  isMedia(msgType),
	}
	if info.IsFromMe {
		out.From = FromJID(self)
		out.To = FromJID(info.Chat)
	} else {
		out.From = FromJID(info.Chat)
		out.To = FromJID(self)
	}
	if info.IsGroup || out.IsStatus {
		out.Author = FromJID(info.Sender)
	}
	return out
}

func messageBody(m *waE2E.Message) string {
	switch {
	case m.GetConversation() != "":
		return m.GetConversation()
	case m.GetExtendedTextMessage() != nil:
		return m.GetExtendedTextMessage().GetText()
	case m.GetImageMessage() != nil:
		return m.GetImageMessage().GetCaption()
	case m.GetVideoMessage() != nil:
		return m.GetVideoMessage().GetCaption()
	case m.GetDocumentMessage() != nil:
		return m.GetDocumentMessage().GetCaption()
	case m.GetLocationMessage() != nil:
		return m.GetLocationMessage().GetName()
	case m.GetContactMessage() != nil:
		return m.GetContactMessage().GetVcard()
	}
	return ""
}

func messageType(m *waE2E.Message) string {
	switch {
	case m.GetImageMessage() != nil:
		return TypeImage
	case m.GetVideoMessage() != nil:
		return TypeVideo
	case m.GetAudioMessage() != nil:
		return TypeAudio
	case m.GetDocumentMessage() != nil:
		return TypeDocument
	case m.GetStickerMessage() != nil:
		return TypeSticker
	case m.GetLocationMessage() != nil:
		return TypeLocation
	case m.GetContactMessage() != nil:
		return TypeVCard
	case m.GetConversation() != "", m.GetExtendedTextMessage() != nil:
		return TypeChat
	}
	return TypeUnknown
}

func isMedia(msgType string) bool {
	switch msgType {
	case TypeImage, TypeVideo, TypeAudio, TypeDocument, TypeSticker:
		return true
	}
	return false
}

// mediaKind picks the upload bucket for a mime type.
func mediaKind(mimeType string) whatsmeow.MediaType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return whatsmeow.MediaImage
	case strings.HasPrefix(mimeType, "video/"):
		return whatsmeow.MediaVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return whatsmeow.MediaAudio
	}
	return whatsmeow.MediaDocument
}

// mediaMessage wraps an uploaded attachment in the message type matching kind.
func mediaMessage(kind whatsmeow.MediaType, up whatsmeow.UploadResponse, media model.Media, caption string) *waE2E.Message {
	length := proto.Uint64(up.FileLength)
	var captionPtr *string
	if caption != "" {
		captionPtr = proto.String(caption)
	}
	switch kind {
	case whatsmeow.MediaImage:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       captionPtr,
			Mimetype:      proto.String(media.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    length,
		}}
	case whatsmeow.MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption:       captionPtr,
			Mimetype:      proto.String(media.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    length,
		}}
	case whatsmeow.MediaAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(media.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    length,
		}}
	}
	return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
		Caption:       captionPtr,
		Mimetype:      proto.String(media.MimeType),
		FileName:      proto.String(media.Filename),
		Title:         proto.String(media.Filename),
		URL:           proto.String(up.URL),
		DirectPath:    proto.String(up.DirectPath),
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    length,
	}}
}

type lastInbound struct {
	id     types.MessageID
	sender types.JID
	at     time.Time
}

// seenTracker remembers the latest inbound message per chat so read receipts
// can be sent without the caller knowing message ids or group senders.
type seenTracker struct {
	mu    sync.Mutex
	chats map[types.JID]lastInbound
}

func newSeenTracker() *seenTracker {
	return &seenTracker{chats: make(map[types.JID]lastInbound)}
}

func (t *seenTracker) track(info types.MessageInfo) {
	if info.IsFromMe {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chats[info.Chat] = lastInbound{id: info.ID, sender: info.Sender, at: info.Timestamp}
}

func (t *seenTracker) last(chat types.JID) (lastInbound, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.chats[chat]
	return l, ok
}
