package model

import (
	"fmt"
	"time"
)

// InboundMessage is the normalized envelope relayed to subscribers for every
// message the protocol client receives. Its shape does not depend on the client library.
type InboundMessage struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Author    string    `json:"author,omitempty"`
	FromMe    bool      `json:"fromMe"`
	IsStatus  bool      `json:"isStatus"`
	IsGroup   bool      `json:"isGroupMsg"`
	HasMedia  bool      `json:"hasMedia"`
	Type      string    `json:"type"`
}

// SendResult acknowledges a message accepted by the protocol client.
type SendResult struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// Media is an attachment ready to be uploaded.
type Media struct {
	Data     []byte
	MimeType string
	Filename string
}

// ContactInfo holds profile fields of a contact or group.
type ContactInfo struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	Name          string `json:"name,omitempty"`
	PushName      string `json:"pushname,omitempty"`
	BusinessName  string `json:"businessName,omitempty"`
	About         string `json:"about,omitempty"`
	ProfilePicURL string `json:"profilePicUrl,omitempty"`
	IsMe          bool   `json:"isMe"`
	IsUser        bool   `json:"isUser"`
	IsGroup       bool   `json:"isGroup"`
	IsRegistered  bool   `json:"isWAUser"`
}

// SendTextRequest represents a request to send a text message.
type SendTextRequest struct {
	Number     string `json:"number"`
	Message    string `json:"message"`
	RegionCode string `json:"regionCode"`
}

// Validate validates the send text request.
func (r *SendTextRequest) Validate() error {
	if r.Number == "" {
		return fmt.Errorf("%w: number is required", ErrInvalidArgument)
	}
	if r.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidArgument)
	}
	return nil
}

// SendMediaRequest represents a request to send an image. Exactly one of
// Media and URL must be set.
type SendMediaRequest struct {
	Number     string
	Caption    string
	RegionCode string
	Media      *Media
	URL        string
}

// Validate validates the send media request.
func (r *SendMediaRequest) Validate() error {
	if r.Number == "" {
		return fmt.Errorf("%w: number is required", ErrInvalidArgument)
	}
	hasPayload := r.Media != nil && len(r.Media.Data) > 0
	switch {
	case hasPayload && r.URL != "":
		return fmt.Errorf("%w: provide either a file or a url, not both", ErrInvalidArgument)
	case !hasPayload && r.URL == "":
		return fmt.Errorf("%w: a file or a url is required", ErrInvalidArgument)
	}
	return nil
}

// SendLocationRequest represents a request to send a location pin.
// Lat and Lon are pointers so a zero coordinate is distinguishable from an absent one.
type SendLocationRequest struct {
	Number      string   `json:"number"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Description string   `json:"description"`
	RegionCode  string   `json:"regionCode"`
}

// Validate validates the send location request.
func (r *SendLocationRequest) Validate() error {
	if r.Number == "" {
		return fmt.Errorf("%w: number is required", ErrInvalidArgument)
	}
	if r.Lat == nil || r.Lon == nil {
		return fmt.Errorf("%w: lat and lon are required", ErrInvalidArgument)
	}
	if *r.Lat < -90 || *r.Lat > 90 || *r.Lon < -180 || *r.Lon > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidArgument)
	}
	return nil
}
