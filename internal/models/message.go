package models

import (
	"time"
)

const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeDocument = "document"
	MessageTypeAudio    = "audio"
	MessageTypeVideo    = "video"
	MessageTypeSticker  = "sticker"
	MessageTypeTemplate = "template"
)

// KnownMessageType reports whether t is one of the supported message kinds.
func KnownMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeDocument,
		MessageTypeAudio, MessageTypeVideo, MessageTypeSticker, MessageTypeTemplate:
		return true
	}
	return false
}

// MediaRef is the payload of image/document/audio/video/sticker messages.
// URL may be empty when the media store was unavailable at ingestion time.
type MediaRef struct {
	MimeType string `json:"mime_type"`
	MediaID  string `json:"media_id"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
}

// TemplateRender is the payload of template messages after all placeholders
// have been substituted.
type TemplateRender struct {
	Name   string `json:"name"`
	Header string `json:"header,omitempty"`
	Body   string `json:"body"`
	Footer string `json:"footer,omitempty"`
}

// Message is immutable once stored except for the read transition
// (is_read false -> true sets read_at, never reverts).
type Message struct {
	ID        string          `json:"id" db:"id"`
	Sender    string          `json:"sender" db:"sender"`
	Receiver  string          `json:"receiver" db:"receiver"`
	Content   string          `json:"content" db:"content"`
	Type      string          `json:"type" db:"type"`
	Media     *MediaRef       `json:"media,omitempty"`
	Template  *TemplateRender `json:"template,omitempty"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	IsRead    bool            `json:"is_read" db:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty" db:"read_at"`

	// IsSentByMe is viewer-relative and computed at read time, never stored.
	IsSentByMe bool `json:"is_sent_by_me"`
}

// HasMedia reports whether this message type carries a MediaRef payload.
func (m *Message) HasMedia() bool {
	switch m.Type {
	case MessageTypeImage, MessageTypeDocument, MessageTypeAudio,
		MessageTypeVideo, MessageTypeSticker:
		return true
	}
	return false
}
