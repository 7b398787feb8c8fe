package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownMessageType(t *testing.T) {
	for _, known := range []string{"text", "image", "document", "audio", "video", "sticker", "template"} {
		assert.True(t, KnownMessageType(known), known)
	}
	assert.False(t, KnownMessageType("reaction"))
	assert.False(t, KnownMessageType(""))
}

func TestHasMedia(t *testing.T) {
	assert.True(t, (&Message{Type: MessageTypeImage}).HasMedia())
	assert.True(t, (&Message{Type: MessageTypeSticker}).HasMedia())
	assert.False(t, (&Message{Type: MessageTypeText}).HasMedia())
	assert.False(t, (&Message{Type: MessageTypeTemplate}).HasMedia())
}
