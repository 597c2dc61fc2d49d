package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/policy"
)

func TestFingerprint(t *testing.T) {
	assert := assert.New(t)

	fp := Fingerprint("hello")
	assert.Len(fp, 16)
	assert.Equal(fp, Fingerprint("hello"))
	assert.NotEqual(fp, Fingerprint("hello "))
}

func TestMessageFingerprint(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", MessageFingerprint(nil))
	assert.Equal("", MessageFingerprint(&message.Message{}))

	// text fingerprints are whitespace-insensitive
	a := MessageFingerprint(&message.Message{Text: "spam  text"})
	b := MessageFingerprint(&message.Message{Text: "spam text"})
	assert.Equal(a, b)
	assert.NotEqual(a, MessageFingerprint(&message.Message{Text: "other"}))

	// media identity wins over text
	sticker := &message.Message{
		Text:    "spam text",
		Sticker: &message.Sticker{FileRef: message.FileRef{Unique: "u1"}},
	}
	assert.NotEqual(a, MessageFingerprint(sticker))

	// the same file as sticker and document are distinct content
	doc := &message.Message{Document: &message.Document{FileRef: message.FileRef{Unique: "u1"}}}
	assert.NotEqual(MessageFingerprint(sticker), MessageFingerprint(doc))

	photo := &message.Message{Photo: &message.Photo{FileRef: message.FileRef{Unique: "u2"}}}
	anim := &message.Message{Animation: &message.FileRef{Unique: "u3"}}
	assert.NotEqual(MessageFingerprint(photo), MessageFingerprint(anim))
}

func TestMemCache(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	c := NewMemCache(100, time.Hour)

	cat, err := c.Get(ctx, "fp1")
	assert.NoError(err)
	assert.Equal(policy.None, cat)

	assert.NoError(c.Set(ctx, "fp1", policy.IMContact))
	cat, err = c.Get(ctx, "fp1")
	assert.NoError(err)
	assert.Equal(policy.IMContact, cat)

	assert.NoError(c.Purge(ctx, "fp1"))
	cat, _ = c.Get(ctx, "fp1")
	assert.Equal(policy.None, cat)
}
