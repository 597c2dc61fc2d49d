// Package content maps normalized content fingerprints to the category
// they were previously classified as, so repeated spam is cheap to verdict.
package content

import (
	"context"
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/policy"
)

// Cache stores fingerprint to category mappings. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, fingerprint string) (policy.Category, error)
	Set(ctx context.Context, fingerprint string, cat policy.Category) error
	Purge(ctx context.Context, fingerprint string) error
}

// Fingerprint returns a fast, compact hash of a string.
//
// current implementation uses murmur3, default seed, and hex encoding
func Fingerprint(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// MessageFingerprint derives the normalized content fingerprint the cache
// is keyed by: media file identity when present, else collapsed text.
func MessageFingerprint(m *message.Message) string {
	if m == nil {
		return ""
	}
	switch {
	case m.Sticker != nil && m.Sticker.FileRef.Unique != "":
		return Fingerprint("sticker/" + m.Sticker.FileRef.Unique)
	case m.Document != nil && m.Document.FileRef.Unique != "":
		return Fingerprint("document/" + m.Document.FileRef.Unique)
	case m.Photo != nil && m.Photo.FileRef.Unique != "":
		return Fingerprint("photo/" + m.Photo.FileRef.Unique)
	case m.Animation != nil && m.Animation.Unique != "":
		return Fingerprint("animation/" + m.Animation.Unique)
	}
	text := message.GetText(m, true)
	if text == "" {
		return ""
	}
	return Fingerprint("text/" + text)
}
