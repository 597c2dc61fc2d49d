// Package message defines the immutable message snapshot consumed by the
// classification pipeline, plus text and link extraction helpers.
package message

// User is a chat platform account.
type User struct {
	ID     int64
	Name   string
	Handle string
	IsSelf bool
	IsBot  bool
}

// Chat is a group or channel.
type Chat struct {
	ID     int64
	Handle string
	Title  string
}

// EntityType tags a structured span inside message text.
type EntityType string

const (
	EntityMention     EntityType = "mention"
	EntityUserMention EntityType = "user_mention"
	EntityCommand     EntityType = "bot_command"
	EntityURL         EntityType = "url"
	EntityTextLink    EntityType = "text_link"
)

// Entity is a structured span. Offset and Length are in UTF-16 code units,
// matching the platform wire format.
type Entity struct {
	Type   EntityType
	Offset int
	Length int
	// URL is set for text_link entities.
	URL string
	// User is set for user_mention entities (mention without a handle).
	User *User
}

// FileRef is an opaque handle the platform collaborator can download.
type FileRef struct {
	ID     string
	Unique string
}

type Sticker struct {
	SetName  string
	Animated bool
	FileRef  FileRef
}

type Document struct {
	FileName string
	MimeType string
	FileRef  FileRef
}

type Game struct {
	ShortName string
}

type Photo struct {
	FileRef FileRef
	Width   int
	Height  int
}

// Message is a snapshot of one inbound group message. The pipeline never
// mutates it.
type Message struct {
	ChatID int64
	// ChatHandle is the public handle of the hosting group, when it has one.
	ChatHandle string
	ID         int64
	// Date is the platform unix timestamp of the message.
	Date int64

	From            *User
	ForwardFrom     *User
	ForwardFromChat *Chat

	Text            string
	Caption         string
	Entities        []Entity
	CaptionEntities []Entity

	Contact   bool
	Location  bool
	Venue     bool
	VideoNote bool
	Voice     bool
	Audio     bool
	Video     bool
	Animation *FileRef
	Sticker   *Sticker
	Document  *Document
	Game      *Game
	Photo     *Photo
	Dice      bool
	Poll      bool

	ViaBot       bool
	Service      bool
	EditDate     int64
	MediaGroupID string
}

// PlainText returns text or caption, whichever is present.
func (m *Message) PlainText() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// AllEntities returns text entities or caption entities, whichever apply to
// the message's visible text.
func (m *Message) AllEntities() []Entity {
	if len(m.Entities) != 0 {
		return m.Entities
	}
	return m.CaptionEntities
}

// HasMedia reports whether any media payload is attached.
func (m *Message) HasMedia() bool {
	return m.VideoNote || m.Voice || m.Audio || m.Video ||
		m.Animation != nil || m.Sticker != nil || m.Document != nil ||
		m.Game != nil || m.Photo != nil
}

// IsEmptyPayload reports whether the message carries no visible payload at
// all: no text, no entities, no media, no contact/location, not a service
// message or edit. Interactive dice sent without a companion payload look
// exactly like this on the wire.
func (m *Message) IsEmptyPayload() bool {
	if m.From == nil || m.ForwardFromChat != nil {
		return false
	}
	return !m.Service && !m.HasMedia() && m.EditDate == 0 &&
		m.MediaGroupID == "" && m.Text == "" && m.Caption == "" &&
		len(m.Entities) == 0 && len(m.CaptionEntities) == 0 &&
		!m.Contact && !m.Location && !m.Venue && !m.Poll && !m.ViaBot
}

// ImageRef returns the downloadable reference for the message's largest
// image payload, if any. Stickers and photos both qualify for QR scanning.
func (m *Message) ImageRef() (FileRef, bool) {
	if m.Photo != nil {
		return m.Photo.FileRef, true
	}
	if m.Sticker != nil && !m.Sticker.Animated && m.Sticker.FileRef.ID != "" {
		return m.Sticker.FileRef, true
	}
	if m.Document != nil && m.Document.FileRef.ID != "" && isImageMime(m.Document.MimeType) {
		return m.Document.FileRef, true
	}
	return FileRef{}, false
}

func isImageMime(mime string) bool {
	switch mime {
	case "image/png", "image/jpeg", "image/webp":
		return true
	}
	return false
}
