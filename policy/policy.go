// Package policy defines the fixed vocabulary of violation categories and
// the per-group configuration which enables or disables each of them.
package policy

// Category identifies why a message is disallowed in a group. The vocabulary
// is closed: callers must not invent new values at runtime.
type Category string

const (
	// Privacy categories, on by default.
	Contact   Category = "con"
	Location  Category = "loc"
	VideoNote Category = "vdn"
	Voice     Category = "voi"
	Service   Category = "ser"

	// Basic and media-type categories.
	AnimatedSticker Category = "ast"
	Audio           Category = "aud"
	BotCommand      Category = "bmd"
	Document        Category = "doc"
	Game            Category = "gam"
	GIF             Category = "gif"
	ViaBot          Category = "via"
	Video           Category = "vid"
	Sticker         Category = "sti"
	Dice            Category = "dic"

	// Spam categories.
	PromoLink     Category = "aff"
	EmojiSpam     Category = "emo"
	Executable    Category = "exe"
	IMContact     Category = "iml"
	PhoneNumber   Category = "pho"
	ShortLink     Category = "sho"
	PlatformLink  Category = "tgl"
	PlatformProxy Category = "tgp"
	QRCode        Category = "qrc"

	// Scheduling flags. These are never returned as verdicts; they gate
	// periodic cleanup behavior owned by external schedulers.
	SelfDelete    Category = "sde"
	CleanMembers  Category = "tcl"
	TimedStickers Category = "ttd"

	// Detected is a synthetic verdict: the sender was already punished
	// recently and the caller should act without re-classifying. It is not
	// part of the config vocabulary.
	Detected Category = "true"

	// None means the message is allowed.
	None Category = ""
)

// AllCategories is every config-gated verdict category, in pipeline order.
var AllCategories = []Category{
	Contact, Location, VideoNote, Voice,
	AnimatedSticker, Audio, BotCommand, Document, Game, GIF, ViaBot, Video,
	Service, Sticker, Dice,
	PromoLink, EmojiSpam, Executable, IMContact, PhoneNumber, ShortLink,
	PlatformLink, PlatformProxy, QRCode,
}

// SchedulingFlags are config keys that never appear as verdicts.
var SchedulingFlags = []Category{SelfDelete, CleanMembers, TimedStickers}

// defaultOn lists the categories enabled when a group has no explicit
// setting.
var defaultOn = map[Category]bool{
	Contact:   true,
	Location:  true,
	VideoNote: true,
	Voice:     true,
	Service:   true,
}

// Valid reports whether c is a known config key (verdict category or
// scheduling flag).
func Valid(c Category) bool {
	for _, k := range AllCategories {
		if c == k {
			return true
		}
	}
	for _, k := range SchedulingFlags {
		if c == k {
			return true
		}
	}
	return false
}
