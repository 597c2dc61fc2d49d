// Package detect layers composite signal detectors on top of the rule bank
// and emoji counter. All detectors are pure with respect to their inputs
// except for rule-bank hit counting.
package detect

import (
	"regexp"
	"strings"

	"github.com/chatsweep/chatsweep/emoji"
	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/rulebank"
)

// AdVariant returns the first ad-variant letter whose rule class matches
// the text, skipping the excluded letter. Zero means no variant matched.
// Each letter is a distinct evasion-spelling family; matching two distinct
// families is itself a strong signal (see IsBan).
func AdVariant(bank *rulebank.Bank, text string, ocr bool, exclude byte) byte {
	if text == "" {
		return 0
	}
	for i := 0; i < len(rulebank.VariantLetters); i++ {
		c := rulebank.VariantLetters[i]
		if c == exclude {
			continue
		}
		if bank.Has(rulebank.Variant(c), text, ocr) {
			return c
		}
	}
	return 0
}

// IsContact reports contact-intent: a hit on the contact, IM or phone rule
// classes.
func IsContact(bank *rulebank.Bank, text string, ocr bool) bool {
	return bank.Has(rulebank.ClassContact, text, ocr) ||
		bank.Has(rulebank.ClassIM, text, ocr) ||
		bank.Has(rulebank.ClassPhone, text, ocr)
}

// IsBan reports whether the text is ban-worthy: a direct ban-rule hit, or
// one of the suspicious conjunctions of ad intent, contact intent, ad
// emoji, and ad-variant spellings.
func IsBan(bank *rulebank.Bank, counter *emoji.Counter, text string, ocr bool) bool {
	if bank.Has(rulebank.ClassBan, text, ocr) {
		return true
	}

	con := IsContact(bank, text, ocr)
	if bank.Has(rulebank.ClassAd, text, ocr) && con {
		return true
	}

	adEmoji := counter.Check(emoji.PurposeAd, text)
	if adEmoji && con {
		return true
	}

	variant := AdVariant(bank, text, ocr, 0)
	if variant == 0 {
		return false
	}
	if con || adEmoji {
		return true
	}
	// Two distinct variant families matching the same text.
	return AdVariant(bank, text, ocr, variant) != 0
}

// IsWatchbait reports watchbait text: the base watchbait rule or any of the
// spam-adjacent classes, or any ad-variant family except "i".
func IsWatchbait(bank *rulebank.Bank, text string, ocr bool) bool {
	for _, class := range []rulebank.Class{
		rulebank.ClassWatchbait, rulebank.ClassAd, rulebank.ClassIM,
		rulebank.ClassPhone, rulebank.ClassShortLink, rulebank.ClassSpecial,
	} {
		if bank.Has(class, text, ocr) {
			return true
		}
	}
	for i := 0; i < len(rulebank.VariantLetters); i++ {
		c := rulebank.VariantLetters[i]
		if c == 'i' {
			continue
		}
		if bank.Has(rulebank.Variant(c), text, ocr) {
			return true
		}
	}
	return false
}

// IsBio reports whether a user bio is disallowed.
func IsBio(bank *rulebank.Bank, counter *emoji.Counter, text string) bool {
	return bank.Has(rulebank.ClassBio, text, false) ||
		IsBan(bank, counter, text, false)
}

// IsNewMemberName reports whether a joining member's display text is
// disallowed.
func IsNewMemberName(bank *rulebank.Bank, counter *emoji.Counter, text string) bool {
	return bank.Has(rulebank.ClassNewMember, text, false) ||
		IsBio(bank, counter, text)
}

var exeExtensions = []string{"apk", "bat", "cmd", "com", "exe", "msi", "pif", "scr", "vbs"}

// IsExecutable reports whether the message carries an executable payload:
// by document file name, by document MIME type, or by a link pointing at an
// executable download. Links skip the "com" extension since .com is a TLD.
func IsExecutable(m *message.Message, links []string) bool {
	if m != nil && m.Document != nil {
		name := strings.ToLower(m.Document.FileName)
		for _, ext := range exeExtensions {
			if strings.HasSuffix(name, "."+ext) {
				return true
			}
		}
		mime := m.Document.MimeType
		if strings.Contains(mime, "application/x-ms") || strings.Contains(mime, "executable") {
			return true
		}
	}
	for _, link := range links {
		l := strings.ToLower(link)
		for _, ext := range exeExtensions {
			if ext == "com" {
				continue
			}
			if strings.HasSuffix(l, "."+ext) {
				return true
			}
		}
	}
	return false
}

var commandShape = regexp.MustCompile(`(?i)^/[a-z0-9]|^/$`)

// IsBotCommand reports whether the text is a stray slash command: shaped
// like a command, not one of the known administrative commands, and not an
// invocation carrying arguments for one.
func IsBotCommand(m *message.Message, knownCommands map[string]bool) bool {
	text := message.GetText(m, false)
	if text == "" || !commandShape.MatchString(text) {
		return false
	}
	first := strings.SplitN(text, " ", 2)[0]
	if strings.Contains(first[1:], "/") {
		return false
	}
	if knownCommands[strings.TrimPrefix(first, "/")] {
		return false
	}
	// A command with a payload resolves to some handler; only bare unknown
	// commands count.
	return len(strings.Fields(text)) == 1
}
