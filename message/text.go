package message

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// based on: https://stackoverflow.com/a/48769624, with no trailing period allowed
var urlRegex = regexp.MustCompile(`(?:(?:https?|ftp):\/\/)?[\w/\-?=%.]+\.[\w/\-&?=%.]*[\w/\-&?=%]+`)

// GetText returns the message's visible text. With pure=false the raw text
// is returned; with pure=true runs of whitespace are collapsed to single
// spaces, the normalization most detectors run against.
func GetText(m *Message, pure bool) string {
	if m == nil {
		return ""
	}
	t := m.PlainText()
	if !pure {
		return t
	}
	return CollapseWhitespace(t)
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

// CollapseWhitespace replaces runs of 2+ whitespace characters with a
// single space.
func CollapseWhitespace(t string) string {
	return multiSpace.ReplaceAllString(t, " ")
}

// EntityText slices the text span an entity covers. Entity offsets are
// UTF-16 code units, so the text is re-encoded before slicing.
func EntityText(m *Message, e Entity) string {
	t := m.PlainText()
	if t == "" {
		return ""
	}
	u := utf16.Encode([]rune(t))
	if e.Offset < 0 || e.Offset+e.Length > len(u) {
		return ""
	}
	return string(utf16.Decode(u[e.Offset : e.Offset+e.Length]))
}

// ExtractLinks returns every link found in the message: bare URLs in the
// text plus text_link entity targets. Results keep their original casing.
func ExtractLinks(m *Message) []string {
	if m == nil {
		return nil
	}
	var out []string
	out = append(out, urlRegex.FindAllString(m.PlainText(), -1)...)
	for _, e := range m.AllEntities() {
		if e.Type == EntityTextLink && e.URL != "" {
			out = append(out, e.URL)
		}
	}
	return dedupeStrings(out)
}

// ChannelLink returns the public link of the message's forward-origin
// channel, or "" when the message is not a channel forward.
func ChannelLink(m *Message) string {
	if m == nil || m.ForwardFromChat == nil || m.ForwardFromChat.Handle == "" {
		return ""
	}
	return "t.me/" + strings.ToLower(m.ForwardFromChat.Handle)
}

var linkPrefix = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?`)

// StripLink normalizes a link for comparison: scheme and www prefix
// removed, trailing slash removed, lowercased host form preserved as-is on
// the path.
func StripLink(link string) string {
	link = strings.TrimSpace(link)
	link = linkPrefix.ReplaceAllString(link, "")
	return strings.TrimRight(link, "/")
}

func dedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
