// Package rulebank implements the adaptive regex rule bank backing most
// text detectors. Each rule class holds an ordered list of patterns with
// monotonic hit counters; the first matching pattern wins and is counted,
// which keeps the bank self-describing about which signatures fire most.
package rulebank

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Class identifies a rule category. The set is closed; ad-variant classes
// are derived with Variant.
type Class string

const (
	ClassAd        Class = "ad"
	ClassPromo     Class = "adi"
	ClassBan       Class = "ban"
	ClassBio       Class = "bio"
	ClassContact   Class = "con"
	ClassIM        Class = "iml"
	ClassNewMember Class = "nm"
	ClassPhone     Class = "pho"
	ClassShortLink Class = "sho"
	ClassSpecial   Class = "spc"
	ClassPlatform  Class = "tgl"
	ClassProxy     Class = "tgp"
	ClassWatchbait Class = "wb"
)

// Variant returns the ad-variant class for a lowercase letter. Each letter
// names a distinct evasion-spelling family.
func Variant(c byte) Class {
	return Class("ad" + string(c))
}

// VariantLetters is the full ad-variant space.
const VariantLetters = "abcdefghijklmnopqrstuvwxyz"

// Classes lists every base class, in persistence order.
var Classes = []Class{
	ClassAd, ClassPromo, ClassBan, ClassBio, ClassContact, ClassIM,
	ClassNewMember, ClassPhone, ClassShortLink, ClassSpecial,
	ClassPlatform, ClassProxy, ClassWatchbait,
}

// nocrTag marks a pattern as not applicable to OCR-derived text, which
// lacks reliable casing and spacing.
const nocrTag = "(?# nocr)"

type rule struct {
	raw  string
	re   *regexp.Regexp
	hits uint64
	nocr bool
}

// Match describes a rule hit.
type Match struct {
	Class   Class
	Pattern string
	// Text is the matched substring, post-normalization.
	Text string
}

// Bank is a mutable registry of rule classes. A single mutex serializes
// class mutation (pattern replacement and counter increments); read scans
// copy the slice header under the lock so a concurrent mutation never
// exposes a partially updated rule set.
type Bank struct {
	mu      sync.Mutex
	classes map[Class][]*rule
	onDirty func(class Class)
}

// New returns an empty bank. onDirty, if non-nil, is invoked (outside the
// bank lock) whenever a class's counters or patterns change, so the
// persistence collaborator can schedule a flush.
func New(onDirty func(class Class)) *Bank {
	if onDirty == nil {
		onDirty = func(Class) {}
	}
	return &Bank{
		classes: make(map[Class][]*rule),
		onDirty: onDirty,
	}
}

// SetPatterns replaces a class's rule list. Counters for surviving patterns
// are preserved. Invalid patterns are rejected wholesale.
func (b *Bank) SetPatterns(class Class, patterns []string) error {
	compiled := make([]*rule, 0, len(patterns))
	for _, p := range patterns {
		expr := strings.ReplaceAll(p, nocrTag, "")
		re, err := regexp.Compile("(?is)" + expr)
		if err != nil {
			return fmt.Errorf("compiling rule %q for class %s: %w", p, class, err)
		}
		compiled = append(compiled, &rule{
			raw:  p,
			re:   re,
			nocr: strings.Contains(p, nocrTag),
		})
	}

	b.mu.Lock()
	old := b.classes[class]
	prev := make(map[string]uint64, len(old))
	for _, r := range old {
		prev[r.raw] = r.hits
	}
	for _, r := range compiled {
		r.hits = prev[r.raw]
	}
	b.classes[class] = compiled
	b.mu.Unlock()

	b.onDirty(class)
	return nil
}

// Snapshot returns the class's patterns and hit counts, in evaluation
// order.
func (b *Bank) Snapshot(class Class) map[string]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]uint64, len(b.classes[class]))
	for _, r := range b.classes[class] {
		out[r.raw] = r.hits
	}
	return out
}

// Match evaluates text against a rule class.
//
// The text is normalized first: runs of whitespace collapse to one space.
// If nothing matches and the normalized text still contains a space, a
// second pass strips all whitespace and retries once, catching evasion via
// inserted spaces. A text with no spaces never retries.
//
// ocrMode skips rules tagged "(?# nocr)". On a hit the winning rule's
// counter increments and the class is flagged dirty; only the first match
// in bank order is counted and returned.
func (b *Bank) Match(class Class, text string, ocrMode bool) *Match {
	if text == "" {
		return nil
	}
	normalized := multiSpace.ReplaceAllString(text, " ")

	if m := b.scan(class, normalized, ocrMode); m != nil {
		return m
	}
	if !strings.Contains(normalized, " ") {
		return nil
	}
	stripped := allSpace.ReplaceAllString(normalized, "")
	return b.scan(class, stripped, ocrMode)
}

var (
	multiSpace = regexp.MustCompile(`\s{2,}`)
	allSpace   = regexp.MustCompile(`\s`)
)

func (b *Bank) scan(class Class, text string, ocrMode bool) *Match {
	b.mu.Lock()
	rules := b.classes[class]
	b.mu.Unlock()

	for _, r := range rules {
		if ocrMode && r.nocr {
			continue
		}
		loc := r.re.FindString(text)
		if loc == "" && !r.re.MatchString(text) {
			continue
		}

		b.mu.Lock()
		r.hits++
		b.mu.Unlock()
		b.onDirty(class)

		return &Match{Class: class, Pattern: r.raw, Text: loc}
	}
	return nil
}

// Has reports whether text matches the class, without caring about which
// rule hit.
func (b *Bank) Has(class Class, text string, ocrMode bool) bool {
	return b.Match(class, text, ocrMode) != nil
}
