// Package emoji counts configured emoji symbols in message text and
// classifies the totals against per-purpose thresholds.
package emoji

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Purpose selects which threshold set applies to a count.
type Purpose string

const (
	PurposeAd        Purpose = "ad"
	PurposeMany      Purpose = "many"
	PurposeWatchbait Purpose = "wb"
)

// Thresholds holds the operator-tuned limits, injected at startup.
type Thresholds struct {
	AdSingle int
	AdTotal  int
	Many     int
	WbSingle int
	WbTotal  int
}

// Counter evaluates texts against a tracked symbol set. Immutable after
// construction, safe for concurrent use.
type Counter struct {
	tracked   []string
	protected map[string]bool
	limits    Thresholds
}

// New builds a counter. tracked are the symbols to count; protected symbols
// are never counted even when tracked.
func New(tracked []string, protected []string, limits Thresholds) *Counter {
	prot := make(map[string]bool, len(protected))
	for _, s := range protected {
		prot[s] = true
	}
	return &Counter{
		tracked:   tracked,
		protected: prot,
		limits:    limits,
	}
}

// Check reports whether the text's emoji composition crosses the threshold
// for the given purpose.
//
// The symbol set is narrowed to tracked symbols actually present in the
// text, minus protected ones. Any symbol that is a strict substring of a
// different present symbol is dropped, so a short symbol nested inside a
// longer sequence is not double counted. Remaining symbols are counted by
// occurrences.
func (c *Counter) Check(purpose Purpose, text string) bool {
	if text == "" {
		return false
	}
	counts := c.count(text)

	total := 0
	single := 0
	for _, n := range counts {
		total += n
		if n > single {
			single = n
		}
	}

	switch purpose {
	case PurposeAd:
		return (c.limits.AdSingle > 0 && single >= c.limits.AdSingle) ||
			(c.limits.AdTotal > 0 && total >= c.limits.AdTotal)
	case PurposeMany:
		return c.limits.Many > 0 && total >= c.limits.Many
	case PurposeWatchbait:
		return (c.limits.WbSingle > 0 && single >= c.limits.WbSingle) ||
			(c.limits.WbTotal > 0 && total >= c.limits.WbTotal)
	}
	return false
}

func (c *Counter) count(text string) map[string]int {
	present := make(map[string]bool)
	for _, s := range c.tracked {
		if c.protected[s] {
			continue
		}
		if strings.Contains(text, s) {
			present[s] = true
		}
	}

	// Drop symbols nested inside a longer present symbol.
	for s := range present {
		for other := range present {
			if s != other && strings.Contains(other, s) {
				delete(present, s)
				break
			}
		}
	}

	// Count non-overlapping occurrences aligned to grapheme boundaries, so
	// a tracked symbol nested in an unrelated joiner sequence is not
	// miscounted.
	offsets := graphemeOffsets(text)
	counts := make(map[string]int, len(present))
	for s := range present {
		counts[s] = countAt(text, s, offsets)
	}
	return counts
}

func graphemeOffsets(text string) []int {
	offsets := make([]int, 0, len(text))
	state := -1
	pos := 0
	rest := text
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.StepString(rest, state)
		offsets = append(offsets, pos)
		pos += len(cluster)
	}
	return offsets
}

func countAt(text, symbol string, offsets []int) int {
	n := 0
	next := 0
	for _, off := range offsets {
		if off < next {
			continue
		}
		if strings.HasPrefix(text[off:], symbol) {
			n++
			next = off + len(symbol)
		}
	}
	return n
}
