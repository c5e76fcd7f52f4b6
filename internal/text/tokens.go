package text

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens estimates the token footprint of s. Uses the cl100k_base
// BPE when the encoding can be loaded, falling back to a 4-chars-per-token
// estimate otherwise so callers always get a usable budget number.
func CountTokens(s string) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	if enc != nil {
		return len(enc.Encode(s, nil, nil))
	}
	return len(s) / 4
}

// TruncateSections joins sections in order until adding the next one would
// exceed the token budget. Truncation is deterministic: earlier sections
// always win, and a section is either included whole or not at all, except
// the first section which is hard-cut if it alone exceeds the budget.
func TruncateSections(sections []string, budget int) string {
	if budget <= 0 {
		return ""
	}

	var b strings.Builder
	used := 0
	for i, s := range sections {
		cost := CountTokens(s)
		if used+cost > budget {
			if i == 0 {
				return hardCut(s, budget)
			}
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
		used += cost
	}
	return b.String()
}

// hardCut trims s to approximately budget tokens on a rune boundary.
func hardCut(s string, budget int) string {
	runes := []rune(s)
	// Binary-search-free approximation: shrink until it fits.
	limit := budget * 4
	if limit > len(runes) {
		limit = len(runes)
	}
	cut := string(runes[:limit])
	for CountTokens(cut) > budget && limit > 0 {
		limit = limit * 9 / 10
		cut = string(runes[:limit])
	}
	return cut
}
