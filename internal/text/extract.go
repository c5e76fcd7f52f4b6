package text

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```json\\s*(\\{.*\\})\\s*```")

// badEscapeRe matches backslashes that start an escape sequence JSON does
// not define. Language models regularly emit raw LaTeX inside JSON strings
// ("\frac", "\alpha"), which makes the payload unparsable as-is.
var badEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// ExtractJSON pulls a JSON object out of a model reply that may be wrapped
// in a ```json code fence, repairing invalid escape sequences before
// unmarshalling into v.
func ExtractJSON(reply string, v interface{}) error {
	raw := reply
	if m := fenceRe.FindStringSubmatch(reply); m != nil {
		raw = m[1]
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	// Second attempt: escape only the invalid sequences and retry.
	repaired := badEscapeRe.ReplaceAllString(raw, `\\$1`)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("decoding model reply as JSON: %w", err)
	}
	return nil
}

// StripFence removes a surrounding markdown code fence of any language tag,
// returning the inner text. Replies without a fence pass through unchanged.
func StripFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
