// Package channel provides channel identifier normalization.
//
// Channel identifiers arrive in two shapes: a bare ID ("42") or a prefixed
// form ("channel_42"). Every comparison between a viewed channel and a
// notification channel must happen on the normalized (unprefixed) form;
// mixing the two silently suppresses or duplicates notifications.
package channel

import (
	"regexp"
	"strconv"
	"strings"
)

// Prefix is the optional channel ID prefix used by the transport.
const Prefix = "channel_"

// Normalize strips the channel prefix from an identifier.
// Normalizing an already-normalized ID is a no-op.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, Prefix)
}

// NormalizeAll returns the normalized form of every identifier in ids,
// dropping entries that normalize to the empty string.
func NormalizeAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := Normalize(id); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Equal reports whether two identifiers refer to the same channel,
// comparing normalized forms.
func Equal(a, b string) bool {
	return Normalize(a) != "" && Normalize(a) == Normalize(b)
}

// bodyRe matches "channel <id>" or "canal <id>" in notification body text.
// The id token is whatever non-space run follows the keyword.
var bodyRe = regexp.MustCompile(`(?i)\b(?:channel|canal)[ _:#]*([^\s.,;!?]+)`)

// FromText extracts a channel identifier from free-form notification body
// text. Returns the normalized ID, or empty string when no identifier is
// present.
func FromText(body string) string {
	m := bodyRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return Normalize(m[1])
}

// ToInt converts a normalized channel ID to its integer form for wire
// frames that carry numeric IDs. Returns 0 for non-numeric IDs.
func ToInt(id string) int {
	n, err := strconv.Atoi(Normalize(id))
	if err != nil {
		return 0
	}
	return n
}
