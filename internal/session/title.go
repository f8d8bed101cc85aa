package session

import (
	"strings"
	"unicode/utf8"
)

// MaxTitleLength bounds a generated session title.
const MaxTitleLength = 60

// GenerateTitle derives a session title from the first user prompt.
func GenerateTitle(messages []StoredMessage) string {
	for _, msg := range messages {
		if msg.Role == "user" && msg.Content != "" {
			return truncateTitle(msg.Content)
		}
	}
	return "Untitled Session"
}

// truncateTitle collapses whitespace and cuts at MaxTitleLength runes,
// preferring a word boundary when one falls in the second half.
func truncateTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= MaxTitleLength {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:MaxTitleLength])
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > MaxTitleLength/2 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut) + "..."
}
