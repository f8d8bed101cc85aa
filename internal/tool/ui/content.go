package ui

import "github.com/mattn/go-runewidth"

// LineType classifies a ContentLine for rendering.
type LineType int

const (
	LineNormal    LineType = iota
	LineMatch              // a matched line (Grep)
	LineHeader             // a file header
	LineTruncated          // truncation marker
)

// ContentLine is one numbered line of tool output. LineNo 0 means the
// line carries no number; File is set for cross-file match listings.
type ContentLine struct {
	LineNo int
	Text   string
	Type   LineType
	File   string
}

// MaxLineLength caps a single content line before it is clipped.
const MaxLineLength = 500

// TruncatePreview clips s to maxWidth display columns with an ellipsis,
// counting wide (CJK, emoji) runes as two columns so a multi-byte
// preview never gets cut mid-character.
func TruncatePreview(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
