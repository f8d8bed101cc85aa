package ui

import (
	"fmt"
	"strings"
	"time"
)

// ResultMetadata describes a tool execution's outcome for display and
// debug tracing.
type ResultMetadata struct {
	Title      string        // tool name
	Icon       string        // tool icon
	Subtitle   string        // short description, typically a path
	Size       int64         // file/content size in bytes
	Duration   time.Duration // execution duration
	LineCount  int           // number of lines
	ItemCount  int           // number of items (files, matches)
	StatusCode int           // HTTP status (WebFetch)
	Truncated  bool          // whether output was cut short
}

// Summary renders the metadata as one compact line:
//
//	Read /path/to/file.go · 2.4 KB · 85 lines · 12ms
func (m ResultMetadata) Summary() string {
	parts := []string{}
	if m.Size > 0 {
		parts = append(parts, FormatSize(m.Size))
	}
	if m.LineCount > 0 {
		parts = append(parts, fmt.Sprintf("%d lines", m.LineCount))
	}
	if m.ItemCount > 0 {
		switch m.Title {
		case "Glob":
			parts = append(parts, fmt.Sprintf("%d files", m.ItemCount))
		case "Grep":
			parts = append(parts, fmt.Sprintf("%d matches", m.ItemCount))
		default:
			parts = append(parts, fmt.Sprintf("%d items", m.ItemCount))
		}
	}
	if m.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", m.StatusCode))
	}
	if m.Duration > 0 {
		parts = append(parts, FormatDuration(m.Duration))
	}
	if m.Truncated {
		parts = append(parts, "(truncated)")
	}

	head := m.Title
	if m.Subtitle != "" {
		head += " " + m.Subtitle
	}
	if len(parts) == 0 {
		return head
	}
	return head + " · " + strings.Join(parts, " · ")
}

// FormatSize renders a byte count in human units.
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDuration renders a duration in the largest useful unit.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
}
