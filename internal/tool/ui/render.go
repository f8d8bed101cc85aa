// Package ui defines the result vocabulary tools return: a ToolResult
// with typed content (lines, file lists, todo items) plus metadata, and
// the plain-text projection of it fed back to the model.
package ui

import (
	"strconv"
	"strings"
)

// ToolResult is what every tool execution produces.
type ToolResult struct {
	Success   bool
	Output    string // main output content
	Error     string // error message when Success is false
	Metadata  ResultMetadata
	Lines     []ContentLine // numbered content (Read, Grep)
	Files     []string      // file list (Glob)
	TodoItems []TodoItem    // checklist snapshot (TodoWrite)
}

// TodoItem is one checklist entry managed by the TodoWrite tool.
type TodoItem struct {
	Content    string `json:"content"`
	Status     string `json:"status"` // pending, in_progress, completed
	ActiveForm string `json:"activeForm"`
}

// NewErrorResult builds a failed result carrying only an error message.
func NewErrorResult(title, errorMsg string) ToolResult {
	return ToolResult{
		Success:  false,
		Error:    errorMsg,
		Metadata: ResultMetadata{Title: title},
	}
}

// FormatForLLM projects the result to the plain text appended to the
// conversation as the tool-role message. Typed content renders in the
// shape the model expects from the corresponding tool: bare lines for
// Read, paths for Glob, file:line:text for Grep.
func (r ToolResult) FormatForLLM() string {
	if !r.Success {
		return "Error: " + r.Error
	}

	var sb strings.Builder
	switch r.Metadata.Title {
	case "Read":
		if len(r.Lines) == 0 {
			sb.WriteString(r.Output)
			break
		}
		for _, line := range r.Lines {
			sb.WriteString(line.Text)
			sb.WriteString("\n")
		}
	case "Glob":
		if len(r.Files) == 0 {
			sb.WriteString(r.Output)
			break
		}
		for _, f := range r.Files {
			sb.WriteString(f)
			sb.WriteString("\n")
		}
	case "Grep":
		if len(r.Lines) == 0 {
			sb.WriteString(r.Output)
			break
		}
		for _, line := range r.Lines {
			if line.File != "" {
				sb.WriteString(line.File)
				sb.WriteString(":")
			}
			if line.LineNo > 0 {
				sb.WriteString(strconv.Itoa(line.LineNo))
				sb.WriteString(":")
			}
			sb.WriteString(line.Text)
			sb.WriteString("\n")
		}
	default:
		sb.WriteString(r.Output)
	}

	return sb.String()
}
