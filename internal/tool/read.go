package tool

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"time"

	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const (
	maxReadLines  = 2000
	maxLineLength = 500
)

// ReadTool returns a file's contents as numbered lines, windowed by
// offset/limit and with overlong lines clipped.
type ReadTool struct{}

func (t *ReadTool) Name() string        { return "Read" }
func (t *ReadTool) Description() string { return "Read file contents" }
func (t *ReadTool) Icon() string        { return ui.IconRead }

func (t *ReadTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	filePath, ok := params["file_path"].(string)
	if !ok || filePath == "" {
		return ui.NewErrorResult(t.Name(), "file_path is required")
	}
	filePath = resolvePath(filePath, cwd)

	offset := intParam(params, "offset", 0)
	limit := intParam(params, "limit", maxReadLines)
	if limit <= 0 {
		limit = maxReadLines
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ui.NewErrorResult(t.Name(), "file not found: "+filePath)
		}
		return ui.NewErrorResult(t.Name(), "failed to stat file: "+err.Error())
	}
	if info.IsDir() {
		return ui.NewErrorResult(t.Name(), "path is a directory: "+filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return ui.NewErrorResult(t.Name(), "failed to open file: "+err.Error())
	}
	defer file.Close()

	// A NUL in the first block marks the file as binary; don't dump it
	// into the conversation.
	header := make([]byte, 512)
	if n, _ := file.Read(header); n > 0 && bytes.IndexByte(header[:n], 0) >= 0 {
		return ui.ToolResult{
			Success: true,
			Output:  "Binary file detected: " + filePath,
			Metadata: ui.ResultMetadata{
				Title:    t.Name(),
				Icon:     t.Icon(),
				Subtitle: filePath + " (binary)",
				Size:     info.Size(),
			},
		}
	}
	file.Seek(0, 0)

	var lines []ui.ContentLine
	scanner := bufio.NewScanner(file)
	lineNo := 0
	truncated := false

	for scanner.Scan() {
		lineNo++
		if offset > 0 && lineNo < offset {
			continue
		}
		if len(lines) >= limit {
			truncated = true
			break
		}

		text := scanner.Text()
		if len(text) > maxLineLength {
			text = text[:maxLineLength] + "..."
		}
		lines = append(lines, ui.ContentLine{
			LineNo: lineNo,
			Text:   text,
			Type:   ui.LineNormal,
		})
	}
	if err := scanner.Err(); err != nil {
		return ui.NewErrorResult(t.Name(), "error reading file: "+err.Error())
	}

	return ui.ToolResult{
		Success: true,
		Lines:   lines,
		Metadata: ui.ResultMetadata{
			Title:     t.Name(),
			Icon:      t.Icon(),
			Subtitle:  filePath,
			Size:      info.Size(),
			LineCount: len(lines),
			Duration:  time.Since(start),
			Truncated: truncated,
		},
	}
}

// intParam reads a numeric parameter that JSON decoding may have left as
// either float64 or int.
func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func init() {
	Register(&ReadTool{})
}
