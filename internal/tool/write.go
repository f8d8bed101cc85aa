package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arjunsethi/agentcore/internal/tool/permission"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const IconWrite = "📝"

// WriteTool creates or overwrites a whole file.
type WriteTool struct{}

func (t *WriteTool) Name() string        { return "Write" }
func (t *WriteTool) Description() string { return "Write content to a file" }
func (t *WriteTool) Icon() string        { return IconWrite }

func (t *WriteTool) RequiresPermission() bool { return true }

// PreparePermission builds the approval preview: full content for a new
// file, a diff against the current content for an overwrite.
func (t *WriteTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	filePath, ok := params["file_path"].(string)
	if !ok || filePath == "" {
		return nil, &ToolError{Message: "file_path is required"}
	}
	content, ok := params["content"].(string)
	if !ok {
		return nil, &ToolError{Message: "content is required"}
	}

	filePath = resolvePath(filePath, cwd)

	_, err := os.Stat(filePath)
	isNewFile := os.IsNotExist(err)
	if err != nil && !isNewFile {
		return nil, &ToolError{Message: "failed to check file: " + err.Error()}
	}

	var diffMeta *permission.DiffMetadata
	description := "Create new file"
	if isNewFile {
		diffMeta = permission.GeneratePreview(filePath, content, true)
	} else {
		oldContent, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, &ToolError{Message: "failed to read existing file: " + readErr.Error()}
		}
		diffMeta = permission.GenerateDiff(filePath, string(oldContent), content)
		description = "Overwrite existing file"
	}

	return &permission.PermissionRequest{
		ID:          generateRequestID(),
		ToolName:    t.Name(),
		FilePath:    filePath,
		Description: description,
		DiffMeta:    diffMeta,
	}, nil
}

func (t *WriteTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	return t.ExecuteApproved(ctx, params, cwd)
}

// ExecuteApproved writes the file after approval, creating parent
// directories as needed.
func (t *WriteTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	filePath, _ := params["file_path"].(string)
	content, _ := params["content"].(string)
	filePath = resolvePath(filePath, cwd)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return ui.NewErrorResult(t.Name(), "failed to create directory: "+err.Error())
	}

	_, err := os.Stat(filePath)
	isNewFile := os.IsNotExist(err)

	mode := os.FileMode(0644)
	if m := intParam(params, "mode", 0); m > 0 {
		mode = os.FileMode(m)
	}

	if err := os.WriteFile(filePath, []byte(content), mode); err != nil {
		return ui.NewErrorResult(t.Name(), "failed to write file: "+err.Error())
	}

	action := "Updated"
	if isNewFile {
		action = "Created"
	}
	lineCount := strings.Count(content, "\n") + 1

	return ui.ToolResult{
		Success: true,
		Output:  fmt.Sprintf("%s %s (%d lines)", action, filePath, lineCount),
		Metadata: ui.ResultMetadata{
			Title:     t.Name(),
			Icon:      t.Icon(),
			Subtitle:  filePath,
			LineCount: lineCount,
			Duration:  time.Since(start),
		},
	}
}

func init() {
	Register(&WriteTool{})
}
