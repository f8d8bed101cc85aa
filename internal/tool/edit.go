package tool

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arjunsethi/agentcore/internal/tool/permission"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const IconEdit = "✏️"

// EditTool replaces an exact string in a file. The match must be unique
// unless replace_all is set, so the model can't silently edit more than it
// previewed.
type EditTool struct{}

func (t *EditTool) Name() string        { return "Edit" }
func (t *EditTool) Description() string { return "Edit file contents using string replacement" }
func (t *EditTool) Icon() string        { return IconEdit }

func (t *EditTool) RequiresPermission() bool { return true }

// PreparePermission validates the edit and computes the unified diff shown
// at the approval prompt. All the "would this edit even apply" checks live
// here, before the user is asked.
func (t *EditTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	filePath, ok := params["file_path"].(string)
	if !ok || filePath == "" {
		return nil, &ToolError{Message: "file_path is required"}
	}
	oldString, ok := params["old_string"].(string)
	if !ok {
		return nil, &ToolError{Message: "old_string is required"}
	}
	newString, ok := params["new_string"].(string)
	if !ok {
		return nil, &ToolError{Message: "new_string is required"}
	}

	filePath = resolvePath(filePath, cwd)

	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ToolError{Message: "file not found: " + filePath}
		}
		return nil, &ToolError{Message: "failed to read file: " + err.Error()}
	}
	oldContent := string(content)

	count := strings.Count(oldContent, oldString)
	if count == 0 {
		return nil, &ToolError{Message: "old_string not found in file"}
	}
	replaceAll, _ := params["replace_all"].(bool)
	if !replaceAll && count > 1 {
		return nil, &ToolError{Message: fmt.Sprintf(
			"old_string is not unique in file (found %d occurrences). Use replace_all=true to replace all.", count)}
	}

	newContent := applyReplacement(oldContent, oldString, newString, replaceAll)

	return &permission.PermissionRequest{
		ID:          generateRequestID(),
		ToolName:    t.Name(),
		FilePath:    filePath,
		Description: "Replace text in file",
		DiffMeta:    permission.GenerateDiff(filePath, oldContent, newContent),
	}, nil
}

func (t *EditTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	return t.ExecuteApproved(ctx, params, cwd)
}

// ExecuteApproved applies the edit after approval.
func (t *EditTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	filePath, _ := params["file_path"].(string)
	oldString, _ := params["old_string"].(string)
	newString, _ := params["new_string"].(string)
	replaceAll, _ := params["replace_all"].(bool)

	filePath = resolvePath(filePath, cwd)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return ui.NewErrorResult(t.Name(), "failed to read file: "+err.Error())
	}
	oldContent := string(content)

	replaceCount := 1
	if replaceAll {
		replaceCount = strings.Count(oldContent, oldString)
	}
	newContent := applyReplacement(oldContent, oldString, newString, replaceAll)

	if err := os.WriteFile(filePath, []byte(newContent), 0644); err != nil {
		return ui.NewErrorResult(t.Name(), "failed to write file: "+err.Error())
	}

	return ui.ToolResult{
		Success: true,
		Output:  fmt.Sprintf("Successfully edited %s (%d replacement(s))", filePath, replaceCount),
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: filePath,
			Duration: time.Since(start),
		},
	}
}

func applyReplacement(content, oldString, newString string, replaceAll bool) string {
	if replaceAll {
		return strings.ReplaceAll(content, oldString, newString)
	}
	return strings.Replace(content, oldString, newString, 1)
}

// resolvePath anchors a relative path at the working directory.
func resolvePath(path, cwd string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

// ToolError is an error a tool reports about its own arguments or
// preconditions, as opposed to an unexpected failure.
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// generateRequestID returns a random permission-request ID; random rather
// than time-based so rapid consecutive requests can't collide.
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano()%1000000)
	}
	return "req_" + hex.EncodeToString(b)
}

func init() {
	Register(&EditTool{})
}
