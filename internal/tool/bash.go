package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/arjunsethi/agentcore/internal/task"
	"github.com/arjunsethi/agentcore/internal/tool/permission"
	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const IconBash = "$"

const (
	bashDefaultTimeout = 120 * time.Second
	bashMaxTimeout     = 600 * time.Second
	// bashMaxOutput caps what a single command can push back into the
	// conversation.
	bashMaxOutput = 30000
)

// BashTool runs a shell command in the working directory, either
// synchronously or handed off to the background task manager.
type BashTool struct{}

func (t *BashTool) Name() string        { return "Bash" }
func (t *BashTool) Description() string { return "Execute shell commands" }
func (t *BashTool) Icon() string        { return IconBash }

func (t *BashTool) RequiresPermission() bool { return true }

// PreparePermission builds the approval preview: the command itself plus
// enough shape (line count, background flag) for the prompt to render it.
func (t *BashTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	command, ok := params["command"].(string)
	if !ok || command == "" {
		return nil, &ToolError{Message: "command is required"}
	}

	description, _ := params["description"].(string)
	runBackground, _ := params["run_in_background"].(bool)

	return &permission.PermissionRequest{
		ID:          generateRequestID(),
		ToolName:    t.Name(),
		Description: description,
		BashMeta: &permission.BashMetadata{
			Command:       command,
			Description:   description,
			RunBackground: runBackground,
			LineCount:     strings.Count(command, "\n") + 1,
		},
	}, nil
}

func (t *BashTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	return t.ExecuteApproved(ctx, params, cwd)
}

// ExecuteApproved runs the command once the approval gate has let it
// through.
func (t *BashTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	start := time.Now()

	command, _ := params["command"].(string)
	description, _ := params["description"].(string)
	runBackground, _ := params["run_in_background"].(bool)

	timeout := bashDefaultTimeout
	if timeoutMs, ok := params["timeout"].(float64); ok && timeoutMs > 0 {
		timeout = min(time.Duration(timeoutMs)*time.Millisecond, bashMaxTimeout)
	}

	if runBackground {
		return t.startBackground(command, description, cwd, timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	output := combineStreams(stdout.String(), stderr.String())
	lineCount := 0
	if output != "" {
		lineCount = strings.Count(strings.TrimSuffix(output, "\n"), "\n") + 1
	}
	truncated := false
	if len(output) > bashMaxOutput {
		output = output[:bashMaxOutput] + "\n... (output truncated)"
		truncated = true
	}

	meta := ui.ResultMetadata{
		Title:     t.Name(),
		Icon:      t.Icon(),
		LineCount: lineCount,
		Duration:  duration,
	}

	if runErr != nil {
		errMsg := runErr.Error()
		if ctx.Err() == context.DeadlineExceeded {
			errMsg = "command timed out after " + timeout.String()
			meta.Subtitle = "Timeout"
		} else {
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				errMsg = fmt.Sprintf("exit code %d", exitErr.ExitCode())
			}
			meta.Subtitle = "Failed: " + errMsg
		}
		return ui.ToolResult{Success: false, Output: output, Error: errMsg, Metadata: meta}
	}

	meta.Subtitle = bashSubtitle(description, stdout.String(), lineCount, truncated)
	return ui.ToolResult{Success: true, Output: output, Metadata: meta}
}

// combineStreams appends stderr after stdout, newline-separated.
func combineStreams(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n" + stderr
}

// bashSubtitle picks the short one-line summary shown in the result
// header: the caller-supplied description when present, otherwise a
// line-count or first-line preview.
func bashSubtitle(description, stdout string, lineCount int, truncated bool) string {
	switch {
	case description != "":
		return description
	case truncated:
		return fmt.Sprintf("%d+ lines (truncated)", lineCount)
	case lineCount > 1:
		return fmt.Sprintf("%d lines", lineCount)
	}
	if stdout != "" {
		firstLine := ui.TruncatePreview(strings.TrimSpace(strings.Split(stdout, "\n")[0]), 50)
		if firstLine != "" {
			return firstLine
		}
	}
	return "Done"
}

// startBackground hands the command to the task manager and returns
// immediately; TaskOutput/TaskStop observe it from there.
func (t *BashTool) startBackground(command, description, cwd string, timeout time.Duration) ui.ToolResult {
	taskCtx, cancel := context.WithTimeout(context.Background(), timeout)

	cmd := exec.CommandContext(taskCtx, "bash", "-c", command)
	cmd.Dir = cwd
	// Own process group, so killing the task reaches its children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return t.backgroundStartError("failed to create stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return t.backgroundStartError("failed to create stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return t.backgroundStartError("failed to start command", err)
	}

	bgTask := task.DefaultManager.Create(cmd, command, description, taskCtx, cancel)

	go func() {
		defer cancel()

		var stdoutBuf, stderrBuf bytes.Buffer
		go io.Copy(&stdoutBuf, stdout)
		go io.Copy(&stderrBuf, stderr)

		waitErr := cmd.Wait()
		bgTask.AppendOutput([]byte(combineStreams(stdoutBuf.String(), stderrBuf.String())))

		exitCode := 0
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		bgTask.Complete(exitCode, waitErr)
	}()

	return ui.ToolResult{
		Success: true,
		Output: fmt.Sprintf("Task started in background.\nTask ID: %s\nPID: %d\nCommand: %s",
			bgTask.ID, bgTask.PID, command),
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("[background] %s", bgTask.ID),
		},
	}
}

func (t *BashTool) backgroundStartError(msg string, err error) ui.ToolResult {
	return ui.ToolResult{
		Success:  false,
		Error:    fmt.Sprintf("%s: %v", msg, err),
		Metadata: ui.ResultMetadata{Title: t.Name(), Icon: t.Icon()},
	}
}

func init() {
	Register(&BashTool{})
}
