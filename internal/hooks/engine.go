package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arjunsethi/agentcore/internal/config"
	"github.com/arjunsethi/agentcore/internal/log"
)

// DefaultTimeout bounds a hook command that declares no timeout of its own,
// in seconds.
const DefaultTimeout = 600

// blockingExitCode is the exit status a hook uses to veto the action it
// observed; stderr carries the reason fed back to the model.
const blockingExitCode = 2

// Engine runs the shell-command hooks configured in settings, feeding each
// one a JSON description of the event on stdin and interpreting its exit
// status and JSON stdout.
type Engine struct {
	settings       *config.Settings
	sessionID      string
	cwd            string
	transcriptPath string
	permissionMode string
}

// NewEngine builds an Engine bound to one session's identity and working
// directory.
func NewEngine(settings *config.Settings, sessionID, cwd, transcriptPath string) *Engine {
	return &Engine{
		settings:       settings,
		sessionID:      sessionID,
		cwd:            cwd,
		transcriptPath: transcriptPath,
		permissionMode: "normal",
	}
}

// SetPermissionMode records the loop's current permission mode (normal,
// auto, plan), surfaced to hooks in their input payload.
func (e *Engine) SetPermissionMode(mode string) {
	e.permissionMode = mode
}

// Execute runs every hook matching event, in configuration order, and
// folds their results together. The first hook that blocks wins; a hook
// that fails to run is logged and skipped rather than treated as a block.
func (e *Engine) Execute(ctx context.Context, event EventType, input HookInput) HookOutcome {
	outcome := HookOutcome{ShouldContinue: true}

	for _, cmd := range e.matchingCommands(event, &input) {
		if cmd.Async {
			go e.runCommand(context.Background(), cmd, input)
			continue
		}

		result := e.runCommand(ctx, cmd, input)
		if result.Error != nil {
			log.Logger().Warn("hook execution failed",
				zap.String("event", string(event)),
				zap.String("command", cmd.Command),
				zap.Error(result.Error))
			continue
		}
		if !result.ShouldContinue {
			return result
		}

		outcome.AdditionalContext = joinContext(outcome.AdditionalContext, result.AdditionalContext)
		if result.UpdatedInput != nil {
			outcome.UpdatedInput = result.UpdatedInput
		}
	}

	return outcome
}

// ExecuteAsync fires every matching hook without waiting for any of them;
// their outcomes are discarded. Used for observe-only events.
func (e *Engine) ExecuteAsync(event EventType, input HookInput) {
	for _, cmd := range e.matchingCommands(event, &input) {
		cmd, input := cmd, input
		go e.runCommand(context.Background(), cmd, input)
	}
}

// HasHooks reports whether any hook is configured for event.
func (e *Engine) HasHooks(event EventType) bool {
	if e.settings == nil {
		return false
	}
	entries, ok := e.settings.Hooks[string(event)]
	return ok && len(entries) > 0
}

// matchingCommands resolves the command list for one event, filling the
// session fields of input as a side effect so the matcher (and later the
// command itself) sees the full payload.
func (e *Engine) matchingCommands(event EventType, input *HookInput) []config.HookCmd {
	if e.settings == nil {
		return nil
	}
	entries, ok := e.settings.Hooks[string(event)]
	if !ok {
		return nil
	}

	input.SessionID = e.sessionID
	input.TranscriptPath = e.transcriptPath
	input.Cwd = e.cwd
	input.PermissionMode = e.permissionMode
	input.HookEventName = string(event)

	matchValue := GetMatchValue(event, *input)

	var cmds []config.HookCmd
	for _, entry := range entries {
		if !MatchesEvent(entry.Matcher, matchValue) {
			continue
		}
		for _, cmd := range entry.Hooks {
			if cmd.Type == "" || cmd.Type == "command" {
				cmds = append(cmds, cmd)
			}
		}
	}
	return cmds
}

// runCommand executes one hook command with the event payload on stdin.
func (e *Engine) runCommand(ctx context.Context, hookCmd config.HookCmd, input HookInput) HookOutcome {
	outcome := HookOutcome{ShouldContinue: true}

	if hookCmd.Command == "" {
		return outcome
	}

	timeout := DefaultTimeout
	if hookCmd.Timeout > 0 {
		timeout = hookCmd.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	payload, err := json.Marshal(input)
	if err != nil {
		outcome.Error = fmt.Errorf("marshaling hook input: %w", err)
		return outcome
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", hookCmd.Command)
	cmd.Dir = e.cwd
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = e.commandEnv(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := exitStatus(runErr)
	switch {
	case exitCode < 0:
		outcome.Error = runErr
		return outcome
	case exitCode == blockingExitCode:
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = "Hook blocked execution"
		}
		return HookOutcome{ShouldContinue: false, ShouldBlock: true, BlockReason: reason}
	case exitCode != 0:
		log.Logger().Debug("hook exited non-zero",
			zap.Int("exitCode", exitCode),
			zap.String("stderr", stderr.String()))
		return outcome
	}

	return applyOutput(strings.TrimSpace(stdout.String()), outcome)
}

// commandEnv builds the hook's environment: the parent environment plus
// the session identity, under both this tool's prefix and the CLAUDE_
// prefix for compatibility with existing Claude Code hooks.
func (e *Engine) commandEnv(input HookInput) []string {
	env := append(os.Environ(),
		"AGENTCORE_PROJECT_DIR="+e.cwd,
		"AGENTCORE_SESSION_ID="+e.sessionID,
		"AGENTCORE_EVENT_TYPE="+input.HookEventName,
		"CLAUDE_PROJECT_DIR="+e.cwd,
		"CLAUDE_SESSION_ID="+e.sessionID,
		"CLAUDE_EVENT_TYPE="+input.HookEventName,
	)
	if input.ToolName != "" {
		env = append(env,
			"AGENTCORE_TOOL_NAME="+input.ToolName,
			"CLAUDE_TOOL_NAME="+input.ToolName,
		)
	}
	return env
}

// exitStatus maps a Run error to the command's exit code; -1 means the
// command never ran (or was killed by the timeout).
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// applyOutput folds a hook's JSON stdout into the outcome. Non-JSON output
// is ignored: plain prints from a hook are not a protocol.
func applyOutput(output string, outcome HookOutcome) HookOutcome {
	if output == "" {
		return outcome
	}

	var parsed HookOutput
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		log.Logger().Debug("hook output not valid JSON", zap.String("output", output))
		return outcome
	}

	if parsed.Continue != nil && !*parsed.Continue {
		outcome.ShouldContinue = false
		outcome.ShouldBlock = true
		outcome.BlockReason = parsed.StopReason
		if outcome.BlockReason == "" {
			outcome.BlockReason = parsed.Reason
		}
	}
	if parsed.SystemMessage != "" {
		outcome.AdditionalContext = parsed.SystemMessage
	}
	if hso := parsed.HookSpecificOutput; hso != nil {
		outcome = applySpecificOutput(outcome, hso)
	}
	return outcome
}

func applySpecificOutput(outcome HookOutcome, hso *HookSpecificOutput) HookOutcome {
	if hso.PermissionDecision == "deny" {
		outcome.ShouldContinue = false
		outcome.ShouldBlock = true
		outcome.BlockReason = hso.PermissionDecisionReason
	}
	if hso.UpdatedInput != nil {
		outcome.UpdatedInput = hso.UpdatedInput
	}
	outcome.AdditionalContext = joinContext(outcome.AdditionalContext, hso.AdditionalContext)

	if prd := hso.PermissionRequestDecision; prd != nil {
		if prd.Behavior == "deny" || prd.Interrupt {
			outcome.ShouldContinue = false
			outcome.ShouldBlock = true
			if prd.Message != "" {
				outcome.BlockReason = prd.Message
			}
		}
		if prd.UpdatedInput != nil {
			outcome.UpdatedInput = prd.UpdatedInput
		}
	}
	return outcome
}

// joinContext concatenates two context strings with a newline, tolerating
// either being empty.
func joinContext(a, b string) string {
	if b == "" {
		return a
	}
	if a == "" {
		return b
	}
	return a + "\n" + b
}
