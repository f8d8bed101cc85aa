// Package log is the debug-observability layer: a zap logger writing a
// rotated ~/.agentcore/debug.log when AGENTCORE_DEBUG=1, plus an optional
// DEV_DIR mode that dumps every backend request/response as JSON, filed
// under per-loop turn prefixes so nested sub-agent traffic stays
// attributable.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger      *zap.Logger
	enabled     bool
	initialized bool
	mu          sync.Mutex
	turnCount   int // main-loop turn counter

	devDir     string
	devEnabled bool
)

// Init configures the package from the environment: AGENTCORE_DEBUG=1
// turns on the debug log, DEV_DIR=<path> turns on JSON request/response
// dumps (each independently of the other). Idempotent.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return nil
	}
	initialized = true

	if dir := os.Getenv("DEV_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create DEV_DIR: %w", err)
		}
		devDir = dir
		devEnabled = true
	}

	if os.Getenv("AGENTCORE_DEBUG") != "1" {
		logger = zap.NewNop()
		return nil
	}
	enabled = true

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	logDir := filepath.Join(homeDir, ".agentcore")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "debug.log"),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	})

	// Console encoder with minimal keys: the messages carry their own
	// [stream]/[tool]/>>>/<<<-style markers.
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "T",
		MessageKey:     "M",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), writeSyncer, zapcore.DebugLevel)
	logger = zap.New(core, zap.AddCaller())

	logger.Info("Debug logging started")
	return nil
}

// IsEnabled reports whether debug logging is on.
func IsEnabled() bool {
	return enabled
}

// Logger returns the shared zap logger (a no-op logger before Init or
// when debugging is off).
func Logger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Sync flushes buffered log entries.
func Sync() error {
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// NextTurn advances and returns the main-loop turn counter. Only callers
// with no AgentTurnTracker (bare client use, utility calls) use this.
func NextTurn() int {
	mu.Lock()
	defer mu.Unlock()
	turnCount++
	return turnCount
}

// CurrentTurn returns the main-loop turn counter without advancing it.
func CurrentTurn() int {
	mu.Lock()
	defer mu.Unlock()
	return turnCount
}

// GetTurnPrefix renders a main-loop turn number as its trace prefix,
// e.g. "main-005".
func GetTurnPrefix(turn int) string {
	return fmt.Sprintf("main-%03d", turn)
}

// AgentTurnTracker numbers the turns of one loop and renders the dotted
// trace prefix that files its traffic under its ancestors' turns. Each
// loop owns one tracker; they nest via the parent pointer, so concurrent
// sub-agents keep independent counters.
type AgentTurnTracker struct {
	parentPrefix string // e.g. "main-002" or "main-002:explore-003"
	agentName    string // "" for the top-level loop
	turnCount    int
	mu           sync.Mutex
}

// NewAgentTurnTracker creates a tracker for an agent loop.
// agentName is the name of the agent (e.g., "code-simplifier"), or "" for
// the top-level loop, whose prefix is the bare "main-NNN" form.
// parentTracker is nil for first-level agents, or the parent's tracker for nested agents.
func NewAgentTurnTracker(agentName string, parentTracker *AgentTurnTracker) *AgentTurnTracker {
	mu.Lock()
	parentTurn := turnCount
	mu.Unlock()

	safeName := sanitizeAgentName(agentName)

	var parentPrefix string
	switch {
	case parentTracker != nil && parentTracker.agentName != "":
		// Nested agent: inherit parent's full prefix including current turn
		parentPrefix = fmt.Sprintf("%s:%s-%03d", parentTracker.parentPrefix, parentTracker.agentName, parentTracker.CurrentTurn())
	case parentTracker != nil:
		// Parent is the top-level loop: anchor to its current turn
		parentPrefix = GetTurnPrefix(parentTracker.CurrentTurn())
	default:
		// First-level agent with no tracker chain: use main loop turn
		parentPrefix = fmt.Sprintf("main-%03d", parentTurn)
	}

	return &AgentTurnTracker{
		parentPrefix: parentPrefix,
		agentName:    safeName,
	}
}

// sanitizeAgentName strips filename-hostile characters from an agent name.
func sanitizeAgentName(name string) string {
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ReplaceAll(name, " ", "_")
}

// NextTurn advances and returns this loop's turn counter.
func (t *AgentTurnTracker) NextTurn() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turnCount++
	return t.turnCount
}

// CurrentTurn returns this loop's turn counter without advancing it.
func (t *AgentTurnTracker) CurrentTurn() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.turnCount
}

// GetTurnPrefix renders this loop's turn as its full dotted trace prefix:
//
//	main loop turn 5:                       main-005
//	code-simplifier spawned there, turn 3:  main-005:code-simplifier-003
//	explore nested under that, turn 1:      main-005:code-simplifier-003:explore-001
func (t *AgentTurnTracker) GetTurnPrefix(turn int) string {
	if t.agentName == "" {
		// Top-level loop: plain main-NNN, no agent segment.
		return GetTurnPrefix(turn)
	}
	return fmt.Sprintf("%s:%s-%03d", t.parentPrefix, t.agentName, turn)
}

// escapeForLog flattens newlines and tabs so a message fits one log line.
func escapeForLog(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\t", "\\t")
}

// LogStreamDone logs one stream's completion stats.
func LogStreamDone(provider string, duration time.Duration, chunks int) {
	if !enabled {
		return
	}
	logger.Info(fmt.Sprintf("[stream] %s done duration=%s chunks=%d", provider, duration.Round(time.Millisecond), chunks))
}

// LogTool logs one tool execution with its summary line and timing.
func LogTool(name, detail string, durationMs int64, success bool) {
	if !enabled {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	logger.Info(fmt.Sprintf("[tool] %s %s %dms %s", name, detail, durationMs, status))
}
