package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arjunsethi/agentcore/internal/agentloop"
	"github.com/arjunsethi/agentcore/internal/approval"
	"github.com/arjunsethi/agentcore/internal/backend"
	"github.com/arjunsethi/agentcore/internal/config"
	"github.com/arjunsethi/agentcore/internal/hooks"
	"github.com/arjunsethi/agentcore/internal/mcp"
	"github.com/arjunsethi/agentcore/internal/message"
	"github.com/arjunsethi/agentcore/internal/session"
	"github.com/arjunsethi/agentcore/internal/subagent"
	"github.com/arjunsethi/agentcore/internal/system"
	"github.com/arjunsethi/agentcore/internal/tool"
)

// backendPreference lists the (vendor, auth-method) keys tried in order
// when no explicit backend is configured, keyed off which credential
// env var is actually set.
var backendPreference = []struct {
	key    string
	envVar string
	model  string
}{
	{"anthropic:api_key", "ANTHROPIC_API_KEY", "claude-sonnet-4-5-20250929"},
	{"openai:api_key", "OPENAI_API_KEY", "gpt-4o"},
	{"gemini:api_key", "GEMINI_API_KEY", "gemini-2.0-flash"},
}

func resolveProvider(ctx context.Context, settings *config.Settings) (backend.Provider, string, error) {
	model := modelFlag
	if model == "" {
		model = settings.Model
	}

	for _, pref := range backendPreference {
		if os.Getenv(pref.envVar) == "" {
			continue
		}
		p, err := backend.New(ctx, pref.key)
		if err != nil {
			continue
		}
		if model == "" {
			model = pref.model
		}
		return p, model, nil
	}
	return nil, "", fmt.Errorf("no backend credentials found (set one of ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY)")
}

// environment holds the shared plumbing a top-level Loop and the
// subagent.Manager it delegates to both need: config, MCP registry, hooks,
// approval gate, and working directory. buildEnvironment assembles it.
type environment struct {
	settings *config.Settings
	mcpReg   *mcp.Registry
	hooksEng *hooks.Engine
	gate     *approval.Gate
	cwd      string
}

func buildEnvironment(cwd, transcriptPath, sessID string) (*environment, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	mcpReg, err := mcp.NewRegistry(cwd)
	if err != nil {
		return nil, fmt.Errorf("loading MCP config: %w", err)
	}
	for _, err := range mcpReg.ConnectAll(context.Background()) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
		}
	}

	hooksEng := hooks.NewEngine(settings, sessID, cwd, transcriptPath)
	store := &config.ToolPermissionStore{Settings: settings}
	gate := &approval.Gate{Callback: stdinApprovalCallback, Store: store}

	return &environment{settings: settings, mcpReg: mcpReg, hooksEng: hooksEng, gate: gate, cwd: cwd}, nil
}

// stdinApprovalCallback prompts on stderr/stdin when attached to a TTY, and
// auto-allows with a stderr notice otherwise, since a piped non-interactive
// invocation has no one to prompt.
func stdinApprovalCallback(ctx context.Context, req approval.Request) (approval.Response, error) {
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		fmt.Fprintf(os.Stderr, "[auto-allow, non-interactive] %s\n", req.ToolName)
		return approval.Response{Decision: approval.Allow}, nil
	}

	fmt.Fprintf(os.Stderr, "Allow %s? [y/N/a(lways)] ", req.ToolName)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return approval.Response{Decision: approval.Allow}, nil
	case "a", "always":
		return approval.Response{Decision: approval.AllowAlways}, nil
	default:
		return approval.Response{Decision: approval.Reject, Reason: "user declined"}, nil
	}
}

func runTurn(ctx context.Context, msg string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	sessID := sessionID()

	env, err := buildEnvironment(cwd, "", sessID)
	if err != nil {
		return err
	}

	provider, model, err := resolveProvider(ctx, env.settings)
	if err != nil {
		return err
	}
	client := &backend.Client{Provider: provider, Model: model, SessionID: sessID}

	mgr := subagent.New(cwd)
	mgr.NewProvider = func(ctx context.Context, model string) (backend.Provider, error) {
		return provider, nil
	}
	mgr.Registry = tool.DefaultRegistry
	mgr.MCP = env.mcpReg
	mgr.Settings = env.settings
	mgr.Hooks = env.hooksEng
	mgr.Gate = env.gate
	mgr.ParentModelID = model

	if t, ok := tool.Get("Task"); ok {
		if taskTool, ok := t.(*tool.TaskTool); ok {
			taskTool.SetExecutor(mgr)
		}
	}

	if agentFlag != "" {
		return runSubagent(ctx, mgr, msg)
	}

	sys := &system.System{Client: client, Cwd: cwd}

	loop := agentloop.New(agentloop.Options{
		Client:           client,
		Tools:            &tool.Set{MCP: env.mcpReg.GetToolSchemas, Disabled: env.settings.DisabledTools},
		Registry:         tool.DefaultRegistry,
		MCP:              env.mcpReg,
		System:           sys,
		Settings:         env.settings,
		SessionPerms:     config.NewSessionPermissions(),
		ApprovalGate:     env.gate,
		Hooks:            env.hooksEng,
		TurnLimitEnabled: maxTurns > 0,
		MaxTurns:         maxTurns,
		CostLimitEnabled: maxPriceUSD > 0,
		MaxPriceUSD:      maxPriceUSD,
		AutoCompactFrac:  0.9,
		Cwd:              cwd,
	})

	mgr.ParentTracker = loop.Tracker()

	store, storeErr := session.NewStore()
	if storeErr != nil {
		fmt.Fprintf(os.Stderr, "session store unavailable: %v\n", storeErr)
	}

	// --session resumes a prior transcript; the new prompt continues it.
	var prior *session.Session
	if continueRun != "" && store != nil {
		prior, err = store.Load(continueRun)
		if err != nil {
			return fmt.Errorf("resuming session %s: %w", continueRun, err)
		}
		msgs := make([]message.Message, 0, len(prior.Messages))
		for _, sm := range prior.Messages {
			msgs = append(msgs, sm.Message())
		}
		loop.SetMessages(msgs)
	}

	actErr := printEvents(loop.Act(ctx, msg, nil))

	if store != nil {
		if err := saveSession(store, prior, sessID, loop, client, cwd); err != nil {
			fmt.Fprintf(os.Stderr, "saving session: %v\n", err)
		}
	}
	return actErr
}

// saveSession persists the finished transcript plus the todo snapshot,
// preserving the original metadata when resuming an existing session.
func saveSession(store *session.Store, prior *session.Session, sessID string, loop *agentloop.Loop, client *backend.Client, cwd string) error {
	stored := make([]session.StoredMessage, 0)
	for _, m := range loop.Messages() {
		stored = append(stored, session.FromMessage(m))
	}

	sess := &session.Session{
		Metadata: session.SessionMetadata{
			ID:       sessID,
			Provider: client.Name(),
			Model:    client.ModelID(),
			Cwd:      cwd,
		},
		Messages: stored,
		Tasks:    tool.DefaultTodoStore.Export(),
	}
	if prior != nil {
		sess.Metadata = prior.Metadata
	}
	if sess.Metadata.Title == "" {
		sess.Metadata.Title = session.GenerateTitle(stored)
	}
	return store.Save(sess)
}

func runSubagent(ctx context.Context, mgr *subagent.Manager, msg string) error {
	result, err := mgr.Run(ctx, tool.AgentExecRequest{
		Agent:       agentFlag,
		Prompt:      msg,
		Description: "cli invocation",
		OnProgress: func(m string) {
			fmt.Fprintf(os.Stderr, "... %s\n", m)
		},
	})
	if err != nil {
		return err
	}
	fmt.Println(result.Content)
	if !result.Success {
		return fmt.Errorf("agent %s failed: %s", agentFlag, result.Error)
	}
	return nil
}

// printEvents renders the loop's event stream to stdout, printing
// assistant text as it arrives and surfacing tool activity on stderr.
func printEvents(events <-chan message.Event) error {
	var failed error
	for ev := range events {
		switch ev.Kind {
		case message.EventAssistant:
			// Deltas print as they arrive; the Done event closes the line.
			fmt.Print(ev.Assistant.Content)
			if ev.Assistant.Done {
				fmt.Println()
			}
		case message.EventReasoning:
			if ev.Reasoning.Content != "" {
				fmt.Fprintf(os.Stderr, "[thinking] %s", ev.Reasoning.Content)
			}
		case message.EventToolCall:
			fmt.Fprintf(os.Stderr, "-> %s\n", ev.ToolCall.ToolName)
		case message.EventToolResult:
			if ev.ToolResult.Error != "" {
				fmt.Fprintf(os.Stderr, "<- %s: error: %s\n", ev.ToolResult.ToolName, ev.ToolResult.Error)
				failed = fmt.Errorf("tool %s failed", ev.ToolResult.ToolName)
			}
		case message.EventCompactStart:
			fmt.Fprintln(os.Stderr, "[compacting context...]")
		case message.EventCompactEnd:
			if ev.CompactEnd.Error != "" {
				fmt.Fprintf(os.Stderr, "[compaction failed: %s]\n", ev.CompactEnd.Error)
			} else {
				fmt.Fprintf(os.Stderr, "[compacted: %d tokens -> %d tokens]\n",
					ev.CompactEnd.OldContextTokens, ev.CompactEnd.NewContextTokens)
			}
		}
	}
	return failed
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "list saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}
		metas, err := store.List()
		if err != nil {
			return err
		}
		for _, meta := range metas {
			fmt.Printf("%-40s %-19s %3d msgs  %s\n",
				meta.ID, meta.UpdatedAt.Format("2006-01-02 15:04:05"), meta.MessageCount, meta.Title)
		}
		return nil
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "list available sub-agent profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		mgr := subagent.New(cwd)
		for _, name := range mgr.ProfileNames() {
			cfg, _ := mgr.GetAgentConfig(name)
			fmt.Printf("%-20s %s\n", name, cfg.Description)
		}
		return nil
	},
}
