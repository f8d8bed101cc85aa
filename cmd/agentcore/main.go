// Command agentcore is the non-interactive CLI entry point: it wires a
// backend provider, tool registry, sub-agent manager, and the agent loop
// together and drives one turn per invocation, printing the streamed
// response to stdout.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arjunsethi/agentcore/internal/log"

	// Vendor backends register themselves via init().
	_ "github.com/arjunsethi/agentcore/internal/backend/anthropic"
	_ "github.com/arjunsethi/agentcore/internal/backend/gemini"
	_ "github.com/arjunsethi/agentcore/internal/backend/openai"
)

var version = "0.1.0"

func init() {
	_ = godotenv.Load()
	_ = log.Init()
}

func main() {
	defer log.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	promptFlag  string
	modelFlag   string
	agentFlag   string
	continueRun string
	maxTurns    int
	maxPriceUSD float64
)

var rootCmd = &cobra.Command{
	Use:   "agentcore [message]",
	Short: "agentcore - an embeddable agentic assistant core",
	Long: `agentcore drives one turn of an agent loop against a configured
LLM backend, with tool dispatch, approval gating, and sub-agent delegation.

  agentcore "your message"         Send a message directly
  echo "message" | agentcore       Send a message via stdin
  agentcore -p "prompt"            Use a custom prompt
  agentcore --agent explore "..."  Run a named sub-agent profile directly`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		message := inputMessage(args)
		if message == "" {
			return cmd.Help()
		}
		return runTurn(cmd.Context(), message)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "message to send")
	rootCmd.Flags().StringVar(&modelFlag, "model", "", "override the configured model")
	rootCmd.Flags().StringVar(&agentFlag, "agent", "", "run a named sub-agent profile instead of the top-level loop")
	rootCmd.Flags().StringVar(&continueRun, "session", "", "resume a prior session's transcript by ID")
	rootCmd.Flags().IntVar(&maxTurns, "max-turns", 0, "stop after this many turns (0 disables the limit)")
	rootCmd.Flags().Float64Var(&maxPriceUSD, "max-price", 0, "stop once estimated cost reaches this many USD (0 disables the limit)")

	rootCmd.AddCommand(versionCmd, agentsCmd, sessionsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentcore version %s\n", version)
	},
}

// inputMessage resolves the turn's prompt from, in priority order, the -p
// flag, positional args, and piped stdin.
func inputMessage(args []string) string {
	if promptFlag != "" {
		return promptFlag
	}
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err == nil && len(data) > 0 {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

func sessionID() string {
	if continueRun != "" {
		return continueRun
	}
	return uuid.NewString()
}
