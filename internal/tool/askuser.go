package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arjunsethi/agentcore/internal/tool/ui"
)

const maxQuestionHeader = 12

// QuestionOption is one choice the user can pick.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Question is one prompt shown to the user, with 2-4 options.
type Question struct {
	Question    string           `json:"question"`
	Header      string           `json:"header"` // short label, shown as a tab
	Options     []QuestionOption `json:"options"`
	MultiSelect bool             `json:"multiSelect"`
}

// QuestionRequest is the payload handed to the host for display.
type QuestionRequest struct {
	ID        string
	Questions []Question
}

// QuestionResponse carries the user's selections back, keyed by question
// index.
type QuestionResponse struct {
	RequestID string
	Answers   map[int][]string
	Cancelled bool
}

// AskUserQuestionTool pauses the turn to ask the user structured
// questions. It follows the interactive-tool shape: PrepareInteraction
// validates and builds the request, the host collects answers, and
// ExecuteWithResponse renders them for the model.
type AskUserQuestionTool struct {
	requestCounter int
}

// NewAskUserQuestionTool returns a fresh tool instance.
func NewAskUserQuestionTool() *AskUserQuestionTool {
	return &AskUserQuestionTool{}
}

func (t *AskUserQuestionTool) Name() string { return "AskUserQuestion" }

func (t *AskUserQuestionTool) Description() string {
	return "Ask the user questions to gather preferences, clarify requirements, or get decisions on implementation choices."
}

func (t *AskUserQuestionTool) Icon() string { return "❓" }

func (t *AskUserQuestionTool) RequiresInteraction() bool { return true }

// PrepareInteraction validates the questions parameter and builds the
// request the host will display.
func (t *AskUserQuestionTool) PrepareInteraction(ctx context.Context, params map[string]any, cwd string) (any, error) {
	questions, err := parseQuestions(params)
	if err != nil {
		return nil, err
	}

	if len(questions) == 0 || len(questions) > 4 {
		return nil, fmt.Errorf("questions must have 1-4 items, got %d", len(questions))
	}
	for i, q := range questions {
		if q.Question == "" {
			return nil, fmt.Errorf("question[%d]: question text is required", i)
		}
		if len(q.Header) > maxQuestionHeader {
			return nil, fmt.Errorf("question[%d]: header must be at most %d characters", i, maxQuestionHeader)
		}
		if len(q.Options) < 2 || len(q.Options) > 4 {
			return nil, fmt.Errorf("question[%d]: must have 2-4 options, got %d", i, len(q.Options))
		}
		for j, opt := range q.Options {
			if opt.Label == "" {
				return nil, fmt.Errorf("question[%d].options[%d]: label is required", i, j)
			}
		}
	}

	t.requestCounter++
	return &QuestionRequest{
		ID:        fmt.Sprintf("ask-%d", t.requestCounter),
		Questions: questions,
	}, nil
}

// parseQuestions round-trips the raw parameter through JSON to get typed
// Questions out of the generic args map.
func parseQuestions(params map[string]any) ([]Question, error) {
	questionsRaw, ok := params["questions"]
	if !ok {
		return nil, fmt.Errorf("missing required parameter: questions")
	}
	questionsJSON, err := json.Marshal(questionsRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid questions format: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(questionsJSON, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse questions: %w", err)
	}
	return questions, nil
}

// ExecuteWithResponse renders the user's answers as the tool result.
func (t *AskUserQuestionTool) ExecuteWithResponse(ctx context.Context, params map[string]any, response any, cwd string) ui.ToolResult {
	resp, ok := response.(*QuestionResponse)
	if !ok {
		return ui.NewErrorResult(t.Name(), "invalid response type")
	}

	if resp.Cancelled {
		return ui.ToolResult{
			Success: true,
			Output:  "User cancelled the question prompt without answering.",
			Metadata: ui.ResultMetadata{
				Title:    t.Name(),
				Icon:     t.Icon(),
				Subtitle: "Cancelled",
			},
		}
	}

	questions, _ := parseQuestions(params)

	var sb strings.Builder
	sb.WriteString("User responses:\n")
	for i, q := range questions {
		answers := resp.Answers[i]
		if len(answers) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s: %s", q.Header, strings.Join(answers, ", "))
	}

	return ui.ToolResult{
		Success: true,
		Output:  sb.String(),
		Metadata: ui.ResultMetadata{
			Title:    t.Name(),
			Icon:     t.Icon(),
			Subtitle: fmt.Sprintf("%d answers", len(resp.Answers)),
		},
	}
}

// Execute rejects direct invocation; the host must drive the interactive
// flow.
func (t *AskUserQuestionTool) Execute(ctx context.Context, params map[string]any, cwd string) ui.ToolResult {
	return ui.NewErrorResult(t.Name(), "this tool requires user interaction - use PrepareInteraction and ExecuteWithResponse")
}

func init() {
	Register(NewAskUserQuestionTool())
}
