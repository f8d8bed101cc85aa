// Package message defines the canonical message types, the streaming event
// vocabulary, and conversion helpers shared across the agent core. All
// packages import from here to avoid circular dependencies.
package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation. MessageID is populated for
// every role except RoleTool: tool-result messages are addressed by the
// ToolCallID they answer, not by their own identity.
type Message struct {
	MessageID string      `json:"message_id,omitempty"`
	Role      Role        `json:"role"`
	Content   string      `json:"content,omitempty"`
	Images    []ImageData `json:"images,omitempty"`
	Thinking  string      `json:"thinking,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	ToolName  string      `json:"tool_name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError   bool        `json:"is_error,omitempty"`
}

// ImageData represents image data for multimodal messages.
type ImageData struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
	FileName  string `json:"file_name"`
	Size      int    `json:"size"`
}

// ToolCall represents one tool invocation requested by the model. Index is
// the position of this call within the assistant turn's tool_calls slice;
// backends stream Function.Arguments incrementally keyed by Index, and two
// partial ToolCalls with the same ID/Index concatenate their Arguments to
// reproduce exactly what a non-streaming call would have returned.
type ToolCall struct {
	ID       string       `json:"id"`
	Index    int          `json:"index"`
	Function ToolFunction `json:"function"`
}

// ToolFunction carries the callable name and JSON-encoded arguments of a
// ToolCall. Arguments accumulates incrementally while streaming and is only
// valid JSON once the stream reports the call as complete.
type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Merge concatenates a streamed delta onto this ToolCall, following the
// delta-concatenation invariant: ID/Index/Name come from the first chunk
// that sets them, Arguments always concatenates.
func (tc *ToolCall) Merge(delta ToolCall) {
	if tc.ID == "" {
		tc.ID = delta.ID
	}
	if tc.Function.Name == "" {
		tc.Function.Name = delta.Function.Name
	}
	tc.Function.Arguments += delta.Function.Arguments
}

// ParseArguments deserializes the JSON-encoded Arguments into a params map.
func (tc ToolCall) ParseArguments() (map[string]any, error) {
	return ParseToolInput(tc.Function.Arguments)
}

// NewMessageID returns a fresh UUIDv4 message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

// UserMessage creates a user message with optional images and a fresh id.
func UserMessage(text string, images []ImageData) Message {
	return Message{
		MessageID: NewMessageID(),
		Role:      RoleUser,
		Content:   text,
		Images:    images,
	}
}

// SystemMessage creates a system message with a fresh id.
func SystemMessage(text string) Message {
	return Message{
		MessageID: NewMessageID(),
		Role:      RoleSystem,
		Content:   text,
	}
}

// AssistantMessage creates an assistant message with a fresh id.
func AssistantMessage(text, thinking string, calls []ToolCall) Message {
	return Message{
		MessageID: NewMessageID(),
		Role:      RoleAssistant,
		Content:   text,
		Thinking:  thinking,
		ToolCalls: calls,
	}
}

// ToolMessage creates a tool-role result message. It carries no MessageID:
// it is addressed by ToolCallID, per the data model's invariant that
// message_id is absent on tool-role messages.
func ToolMessage(toolCallID, toolName, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Content:    content,
		IsError:    isError,
	}
}

// ErrorToolMessage creates a tool-role message reporting a failed call.
func ErrorToolMessage(tc ToolCall, content string) Message {
	return ToolMessage(tc.ID, tc.Function.Name, content, true)
}

// ParseToolInput deserializes JSON tool input into a params map.
func ParseToolInput(input string) (map[string]any, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return nil, err
	}
	return params, nil
}

// BuildConversationText converts messages to text for summarization.
func BuildConversationText(msgs []Message) string {
	var sb strings.Builder
	sb.WriteString("Please summarize this coding conversation:\n\n")

	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			fmt.Fprintf(&sb, "User: %s\n\n", msg.Content)

		case RoleTool:
			content := msg.Content
			if len(content) > 500 {
				content = content[:500] + "...[truncated]"
			}
			fmt.Fprintf(&sb, "[Tool Result: %s]\n%s\n\n", msg.ToolName, content)

		case RoleAssistant:
			if msg.Content != "" {
				fmt.Fprintf(&sb, "Assistant: %s\n\n", msg.Content)
			}
			if len(msg.ToolCalls) > 0 {
				for _, tc := range msg.ToolCalls {
					fmt.Fprintf(&sb, "[Tool Call: %s]\n", tc.Function.Name)
				}
				sb.WriteString("\n")
			}
		}
	}

	return sb.String()
}

// NeedsCompaction checks if token usage exceeds the threshold percentage of the input limit.
func NeedsCompaction(inputTokens, inputLimit int) bool {
	if inputLimit == 0 || inputTokens == 0 {
		return false
	}
	return float64(inputTokens)/float64(inputLimit)*100 >= 95
}

// CompletionResponse represents a completion response from an LLM backend.
type CompletionResponse struct {
	Content    string     `json:"content,omitempty"`
	Thinking   string     `json:"thinking,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"` // "end_turn", "tool_use", "max_tokens"
	Usage      Usage      `json:"usage"`
}

// Usage contains token usage information: input and output token counts.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChunkType represents the type of a stream chunk.
type ChunkType string

const (
	ChunkTypeText      ChunkType = "text"
	ChunkTypeThinking  ChunkType = "thinking"
	ChunkTypeToolStart ChunkType = "tool_start"
	ChunkTypeToolInput ChunkType = "tool_input"
	ChunkTypeDone      ChunkType = "done"
	ChunkTypeError     ChunkType = "error"
)

// StreamChunk represents one chunk in a backend's streaming response.
type StreamChunk struct {
	Type       ChunkType
	Text       string // For text/thinking chunks
	ToolID     string // For tool_start chunks
	ToolIndex  int    // For tool_start/tool_input chunks
	ToolName   string // For tool_start chunks
	Response   *CompletionResponse // For done chunks
	Error      error               // For error chunks
}
