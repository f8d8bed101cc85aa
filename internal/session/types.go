package session

import (
	"time"

	"github.com/arjunsethi/agentcore/internal/message"
	"github.com/arjunsethi/agentcore/internal/tool"
)

// SessionMetadata contains metadata about a session
type SessionMetadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Cwd          string    `json:"cwd"`
	MessageCount int       `json:"messageCount"`
}

// StoredMessage represents a message stored in a session. It mirrors
// message.Message but is a stable on-disk shape independent of the
// in-memory type, so renaming message.Message fields doesn't silently
// corrupt old session files.
type StoredMessage struct {
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	Thinking    string              `json:"thinking,omitempty"`
	Images      []message.ImageData `json:"images,omitempty"`
	ToolCalls   []message.ToolCall  `json:"toolCalls,omitempty"`
	ToolCallID  string              `json:"toolCallId,omitempty"`
	ToolName    string              `json:"toolName,omitempty"`
	ToolIsError bool                `json:"toolIsError,omitempty"`
	IsSummary   bool                `json:"isSummary,omitempty"`
}

// FromMessage converts a message.Message into its stored representation.
func FromMessage(m message.Message) StoredMessage {
	return StoredMessage{
		Role:        string(m.Role),
		Content:     m.Content,
		Thinking:    m.Thinking,
		Images:      m.Images,
		ToolCalls:   m.ToolCalls,
		ToolCallID:  m.ToolCallID,
		ToolName:    m.ToolName,
		ToolIsError: m.IsError,
	}
}

// Message converts a stored message back into the in-memory shape.
func (sm StoredMessage) Message() message.Message {
	return message.Message{
		Role:       message.Role(sm.Role),
		Content:    sm.Content,
		Thinking:   sm.Thinking,
		Images:     sm.Images,
		ToolCalls:  sm.ToolCalls,
		ToolCallID: sm.ToolCallID,
		ToolName:   sm.ToolName,
		IsError:    sm.ToolIsError,
	}
}

// Session represents a complete session with metadata and messages
type Session struct {
	Metadata SessionMetadata `json:"metadata"`
	Messages []StoredMessage `json:"messages"`
	Tasks    []tool.TodoTask `json:"tasks,omitempty"`
}
