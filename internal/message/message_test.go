package message

import (
	"strings"
	"testing"
)

func TestUserMessage(t *testing.T) {
	msg := UserMessage("hello", nil)
	if msg.Role != RoleUser {
		t.Errorf("expected role %q, got %q", RoleUser, msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("expected content 'hello', got %q", msg.Content)
	}
	if msg.MessageID == "" {
		t.Error("expected a non-empty message id")
	}
	if len(msg.Images) != 0 {
		t.Errorf("expected 0 images, got %d", len(msg.Images))
	}
}

func TestUserMessageWithImages(t *testing.T) {
	images := []ImageData{
		{MediaType: "image/png", Data: "abc123", FileName: "test.png", Size: 100},
	}
	msg := UserMessage("describe this", images)
	if msg.Role != RoleUser {
		t.Errorf("expected role %q, got %q", RoleUser, msg.Role)
	}
	if len(msg.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(msg.Images))
	}
	if msg.Images[0].MediaType != "image/png" {
		t.Errorf("expected media type 'image/png', got %q", msg.Images[0].MediaType)
	}
}

func TestAssistantMessage(t *testing.T) {
	calls := []ToolCall{
		{ID: "tc1", Function: ToolFunction{Name: "Read", Arguments: `{"file_path": "/tmp"}`}},
	}
	msg := AssistantMessage("hello", "thinking...", calls)
	if msg.Role != RoleAssistant {
		t.Errorf("expected role %q, got %q", RoleAssistant, msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("expected content 'hello', got %q", msg.Content)
	}
	if msg.MessageID == "" {
		t.Error("expected a non-empty message id")
	}
	if msg.Thinking != "thinking..." {
		t.Errorf("expected thinking 'thinking...', got %q", msg.Thinking)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(msg.ToolCalls))
	}
}

func TestToolMessage(t *testing.T) {
	msg := ToolMessage("tc1", "Read", "file content", false)
	if msg.Role != RoleTool {
		t.Errorf("expected role %q, got %q", RoleTool, msg.Role)
	}
	if msg.MessageID != "" {
		t.Errorf("tool-role messages must not carry a message id, got %q", msg.MessageID)
	}
	if msg.Content != "file content" {
		t.Errorf("expected content 'file content', got %q", msg.Content)
	}
}

func TestErrorToolMessage(t *testing.T) {
	tc := ToolCall{ID: "tc1", Function: ToolFunction{Name: "Bash", Arguments: `{"command": "ls"}`}}
	msg := ErrorToolMessage(tc, "permission denied")
	if msg.ToolCallID != "tc1" {
		t.Errorf("expected ToolCallID 'tc1', got %q", msg.ToolCallID)
	}
	if msg.ToolName != "Bash" {
		t.Errorf("expected ToolName 'Bash', got %q", msg.ToolName)
	}
	if msg.Content != "permission denied" {
		t.Errorf("expected content 'permission denied', got %q", msg.Content)
	}
	if !msg.IsError {
		t.Error("expected IsError true")
	}
}

func TestToolCallMerge(t *testing.T) {
	tc := ToolCall{Index: 0}
	tc.Merge(ToolCall{ID: "tc1", Function: ToolFunction{Name: "Read"}})
	tc.Merge(ToolCall{Function: ToolFunction{Arguments: `{"file`}})
	tc.Merge(ToolCall{Function: ToolFunction{Arguments: `_path":"/tmp"}`}})

	if tc.ID != "tc1" {
		t.Errorf("expected id 'tc1', got %q", tc.ID)
	}
	if tc.Function.Name != "Read" {
		t.Errorf("expected name 'Read', got %q", tc.Function.Name)
	}
	want := `{"file_path":"/tmp"}`
	if tc.Function.Arguments != want {
		t.Errorf("expected concatenated arguments %q, got %q", want, tc.Function.Arguments)
	}

	params, err := tc.ParseArguments()
	if err != nil {
		t.Fatalf("ParseArguments() error = %v", err)
	}
	if params["file_path"] != "/tmp" {
		t.Errorf("expected file_path '/tmp', got %v", params["file_path"])
	}
}

func TestRoleStringConversion(t *testing.T) {
	if string(RoleSystem) != "system" {
		t.Errorf("RoleSystem should be 'system', got %q", RoleSystem)
	}
	if string(RoleUser) != "user" {
		t.Errorf("RoleUser should be 'user', got %q", RoleUser)
	}
	if string(RoleAssistant) != "assistant" {
		t.Errorf("RoleAssistant should be 'assistant', got %q", RoleAssistant)
	}
	if string(RoleTool) != "tool" {
		t.Errorf("RoleTool should be 'tool', got %q", RoleTool)
	}
}

func TestBuildConversationText(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi there", ToolCalls: []ToolCall{
			{ID: "tc1", Function: ToolFunction{Name: "Read"}},
		}},
		{Role: RoleTool, ToolCallID: "tc1", ToolName: "Read", Content: "file data"},
	}

	text := BuildConversationText(msgs)
	if !strings.Contains(text, "User: hello") {
		t.Error("expected user message in output")
	}
	if !strings.Contains(text, "Assistant: hi there") {
		t.Error("expected assistant message in output")
	}
	if !strings.Contains(text, "[Tool Call: Read]") {
		t.Error("expected tool call in output")
	}
	if !strings.Contains(text, "[Tool Result: Read]") {
		t.Error("expected tool result in output")
	}
}

func TestBuildConversationTextTruncation(t *testing.T) {
	longContent := strings.Repeat("x", 600)
	msgs := []Message{
		{Role: RoleTool, ToolCallID: "tc1", ToolName: "Read", Content: longContent},
	}

	text := BuildConversationText(msgs)
	if !strings.Contains(text, "...[truncated]") {
		t.Error("expected truncation marker for long tool result")
	}
}

func TestParseToolInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		wantLen int
	}{
		{"empty", "", false, 0},
		{"valid", `{"key": "value"}`, false, 1},
		{"invalid", `not json`, true, 0},
		{"whitespace", "  ", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseToolInput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseToolInput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(params) != tt.wantLen {
				t.Errorf("expected %d params, got %d", tt.wantLen, len(params))
			}
		})
	}
}

func TestNeedsCompaction(t *testing.T) {
	tests := []struct {
		name        string
		inputTokens int
		inputLimit  int
		want        bool
	}{
		{"zero limit", 100, 0, false},
		{"zero tokens", 0, 1000, false},
		{"below threshold", 500, 1000, false},
		{"at threshold", 950, 1000, true},
		{"above threshold", 960, 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NeedsCompaction(tt.inputTokens, tt.inputLimit)
			if got != tt.want {
				t.Errorf("NeedsCompaction(%d, %d) = %v, want %v", tt.inputTokens, tt.inputLimit, got, tt.want)
			}
		})
	}
}
