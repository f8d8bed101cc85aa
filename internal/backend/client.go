package backend

import (
	"context"

	"github.com/arjunsethi/agentcore/internal/message"
)

const defaultMaxTokens = 8192

// TokenUsage tracks token consumption for a conversation.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Client wraps a Provider with model and token configuration, and
// accumulates usage across the conversation's lifetime.
type Client struct {
	Provider  Provider
	Model     string
	MaxTokens int // custom override; 0 means requests use defaultMaxTokens (8192)
	SessionID string
	tokens    TokenUsage
}

// AddUsage accumulates token usage from a completion response.
func (c *Client) AddUsage(usage message.Usage) {
	c.tokens.InputTokens += usage.InputTokens
	c.tokens.OutputTokens += usage.OutputTokens
	c.tokens.TotalTokens = c.tokens.InputTokens + c.tokens.OutputTokens
}

// Tokens returns the accumulated token usage.
func (c *Client) Tokens() TokenUsage {
	return c.tokens
}

// Send sends a non-streaming completion request and returns the full response.
func (c *Client) Send(ctx context.Context, msgs []message.Message,
	tools []Tool, sysPrompt string) (message.CompletionResponse, error) {
	return Complete(ctx, c.Provider, c.opts(msgs, tools, sysPrompt))
}

// Stream starts a streaming completion request and returns a chunk channel.
func (c *Client) Stream(ctx context.Context, msgs []message.Message,
	tools []Tool, sysPrompt string) <-chan message.StreamChunk {
	return c.Provider.Stream(ctx, c.opts(msgs, tools, sysPrompt))
}

// CompleteUtility sends a one-shot completion with a custom max-token
// budget and no tools. Used for utility calls like conversation compaction.
func (c *Client) CompleteUtility(ctx context.Context,
	sysPrompt string, msgs []message.Message, maxTokens int) (message.CompletionResponse, error) {
	return Complete(ctx, c.Provider, CompletionOptions{
		Model:        c.Model,
		SystemPrompt: sysPrompt,
		Messages:     msgs,
		MaxTokens:    maxTokens,
		SessionID:    c.SessionID,
	})
}

// Name returns the backend's configured identity (e.g. "anthropic:api_key").
func (c *Client) Name() string {
	return c.Provider.Name()
}

// ModelID returns the model identifier.
func (c *Client) ModelID() string {
	return c.Model
}

// ResolveMaxTokens returns the effective output token limit.
// Priority: 1. Custom override (MaxTokens field)
//  2. The provider's model metadata (OutputTokenLimit from ListModels)
//  3. Default (8192)
func (c *Client) ResolveMaxTokens(ctx context.Context) int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	if limit := c.providerOutputLimit(ctx); limit > 0 {
		return limit
	}
	return defaultMaxTokens
}

func (c *Client) providerOutputLimit(ctx context.Context) int {
	m, ok := c.modelInfo(ctx)
	if !ok {
		return 0
	}
	return m.OutputTokenLimit
}

// modelInfo resolves the active model's metadata from the provider's model
// list, if available.
func (c *Client) modelInfo(ctx context.Context) (ModelInfo, bool) {
	if c.Provider == nil {
		return ModelInfo{}, false
	}
	models, err := c.Provider.ListModels(ctx)
	if err != nil {
		return ModelInfo{}, false
	}
	for _, m := range models {
		if m.ID == c.Model {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// CostUSD estimates the cumulative USD cost of the conversation so far,
// using the active model's per-token pricing. Returns 0 when pricing is
// unknown for the model (rather than guessing).
func (c *Client) CostUSD(ctx context.Context) float64 {
	m, ok := c.modelInfo(ctx)
	if !ok {
		return 0
	}
	return m.EstimateCostUSD(c.tokens.InputTokens, c.tokens.OutputTokens)
}

func (c *Client) opts(msgs []message.Message, tools []Tool, sysPrompt string) CompletionOptions {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return CompletionOptions{
		Model:        c.Model,
		Messages:     msgs,
		MaxTokens:    maxTokens,
		Tools:        tools,
		SystemPrompt: sysPrompt,
		SessionID:    c.SessionID,
	}
}
