// Package anthropic implements backend.Provider over the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/arjunsethi/agentcore/internal/backend"
	"github.com/arjunsethi/agentcore/internal/log"
	"github.com/arjunsethi/agentcore/internal/message"
)

// Client implements backend.Provider using the Anthropic SDK.
type Client struct {
	client       anthropic.Client
	name         string
	cachedModels []backend.ModelInfo
}

// NewClient creates a new Anthropic client with the given SDK client.
func NewClient(client anthropic.Client, name string) *Client {
	return &Client{client: client, name: name}
}

// Name returns the backend's configured identity.
func (c *Client) Name() string {
	return c.name
}

// Stream sends a completion request and returns a channel of streaming chunks.
func (c *Client) Stream(ctx context.Context, opts backend.CompletionOptions) <-chan message.StreamChunk {
	ch := make(chan message.StreamChunk)

	go func() {
		defer close(ch)

		anthropicMsgs := make([]anthropic.MessageParam, 0, len(opts.Messages))
		for _, msg := range opts.Messages {
			switch msg.Role {
			case message.RoleTool:
				anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(
					anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError),
				))
			case message.RoleUser:
				if len(msg.Images) > 0 {
					blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Images)+1)
					for _, img := range msg.Images {
						blocks = append(blocks, anthropic.NewImageBlockBase64(img.MediaType, img.Data))
					}
					if msg.Content != "" {
						blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
					}
					anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(blocks...))
				} else {
					anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(
						anthropic.NewTextBlock(msg.Content),
					))
				}
			case message.RoleAssistant:
				if len(msg.ToolCalls) > 0 {
					blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
					if msg.Content != "" {
						blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
					}
					for _, tc := range msg.ToolCalls {
						var input any
						if tc.Function.Arguments != "" {
							if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
								input = tc.Function.Arguments
							}
						} else {
							input = map[string]any{}
						}
						blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
					}
					anthropicMsgs = append(anthropicMsgs, anthropic.NewAssistantMessage(blocks...))
				} else {
					anthropicMsgs = append(anthropicMsgs, anthropic.NewAssistantMessage(
						anthropic.NewTextBlock(msg.Content),
					))
				}
			}
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(opts.Model),
			MaxTokens: int64(opts.MaxTokens),
			Messages:  anthropicMsgs,
		}

		if opts.SystemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: opts.SystemPrompt}}
		}

		if opts.SessionID != "" {
			params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(opts.SessionID)}
		}

		if len(opts.Tools) > 0 {
			tools := make([]anthropic.ToolUnionParam, 0, len(opts.Tools))
			for _, t := range opts.Tools {
				inputSchema := anthropic.ToolInputSchemaParam{}
				if props, ok := t.Parameters.(map[string]any); ok {
					if properties, ok := props["properties"]; ok {
						inputSchema.Properties = properties
					}
					if required, ok := props["required"].([]string); ok {
						inputSchema.Required = required
					} else if required, ok := props["required"].([]any); ok {
						requiredStrs := make([]string, 0, len(required))
						for _, r := range required {
							if s, ok := r.(string); ok {
								requiredStrs = append(requiredStrs, s)
							}
						}
						inputSchema.Required = requiredStrs
					}
				}

				tools = append(tools, anthropic.ToolUnionParam{
					OfTool: &anthropic.ToolParam{
						Name:        t.Name,
						Description: anthropic.String(t.Description),
						InputSchema: inputSchema,
					},
				})
			}
			params.Tools = tools
		}

		log.LogRequestCtx(ctx, c.name, opts.Model, opts)

		stream := c.client.Messages.NewStreaming(ctx, params)

		var currentToolID string
		var currentToolName string
		var currentToolIndex int
		var currentToolInput string
		var response message.CompletionResponse

		streamStart := time.Now()
		chunkCount := 0

		for stream.Next() {
			event := stream.Current()
			chunkCount++

			switch event.Type {
			case "content_block_start":
				block := event.AsContentBlockStart()
				if block.ContentBlock.Type == "tool_use" {
					currentToolID = block.ContentBlock.ID
					currentToolName = block.ContentBlock.Name
					currentToolIndex = len(response.ToolCalls)
					currentToolInput = ""
					ch <- message.StreamChunk{
						Type:      message.ChunkTypeToolStart,
						ToolID:    currentToolID,
						ToolIndex: currentToolIndex,
						ToolName:  currentToolName,
					}
				}

			case "content_block_delta":
				delta := event.AsContentBlockDelta()
				switch delta.Delta.Type {
				case "text_delta":
					if delta.Delta.Text != "" {
						ch <- message.StreamChunk{Type: message.ChunkTypeText, Text: delta.Delta.Text}
						response.Content += delta.Delta.Text
					}
				case "input_json_delta":
					if delta.Delta.PartialJSON != "" {
						ch <- message.StreamChunk{
							Type:      message.ChunkTypeToolInput,
							ToolID:    currentToolID,
							ToolIndex: currentToolIndex,
							Text:      delta.Delta.PartialJSON,
						}
						currentToolInput += delta.Delta.PartialJSON
					}
				}

			case "content_block_stop":
				if currentToolID != "" && currentToolName != "" {
					response.ToolCalls = append(response.ToolCalls, message.ToolCall{
						ID:    currentToolID,
						Index: currentToolIndex,
						Function: message.ToolFunction{
							Name:      currentToolName,
							Arguments: currentToolInput,
						},
					})
					currentToolID = ""
					currentToolName = ""
					currentToolInput = ""
				}

			case "message_delta":
				msgDelta := event.AsMessageDelta()
				response.StopReason = mapStopReason(string(msgDelta.Delta.StopReason), len(response.ToolCalls) > 0)
				response.Usage.OutputTokens = int(msgDelta.Usage.OutputTokens)

			case "message_start":
				msgStart := event.AsMessageStart()
				response.Usage.InputTokens = int(msgStart.Message.Usage.InputTokens)
			}
		}

		log.LogStreamDone(c.name, time.Since(streamStart), chunkCount)

		if err := stream.Err(); err != nil {
			be := classifyError(err)
			log.LogError(c.name, be)
			ch <- message.StreamChunk{Type: message.ChunkTypeError, Error: be}
			return
		}

		log.LogResponseCtx(ctx, c.name, response)

		ch <- message.StreamChunk{Type: message.ChunkTypeDone, Response: &response}
	}()

	return ch
}

func mapStopReason(anthropicReason string, hasToolCalls bool) string {
	switch anthropicReason {
	case "tool_use":
		return "tool_use"
	case "max_tokens":
		return "max_tokens"
	case "end_turn", "stop_sequence":
		if hasToolCalls {
			return "tool_use"
		}
		return "end_turn"
	default:
		return anthropicReason
	}
}

// classifyError maps an Anthropic SDK error onto the shared backend.Error
// taxonomy so callers never need to import the vendor SDK to branch on it.
func classifyError(err error) *backend.Error {
	var apiErr *anthropic.Error
	if ok := asAnthropicError(err, &apiErr); ok {
		switch apiErr.StatusCode {
		case 401, 403:
			return backend.NewError(backend.ErrorAuth, err)
		case 429:
			return backend.NewError(backend.ErrorRateLimited, err)
		case 400, 422:
			be := backend.NewError(backend.ErrorInvalidRequest, err)
			be.OversizedContext = isContextOverflow(apiErr.Error())
			return be
		case 408, 504:
			return backend.NewError(backend.ErrorTimeout, err)
		default:
			if apiErr.StatusCode >= 500 {
				return backend.NewError(backend.ErrorServer, err)
			}
		}
	}
	if ctxErr := context.Canceled; err == ctxErr || err == context.DeadlineExceeded {
		return backend.NewError(backend.ErrorTimeout, err)
	}
	return backend.NewError(backend.ErrorTransport, err)
}

func asAnthropicError(err error, target **anthropic.Error) bool {
	apiErr, ok := err.(*anthropic.Error)
	if ok {
		*target = apiErr
	}
	return ok
}

func isContextOverflow(msg string) bool {
	return strings.Contains(msg, "context length") ||
		strings.Contains(msg, "maximum context") ||
		strings.Contains(msg, "too many tokens")
}

var defaultModels = []backend.ModelInfo{
	{ID: "claude-opus-4-5@20251101", Name: "Claude Opus 4.5", DisplayName: "Claude Opus 4.5 (Most Capable)"},
	{ID: "claude-sonnet-4-5@20250929", Name: "Claude Sonnet 4.5", DisplayName: "Claude Sonnet 4.5 (Balanced)"},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", DisplayName: "Claude Sonnet 4"},
	{ID: "claude-haiku-3-5@20241022", Name: "Claude Haiku 3.5", DisplayName: "Claude Haiku 3.5 (Fast)"},
}

// modelMeta holds the context-window and per-token pricing figures the
// Models API doesn't return; looked up by substring match on model family
// since exact dated IDs change release to release.
type modelMeta struct {
	family                            string
	inputLimit, outputLimit           int
	inputPricePerMTok, outputPricePerMTok float64
}

var modelMetaTable = []modelMeta{
	{family: "opus", inputLimit: 200_000, outputLimit: 64_000, inputPricePerMTok: 5, outputPricePerMTok: 25},
	{family: "sonnet", inputLimit: 200_000, outputLimit: 64_000, inputPricePerMTok: 3, outputPricePerMTok: 15},
	{family: "haiku", inputLimit: 200_000, outputLimit: 8_192, inputPricePerMTok: 0.80, outputPricePerMTok: 4},
}

// annotate fills in a model's context-window and pricing metadata from
// modelMetaTable by matching its ID's family substring, leaving the zero
// values (unknown) when no family matches.
func annotate(m backend.ModelInfo) backend.ModelInfo {
	for _, meta := range modelMetaTable {
		if strings.Contains(m.ID, meta.family) {
			m.InputTokenLimit = meta.inputLimit
			m.OutputTokenLimit = meta.outputLimit
			m.InputPricePerMTok = meta.inputPricePerMTok
			m.OutputPricePerMTok = meta.outputPricePerMTok
			return m
		}
	}
	return m
}

// ListModels returns available models using the Anthropic Models API,
// falling back to a static list if the API call fails.
func (c *Client) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	if len(c.cachedModels) > 0 {
		return c.cachedModels, nil
	}

	models, err := c.fetchModels(ctx)
	if err != nil {
		models = defaultModels
	}
	for i := range models {
		models[i] = annotate(models[i])
	}
	c.cachedModels = models
	return c.cachedModels, nil
}

func (c *Client) fetchModels(ctx context.Context) ([]backend.ModelInfo, error) {
	pager := c.client.Models.ListAutoPaging(ctx, anthropic.ModelListParams{})

	var models []backend.ModelInfo
	for pager.Next() {
		m := pager.Current()
		models = append(models, backend.ModelInfo{ID: m.ID, Name: m.DisplayName, DisplayName: m.DisplayName})
	}
	if err := pager.Err(); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models returned from API")
	}
	return models, nil
}

var _ backend.Provider = (*Client)(nil)
