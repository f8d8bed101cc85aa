// Package openai implements backend.Provider over the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/arjunsethi/agentcore/internal/backend"
	"github.com/arjunsethi/agentcore/internal/log"
	"github.com/arjunsethi/agentcore/internal/message"
)

// Client implements backend.Provider using the OpenAI SDK's Chat
// Completions API.
type Client struct {
	client openai.Client
	name   string
}

// NewClient creates a new OpenAI client with the given SDK client.
func NewClient(client openai.Client, name string) *Client {
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

		messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(opts.Messages)+1)

		if opts.SystemPrompt != "" {
			messages = append(messages, openai.SystemMessage(opts.SystemPrompt))
		}

		for _, msg := range opts.Messages {
			switch msg.Role {
			case message.RoleTool:
				messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
			case message.RoleUser:
				if len(msg.Images) > 0 {
					parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Images)+1)
					for _, img := range msg.Images {
						dataURI := fmt.Sprintf("data:%s;base64,%s", img.MediaType, img.Data)
						parts = append(parts, openai.ChatCompletionContentPartUnionParam{
							OfImageURL: &openai.ChatCompletionContentPartImageParam{
								ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: dataURI},
							},
						})
					}
					if msg.Content != "" {
						parts = append(parts, openai.ChatCompletionContentPartUnionParam{
							OfText: &openai.ChatCompletionContentPartTextParam{Text: msg.Content},
						})
					}
					messages = append(messages, openai.ChatCompletionMessageParamUnion{
						OfUser: &openai.ChatCompletionUserMessageParam{
							Content: openai.ChatCompletionUserMessageParamContentUnion{OfArrayOfContentParts: parts},
						},
					})
				} else {
					messages = append(messages, openai.UserMessage(msg.Content))
				}
			case message.RoleAssistant:
				if len(msg.ToolCalls) > 0 {
					var asstMsg openai.ChatCompletionAssistantMessageParam
					if msg.Content != "" {
						asstMsg.Content.OfString = openai.Opt(msg.Content)
					}
					asstMsg.ToolCalls = make([]openai.ChatCompletionMessageToolCallUnionParam, len(msg.ToolCalls))
					for i, tc := range msg.ToolCalls {
						asstMsg.ToolCalls[i] = openai.ChatCompletionMessageToolCallUnionParam{
							OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
								ID: tc.ID,
								Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
									Name:      tc.Function.Name,
									Arguments: tc.Function.Arguments,
								},
							},
						}
					}
					messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &asstMsg})
				} else {
					messages = append(messages, openai.AssistantMessage(msg.Content))
				}
			default:
				messages = append(messages, openai.SystemMessage(msg.Content))
			}
		}

		params := openai.ChatCompletionNewParams{
			Model:    opts.Model,
			Messages: messages,
			// Without include_usage the API omits token counts from the
			// stream entirely, and the final chunk's usage is what feeds
			// context-occupancy tracking and cost estimation.
			StreamOptions: openai.ChatCompletionStreamOptionsParam{
				IncludeUsage: openai.Bool(true),
			},
		}

		if opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
		}
		if opts.Temperature > 0 {
			params.Temperature = openai.Float(opts.Temperature)
		}
		if opts.SessionID != "" {
			params.User = openai.String(opts.SessionID)
		}

		if len(opts.Tools) > 0 {
			tools := make([]openai.ChatCompletionToolUnionParam, 0, len(opts.Tools))
			for _, t := range opts.Tools {
				var funcParams openai.FunctionParameters
				if props, ok := t.Parameters.(map[string]any); ok {
					funcParams = props
				}
				tools = append(tools, openai.ChatCompletionToolUnionParam{
					OfFunction: &openai.ChatCompletionFunctionToolParam{
						Function: openai.FunctionDefinitionParam{
							Name:        t.Name,
							Description: openai.String(t.Description),
							Parameters:  funcParams,
						},
					},
				})
			}
			params.Tools = tools
		}

		log.LogRequestCtx(ctx, c.name, opts.Model, opts)

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)

		toolCalls := make(map[int]*message.ToolCall)
		var toolOrder []int
		var response message.CompletionResponse

		streamStart := time.Now()
		chunkCount := 0

		for stream.Next() {
			chunk := stream.Current()
			chunkCount++

			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					ch <- message.StreamChunk{Type: message.ChunkTypeText, Text: choice.Delta.Content}
					response.Content += choice.Delta.Content
				}

				for _, tc := range choice.Delta.ToolCalls {
					idx := int(tc.Index)

					if _, exists := toolCalls[idx]; !exists {
						toolCalls[idx] = &message.ToolCall{
							ID:    tc.ID,
							Index: idx,
							Function: message.ToolFunction{
								Name: tc.Function.Name,
							},
						}
						toolOrder = append(toolOrder, idx)
						ch <- message.StreamChunk{
							Type:      message.ChunkTypeToolStart,
							ToolID:    tc.ID,
							ToolIndex: idx,
							ToolName:  tc.Function.Name,
						}
					}

					if tc.Function.Arguments != "" {
						toolCalls[idx].Function.Arguments += tc.Function.Arguments
						ch <- message.StreamChunk{
							Type:      message.ChunkTypeToolInput,
							ToolID:    toolCalls[idx].ID,
							ToolIndex: idx,
							Text:      tc.Function.Arguments,
						}
					}
				}

				if choice.FinishReason != "" {
					switch choice.FinishReason {
					case "stop":
						response.StopReason = "end_turn"
					case "tool_calls":
						response.StopReason = "tool_use"
					case "length":
						response.StopReason = "max_tokens"
					default:
						response.StopReason = choice.FinishReason
					}
				}
			}

			if chunk.Usage.PromptTokens > 0 {
				response.Usage.InputTokens = int(chunk.Usage.PromptTokens)
			}
			if chunk.Usage.CompletionTokens > 0 {
				response.Usage.OutputTokens = int(chunk.Usage.CompletionTokens)
			}
		}

		log.LogStreamDone(c.name, time.Since(streamStart), chunkCount)

		if err := stream.Err(); err != nil {
			be := classifyError(err)
			log.LogError(c.name, be)
			ch <- message.StreamChunk{Type: message.ChunkTypeError, Error: be}
			return
		}

		for _, idx := range toolOrder {
			response.ToolCalls = append(response.ToolCalls, *toolCalls[idx])
		}

		log.LogResponseCtx(ctx, c.name, response)

		ch <- message.StreamChunk{Type: message.ChunkTypeDone, Response: &response}
	}()

	return ch
}

func classifyError(err error) *backend.Error {
	var apiErr *openai.Error
	if asOpenAIError(err, &apiErr) {
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
	if err == context.Canceled || err == context.DeadlineExceeded {
		return backend.NewError(backend.ErrorTimeout, err)
	}
	return backend.NewError(backend.ErrorTransport, err)
}

func asOpenAIError(err error, target **openai.Error) bool {
	apiErr, ok := err.(*openai.Error)
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

// modelMeta holds the context-window and per-token pricing figures the
// OpenAI Models API doesn't return; looked up by ID prefix since the API
// only reports the model identifier.
type modelMeta struct {
	prefix                                string
	inputLimit, outputLimit               int
	inputPricePerMTok, outputPricePerMTok float64
}

var modelMetaTable = []modelMeta{
	{prefix: "gpt-5", inputLimit: 400_000, outputLimit: 128_000, inputPricePerMTok: 1.25, outputPricePerMTok: 10},
	{prefix: "gpt-4.1", inputLimit: 1_000_000, outputLimit: 32_768, inputPricePerMTok: 2, outputPricePerMTok: 8},
	{prefix: "gpt-4o-mini", inputLimit: 128_000, outputLimit: 16_384, inputPricePerMTok: 0.15, outputPricePerMTok: 0.60},
	{prefix: "gpt-4o", inputLimit: 128_000, outputLimit: 16_384, inputPricePerMTok: 2.50, outputPricePerMTok: 10},
	{prefix: "o3", inputLimit: 200_000, outputLimit: 100_000, inputPricePerMTok: 2, outputPricePerMTok: 8},
	{prefix: "o1", inputLimit: 200_000, outputLimit: 100_000, inputPricePerMTok: 15, outputPricePerMTok: 60},
}

// annotate fills in a model's context-window and pricing metadata from
// modelMetaTable by matching its ID's prefix, leaving the zero values
// (unknown) when no entry matches.
func annotate(m backend.ModelInfo) backend.ModelInfo {
	for _, meta := range modelMetaTable {
		if strings.HasPrefix(m.ID, meta.prefix) {
			m.InputTokenLimit = meta.inputLimit
			m.OutputTokenLimit = meta.outputLimit
			m.InputPricePerMTok = meta.inputPricePerMTok
			m.OutputPricePerMTok = meta.outputPricePerMTok
			return m
		}
	}
	return m
}

// ListModels returns the available models for OpenAI using the API,
// filtered down to chat-capable models.
func (c *Client) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]backend.ModelInfo, 0)

	for _, m := range page.Data {
		id := m.ID
		if strings.HasPrefix(id, "dall-e") ||
			strings.HasPrefix(id, "tts-") ||
			strings.HasPrefix(id, "whisper-") ||
			strings.HasPrefix(id, "text-embedding") ||
			strings.HasPrefix(id, "omni-moderation") ||
			strings.HasPrefix(id, "davinci") ||
			strings.HasPrefix(id, "babbage") ||
			strings.HasPrefix(id, "sora") ||
			strings.HasPrefix(id, "gpt-image") ||
			strings.Contains(id, "-tts") ||
			strings.Contains(id, "-transcribe") ||
			strings.Contains(id, "-realtime") ||
			strings.Contains(id, "computer-use") ||
			strings.HasSuffix(id, "-instruct") {
			continue
		}

		models = append(models, annotate(backend.ModelInfo{ID: id, Name: id, DisplayName: id}))
	}

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	return models, nil
}

var _ backend.Provider = (*Client)(nil)
