// Package gemini implements backend.Provider over the Google GenAI SDK,
// API-key authentication only (the Vertex credential path is out of scope).
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/arjunsethi/agentcore/internal/backend"
	"github.com/arjunsethi/agentcore/internal/log"
	"github.com/arjunsethi/agentcore/internal/message"
)

// Client implements backend.Provider using the Google GenAI SDK.
type Client struct {
	client *genai.Client
	name   string
}

// NewClient creates a new Gemini client with the given SDK client.
func NewClient(client *genai.Client, name string) *Client {
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

		contents := make([]*genai.Content, 0, len(opts.Messages))
		for _, msg := range opts.Messages {
			var role string
			switch msg.Role {
			case message.RoleUser:
				role = "user"
			case message.RoleAssistant:
				role = "model"
			case message.RoleTool:
				role = "user"
			default:
				role = string(msg.Role)
			}

			var parts []*genai.Part

			switch {
			case msg.Role == message.RoleTool:
				var result map[string]any
				if err := json.Unmarshal([]byte(msg.Content), &result); err != nil {
					result = map[string]any{"result": msg.Content}
				}
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     msg.ToolName,
						Response: result,
					},
				})
			case len(msg.ToolCalls) > 0:
				if msg.Content != "" {
					parts = append(parts, &genai.Part{Text: msg.Content})
				}
				for _, tc := range msg.ToolCalls {
					var args map[string]any
					if tc.Function.Arguments != "" {
						if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
							args = nil
						}
					}
					parts = append(parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Function.Name, Args: args},
					})
				}
			case len(msg.Images) > 0:
				for _, img := range msg.Images {
					decoded, err := decodeBase64(img.Data)
					if err == nil {
						parts = append(parts, &genai.Part{
							InlineData: &genai.Blob{MIMEType: img.MediaType, Data: decoded},
						})
					}
				}
				if msg.Content != "" {
					parts = append(parts, &genai.Part{Text: msg.Content})
				}
			default:
				parts = append(parts, &genai.Part{Text: msg.Content})
			}

			contents = append(contents, &genai.Content{Role: role, Parts: parts})
		}

		config := &genai.GenerateContentConfig{}

		if opts.SystemPrompt != "" {
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: opts.SystemPrompt}}}
		}
		if opts.MaxTokens > 0 {
			config.MaxOutputTokens = int32(opts.MaxTokens)
		}
		if opts.Temperature > 0 {
			temp := float32(opts.Temperature)
			config.Temperature = &temp
		}
		if len(opts.Tools) > 0 {
			funcDecls := make([]*genai.FunctionDeclaration, 0, len(opts.Tools))
			for _, t := range opts.Tools {
				fd := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
				if t.Parameters != nil {
					fd.ParametersJsonSchema = t.Parameters
				}
				funcDecls = append(funcDecls, fd)
			}
			config.Tools = []*genai.Tool{{FunctionDeclarations: funcDecls}}
		}

		log.LogRequestCtx(ctx, c.name, opts.Model, opts)

		var response message.CompletionResponse
		streamStart := time.Now()
		chunkCount := 0

		for result, err := range c.client.Models.GenerateContentStream(ctx, opts.Model, contents, config) {
			if err != nil {
				be := classifyError(err)
				log.LogError(c.name, be)
				ch <- message.StreamChunk{Type: message.ChunkTypeError, Error: be}
				return
			}
			chunkCount++

			for _, candidate := range result.Candidates {
				if candidate.Content == nil {
					continue
				}

				for _, part := range candidate.Content.Parts {
					if part.Text != "" {
						ch <- message.StreamChunk{Type: message.ChunkTypeText, Text: part.Text}
						response.Content += part.Text
					}

					if part.FunctionCall != nil {
						fc := part.FunctionCall
						argsJSON, _ := json.Marshal(fc.Args)
						idx := len(response.ToolCalls)

						ch <- message.StreamChunk{
							Type:      message.ChunkTypeToolStart,
							ToolID:    fc.ID,
							ToolIndex: idx,
							ToolName:  fc.Name,
						}
						ch <- message.StreamChunk{
							Type:      message.ChunkTypeToolInput,
							ToolID:    fc.ID,
							ToolIndex: idx,
							Text:      string(argsJSON),
						}

						response.ToolCalls = append(response.ToolCalls, message.ToolCall{
							ID:    fc.ID,
							Index: idx,
							Function: message.ToolFunction{
								Name:      fc.Name,
								Arguments: string(argsJSON),
							},
						})
					}
				}

				if candidate.FinishReason != "" {
					switch candidate.FinishReason {
					case "STOP":
						response.StopReason = "end_turn"
					case "MAX_TOKENS":
						response.StopReason = "max_tokens"
					default:
						response.StopReason = string(candidate.FinishReason)
					}
				}
			}

			if result.UsageMetadata != nil {
				response.Usage.InputTokens = int(result.UsageMetadata.PromptTokenCount)
				response.Usage.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
			}
		}

		log.LogStreamDone(c.name, time.Since(streamStart), chunkCount)

		if len(response.ToolCalls) > 0 && response.StopReason == "" {
			response.StopReason = "tool_use"
		}

		log.LogResponseCtx(ctx, c.name, response)

		ch <- message.StreamChunk{Type: message.ChunkTypeDone, Response: &response}
	}()

	return ch
}

func classifyError(err error) *backend.Error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "PERMISSION_DENIED"):
		return backend.NewError(backend.ErrorAuth, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return backend.NewError(backend.ErrorRateLimited, err)
	case strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "DEADLINE_EXCEEDED"):
		return backend.NewError(backend.ErrorTimeout, err)
	case strings.Contains(msg, "400") || strings.Contains(msg, "INVALID_ARGUMENT"):
		be := backend.NewError(backend.ErrorInvalidRequest, err)
		be.OversizedContext = strings.Contains(msg, "token") && strings.Contains(msg, "exceed")
		return be
	case strings.Contains(msg, "500") || strings.Contains(msg, "INTERNAL"):
		return backend.NewError(backend.ErrorServer, err)
	default:
		return backend.NewError(backend.ErrorTransport, err)
	}
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// pricingFor returns per-million-token USD pricing for a Gemini model
// family, matched by ID substring since the Models API reports context
// limits but not price. Unmatched families return 0 (unknown) rather than
// a guessed figure.
func pricingFor(id string) (inputPricePerMTok, outputPricePerMTok float64) {
	switch {
	case strings.Contains(id, "flash-lite"):
		return 0.10, 0.40
	case strings.Contains(id, "flash"):
		return 0.30, 2.50
	case strings.Contains(id, "pro"):
		return 1.25, 10
	default:
		return 0, 0
	}
}

// ListModels returns the available Gemini models using the API.
func (c *Client) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	models := make([]backend.ModelInfo, 0)

	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, err
		}

		name := m.Name
		if strings.Contains(name, "gemini") {
			id, _ := strings.CutPrefix(name, "models/")
			if strings.Contains(id, "-exp") || strings.Contains(id, "-latest") {
				continue
			}

			displayName := m.DisplayName
			if displayName == "" {
				displayName = id
			}

			inPrice, outPrice := pricingFor(id)
			models = append(models, backend.ModelInfo{
				ID:                 id,
				Name:               displayName,
				DisplayName:        displayName,
				InputTokenLimit:    int(m.InputTokenLimit),
				OutputTokenLimit:   int(m.OutputTokenLimit),
				InputPricePerMTok:  inPrice,
				OutputPricePerMTok: outPrice,
			})
		}
	}

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	return models, nil
}

// NewAPIKeyClient creates a new Gemini client using API key authentication.
func NewAPIKeyClient(ctx context.Context) (backend.Provider, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return NewClient(client, "gemini:api_key"), nil
}

var _ backend.Provider = (*Client)(nil)
