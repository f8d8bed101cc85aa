// Package backend defines the provider-agnostic interface every LLM vendor
// integration implements, the typed error taxonomy callers use to decide
// whether to retry, and a token-usage-tracking wrapper client.
package backend

import (
	"context"
	"errors"

	"github.com/arjunsethi/agentcore/internal/message"
)

// Name identifies a backend vendor.
type Name string

const (
	NameAnthropic Name = "anthropic"
	NameOpenAI    Name = "openai"
	NameGemini    Name = "gemini"
)

// AuthMethod identifies how a backend authenticates to its vendor.
type AuthMethod string

const (
	AuthAPIKey AuthMethod = "api_key"
)

// Meta is static metadata describing a configured backend.
type Meta struct {
	Name        Name
	AuthMethod  AuthMethod
	EnvVars     []string
	DisplayName string
}

// ModelInfo describes one model a backend can serve. InputPricePerMTok and
// OutputPricePerMTok are USD per million tokens, used to estimate
// cumulative session cost for the cost-limit middleware; zero means
// pricing is unknown for this model (cost estimation degrades to 0 rather
// than guessing).
type ModelInfo struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	DisplayName        string  `json:"displayName,omitempty"`
	InputTokenLimit    int     `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit   int     `json:"outputTokenLimit,omitempty"`
	InputPricePerMTok  float64 `json:"inputPricePerMTok,omitempty"`
	OutputPricePerMTok float64 `json:"outputPricePerMTok,omitempty"`
}

// EstimateCostUSD estimates the USD cost of consuming inputTokens and
// outputTokens against this model's per-token pricing.
func (m ModelInfo) EstimateCostUSD(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*m.InputPricePerMTok +
		float64(outputTokens)/1_000_000*m.OutputPricePerMTok
}

// CompletionOptions parameterizes one completion request.
type CompletionOptions struct {
	Model        string
	Messages     []message.Message
	MaxTokens    int
	Temperature  float64
	Tools        []Tool
	SystemPrompt string

	// SessionID, when set, is passed to the vendor as a session-affinity
	// hint (e.g. a routing header) so retried/streamed requests for the
	// same conversation land on the same upstream replica.
	SessionID string
}

// Tool is a JSON-Schema tool definition offered to the model.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

// Provider is the interface every vendor integration implements.
type Provider interface {
	// Stream sends a completion request and returns a channel of
	// streaming chunks. The channel is closed when the stream ends,
	// whether by completion, error, or context cancellation.
	Stream(ctx context.Context, opts CompletionOptions) <-chan message.StreamChunk

	// ListModels returns the models available for this backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Name returns the backend's configured identity (vendor:auth-method).
	Name() string
}

// Factory constructs a Provider, typically reading credentials from the
// environment.
type Factory func(ctx context.Context) (Provider, error)

// Complete collects a Provider's stream into a single CompletionResponse,
// for callers that don't need incremental delivery.
func Complete(ctx context.Context, p Provider, opts CompletionOptions) (message.CompletionResponse, error) {
	var response message.CompletionResponse

	for chunk := range p.Stream(ctx, opts) {
		switch chunk.Type {
		case message.ChunkTypeText:
			response.Content += chunk.Text
		case message.ChunkTypeThinking:
			response.Thinking += chunk.Text
		case message.ChunkTypeToolStart, message.ChunkTypeToolInput:
			// accumulated into the Done chunk's Response by the backend
		case message.ChunkTypeDone:
			if chunk.Response != nil {
				return *chunk.Response, nil
			}
			return response, nil
		case message.ChunkTypeError:
			return response, chunk.Error
		}
	}

	return response, nil
}

// ErrorKind classifies a backend failure so middleware and callers can
// decide whether to retry, back off, or surface the failure to the user.
type ErrorKind string

const (
	ErrorTimeout       ErrorKind = "timeout"
	ErrorRateLimited   ErrorKind = "rate_limited"
	ErrorAuth          ErrorKind = "auth"
	ErrorInvalidRequest ErrorKind = "invalid_request"
	ErrorServer        ErrorKind = "server_error"
	ErrorTransport     ErrorKind = "transport"
)

// Error is the typed error every Provider implementation wraps vendor SDK
// errors in, so callers can branch on Kind without importing vendor SDKs.
type Error struct {
	Kind ErrorKind
	// OversizedContext is set when the vendor error indicates the request
	// exceeded the model's context window, distinct from a generic
	// invalid_request (callers use this to trigger compaction + retry
	// rather than surfacing a hard failure).
	OversizedContext bool
	Err              error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with the given classification.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// AsBackendError extracts a *Error from err, if present.
func AsBackendError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
