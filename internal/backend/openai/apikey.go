package openai

import (
	"context"

	"github.com/openai/openai-go/v3"

	"github.com/arjunsethi/agentcore/internal/backend"
)

// APIKeyMeta is the metadata for OpenAI via API key.
var APIKeyMeta = backend.Meta{
	Name:        backend.NameOpenAI,
	AuthMethod:  backend.AuthAPIKey,
	EnvVars:     []string{"OPENAI_API_KEY"},
	DisplayName: "Direct API",
}

// NewAPIKeyClient creates a new OpenAI client using API key authentication.
func NewAPIKeyClient(ctx context.Context) (backend.Provider, error) {
	client := openai.NewClient()
	return NewClient(client, "openai:api_key"), nil
}

func init() {
	backend.Register(APIKeyMeta, NewAPIKeyClient)
}
