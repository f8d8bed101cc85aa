package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/arjunsethi/agentcore/internal/backend"
)

// APIKeyMeta is the metadata for Anthropic via API key.
var APIKeyMeta = backend.Meta{
	Name:        backend.NameAnthropic,
	AuthMethod:  backend.AuthAPIKey,
	EnvVars:     []string{"ANTHROPIC_API_KEY"},
	DisplayName: "Direct API",
}

// NewAPIKeyClient creates a new Anthropic client using API key authentication.
func NewAPIKeyClient(ctx context.Context) (backend.Provider, error) {
	client := anthropic.NewClient()
	return NewClient(client, "anthropic:api_key"), nil
}

func init() {
	backend.Register(APIKeyMeta, NewAPIKeyClient)
}
