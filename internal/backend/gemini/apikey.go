package gemini

import (
	"github.com/arjunsethi/agentcore/internal/backend"
)

// APIKeyMeta is the metadata for Gemini via API key.
var APIKeyMeta = backend.Meta{
	Name:        backend.NameGemini,
	AuthMethod:  backend.AuthAPIKey,
	EnvVars:     []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	DisplayName: "Direct API",
}

func init() {
	backend.Register(APIKeyMeta, NewAPIKeyClient)
}
