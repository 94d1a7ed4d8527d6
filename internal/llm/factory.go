package llm

import (
	"fmt"
	"strings"

	"github.com/openclaims/claimlens/internal/config"
)

// NewProvider creates the model backend named by the configuration.
// Self-hosted OpenAI-compatible backends (vLLM, Ollama's /v1 endpoint, ...)
// are reached through the "openai" provider with a custom base_url.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", cfg.Provider)
	}
}
