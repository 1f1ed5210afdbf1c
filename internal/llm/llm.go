// Package llm is the language model capability: a system instruction and a
// user message go in, the model's text reply comes out.
package llm

import (
	"context"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/config"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

// Request is a two message exchange.
type Request struct {
	System string
	User   string
}

// Client sends one request and returns the text of the first reply. One
// attempt per call; retrying is the caller's business.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openAIBaseURL     = "https://api.openai.com/v1"
)

// FromConfig builds the client for the configured provider. It returns nil
// when the provider has no credential, which callers treat as "AI
// extraction unavailable".
func FromConfig(cfg *config.Config, logger *utils.Logger) Client {
	key := cfg.LLMCredential()
	if key == "" {
		return nil
	}

	switch cfg.LLMProvider {
	case "openrouter":
		return NewChatCompletionsClient(baseURLOr(cfg.LLMBaseURL, openRouterBaseURL), key, cfg.OpenRouterModel, logger)
	case "openai":
		return NewChatCompletionsClient(baseURLOr(cfg.LLMBaseURL, openAIBaseURL), key, cfg.OpenAIModel, logger)
	case "anthropic":
		return NewAnthropicClient(key, cfg.AnthropicModel, cfg.LLMBaseURL)
	default:
		return nil
	}
}

func baseURLOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
