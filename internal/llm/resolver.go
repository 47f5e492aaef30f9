package llm

import (
	"github.com/rs/zerolog/log"

	"github.com/clawclub/clawclub/internal/config"
	clubotel "github.com/clawclub/clawclub/internal/otel"
)

var tracer = clubotel.Tracer("github.com/clawclub/clawclub/internal/llm")

// Resolve picks a provider from the configuration. Preference order:
// Anthropic, OpenAI, then the local Ollama fallback when no API key is
// configured. Returns ErrNoProvider only when even the Ollama URL is
// unset.
func Resolve(cfg *config.Config) (Provider, error) {
	switch {
	case cfg.AnthropicKey != "":
		return NewAnthropicProvider(cfg.AnthropicKey), nil
	case cfg.OpenAIKey != "":
		return NewOpenAIProvider(cfg.OpenAIKey), nil
	case cfg.OllamaBaseURL != "":
		log.Debug().Msg("no API key configured, falling back to ollama")
		return NewOllamaProvider(cfg.OllamaBaseURL), nil
	default:
		return nil, ErrNoProvider
	}
}
