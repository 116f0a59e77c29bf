package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/model"
)

// NewProvider creates a summarization provider based on configuration
func NewProvider(config Config, logger *zap.Logger) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "huggingface", "hf":
		return NewHuggingFaceProvider(config, logger)

	case "openai":
		return NewOpenAIProvider(config, logger)

	case "anthropic", "claude":
		return NewAnthropicProvider(config, logger)

	case "ollama":
		return NewOllamaProvider(config, logger)

	case "":
		return nil, fmt.Errorf("no summarization provider configured")

	default:
		return nil, fmt.Errorf("unknown summarization provider: %s (supported: huggingface, openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.Config to llm.Config.
// A missing API key falls back to the provider's conventional environment variable.
func ConfigFromModel(cfg *model.Config) Config {
	s := cfg.Summarizer
	config := Config{
		Provider:       s.Provider,
		Model:          s.Model,
		APIKey:         s.APIKey,
		BaseURL:        s.BaseURL,
		Timeout:        s.Timeout,
		ChunkSentences: s.ChunkSentences,
		MinTokens:      s.MinTokens,
		MaxTokens:      s.MaxTokens,
		HTTPProxy:      cfg.HTTP.HTTPProxy,
		HTTPSProxy:     cfg.HTTP.HTTPSProxy,
		NoProxy:        cfg.HTTP.NoProxy,
	}

	if config.Model == "" {
		config.Model = DefaultModel(config.Provider)
	}
	if config.APIKey == "" {
		config.APIKey = apiKeyFromEnv(config.Provider)
	}
	if config.BaseURL == "" && strings.EqualFold(config.Provider, "ollama") {
		config.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return config
}

// DefaultModel is the model a provider uses when none is configured.
// Ollama has no default; the local model must be named.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case "huggingface", "hf":
		return "facebook/bart-large-cnn"
	case "openai":
		return openai.GPT4oMini
	case "anthropic", "claude":
		return "claude-3-5-haiku-latest"
	}
	return ""
}

func apiKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "huggingface", "hf":
		if key := os.Getenv("HF_API_TOKEN"); key != "" {
			return key
		}
		return os.Getenv("HUGGINGFACEHUB_API_TOKEN")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
