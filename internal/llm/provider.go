package llm

import (
	"context"
	"fmt"
)

// Provider defines the interface for summarization backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize condenses one chunk of report text
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains one chunk to condense
type SummarizeRequest struct {
	// Text is the chunk of report text
	Text string

	// Prompt is an optional custom prompt for chat-style providers (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MinTokens and MaxTokens bound the summary length
	MinTokens int
	MaxTokens int
}

// SummarizeResponse contains the provider's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption (0 when the provider does not report it)
	TokensUsed int
}

// Config holds summarization provider configuration
type Config struct {
	// Provider name: "huggingface", "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for Hugging Face/OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, self-hosted inference)
	BaseURL string

	// Timeout for one chunk request
	Timeout int // seconds

	// ChunkSentences is how many sentences go into one provider call
	ChunkSentences int

	// MinTokens and MaxTokens bound each chunk summary
	MinTokens int
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "huggingface",
		Model:          "facebook/bart-large-cnn",
		Timeout:        120,
		ChunkSentences: 20,
		MinTokens:      50,
		MaxTokens:      150,
	}
}

const systemPrompt = "You condense excerpts of financial analyst reports. Keep figures, outlook and recommendations. Reply with the summary only."

// BuildPrompt constructs the chat prompt for one chunk
func BuildPrompt(text string, minTokens, maxTokens int) string {
	return fmt.Sprintf(`Summarize the following excerpt from a financial report in roughly %d to %d tokens.
Do not add information that is not in the excerpt.

Excerpt:
%s`, minTokens, maxTokens, text)
}

// resolve fills request defaults from the provider config
func resolve(req SummarizeRequest, config Config, fallbackModel string) (prompt, model string, minTokens, maxTokens int) {
	model = req.Model
	if model == "" {
		model = config.Model
	}
	if model == "" {
		model = fallbackModel
	}

	minTokens = req.MinTokens
	if minTokens == 0 {
		minTokens = config.MinTokens
	}
	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 150
	}

	prompt = req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Text, minTokens, maxTokens)
	}
	return prompt, model, minTokens, maxTokens
}
