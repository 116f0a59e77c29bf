package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/neurosnap/sentences/english"
	"go.uber.org/zap"
)

// SentenceTokenizer splits text into sentences
type SentenceTokenizer interface {
	Tokenize(text string) []string
}

// PunktTokenizer splits English text with the pre-trained punkt model
type PunktTokenizer struct {
	tokenize func(string) []string
}

// NewPunktTokenizer loads the English punkt model
func NewPunktTokenizer() (*PunktTokenizer, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}

	return &PunktTokenizer{
		tokenize: func(text string) []string {
			var out []string
			for _, s := range tokenizer.Tokenize(text) {
				if sentence := strings.TrimSpace(s.Text); sentence != "" {
					out = append(out, sentence)
				}
			}
			return out
		},
	}, nil
}

// Tokenize returns the non-empty sentences of text in order
func (t *PunktTokenizer) Tokenize(text string) []string {
	return t.tokenize(text)
}

// Summarizer condenses long report text chunk by chunk.
// It holds no per-call state and is safe to share between concurrent runs.
type Summarizer struct {
	provider  Provider
	tokenizer SentenceTokenizer
	config    Config
	logger    *zap.Logger
}

// NewSummarizer creates a summarizer with the configured provider and the punkt tokenizer
func NewSummarizer(config Config, logger *zap.Logger) (*Summarizer, error) {
	provider, err := NewProvider(config, logger)
	if err != nil {
		return nil, err
	}

	tokenizer, err := NewPunktTokenizer()
	if err != nil {
		return nil, err
	}

	return New(provider, tokenizer, config, logger), nil
}

// New creates a summarizer from explicit parts
func New(provider Provider, tokenizer SentenceTokenizer, config Config, logger *zap.Logger) *Summarizer {
	if config.ChunkSentences <= 0 {
		config.ChunkSentences = 20
	}
	if config.MinTokens <= 0 {
		config.MinTokens = 50
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 150
	}

	return &Summarizer{
		provider:  provider,
		tokenizer: tokenizer,
		config:    config,
		logger:    orNop(logger),
	}
}

// ProviderName returns the name of the active provider
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Summarize splits text into sentence chunks, condenses each chunk with one
// provider call and joins the chunk summaries with a space in chunk order.
// Failed chunks are logged and left out. Empty text yields "" with no calls.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if s.provider == nil {
		return "", fmt.Errorf("no summarization provider configured")
	}

	chunks := Chunk(s.tokenizer.Tokenize(text), s.config.ChunkSentences)

	var summaries []string
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := s.provider.Summarize(ctx, SummarizeRequest{
			Text:      chunk,
			Model:     s.config.Model,
			MinTokens: s.config.MinTokens,
			MaxTokens: s.config.MaxTokens,
		})
		if err != nil {
			s.logger.Warn("chunk summarization failed",
				zap.Int("chunk", i+1),
				zap.Int("chunks", len(chunks)),
				zap.String("provider", s.provider.Name()),
				zap.Error(err))
			continue
		}

		if summary := strings.TrimSpace(resp.Summary); summary != "" {
			summaries = append(summaries, summary)
		}
	}

	return strings.Join(summaries, " "), nil
}

// Chunk groups sentences into runs of size, each joined by single spaces.
// The last chunk may be shorter.
func Chunk(sentences []string, size int) []string {
	if size <= 0 {
		size = 20
	}

	chunks := make([]string, 0, (len(sentences)+size-1)/size)
	for start := 0; start < len(sentences); start += size {
		end := start + size
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[start:end], " "))
	}
	return chunks
}
