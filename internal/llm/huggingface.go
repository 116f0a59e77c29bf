package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const defaultHuggingFaceURL = "https://router.huggingface.co/hf-inference"

// HuggingFaceProvider calls a summarization model on the Hugging Face Inference API.
// Abstractive models such as facebook/bart-large-cnn take min/max length directly,
// so no prompt is sent.
type HuggingFaceProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
	logger     *zap.Logger
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MinLength int  `json:"min_length,omitempty"`
	MaxLength int  `json:"max_length,omitempty"`
	DoSample  bool `json:"do_sample"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

type hfError struct {
	Error string `json:"error"`
}

// NewHuggingFaceProvider creates a new Hugging Face provider
func NewHuggingFaceProvider(config Config, logger *zap.Logger) (*HuggingFaceProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}
	if config.APIKey == "" && baseURL == defaultHuggingFaceURL {
		return nil, fmt.Errorf("Hugging Face API token is required (set HF_API_TOKEN)")
	}

	return &HuggingFaceProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, requestTimeout(config)),
		config:     config,
		logger:     orNop(logger),
	}, nil
}

// Name returns the provider name
func (p *HuggingFaceProvider) Name() string {
	return "huggingface"
}

// IsAvailable checks that the model endpoint answers
func (p *HuggingFaceProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.Summarize(ctx, SummarizeRequest{Text: "Markets were calm today.", MinTokens: 1, MaxTokens: 10})
	if err != nil {
		p.logger.Warn("Hugging Face API check failed", zap.Error(err))
		return false
	}
	return true
}

// Summarize condenses one chunk with the configured summarization model
func (p *HuggingFaceProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	_, model, minTokens, maxTokens := resolve(req, p.config, DefaultModel("huggingface"))

	body, err := json.Marshal(hfRequest{
		Inputs: req.Text,
		Parameters: hfParameters{
			MinLength: minTokens,
			MaxLength: maxTokens,
			DoSample:  false,
		},
		Options: hfOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", p.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr hfError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("Hugging Face API error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("Hugging Face API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var out []hfSummary
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no summary in Hugging Face response")
	}

	return &SummarizeResponse{
		Summary: strings.TrimSpace(out[0].SummaryText),
		Model:   model,
	}, nil
}
