package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dervan/noteforge/pkg/types"
)

// Provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	// Default models
	DefaultOllamaModel = "mistral"
	DefaultOpenAIModel = "gpt-4o-mini"

	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOpenAIBaseURL = "https://api.openai.com"

	defaultHTTPTimeout = 120 * time.Second
)

// classifyHTTPError maps a transport or status failure onto an ErrorKind.
func classifyHTTPError(provider string, err error, status int) *ProviderError {
	switch {
	case err != nil:
		kind := KindUnavailable
		var ne interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			kind = KindTimeout
		}
		return &ProviderError{Kind: kind, Provider: provider, Err: err}
	case status == http.StatusTooManyRequests:
		return &ProviderError{Kind: KindRateLimited, Provider: provider,
			Err: fmt.Errorf("status %d", status)}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &ProviderError{Kind: KindTimeout, Provider: provider,
			Err: fmt.Errorf("status %d", status)}
	default:
		return &ProviderError{Kind: KindUnavailable, Provider: provider,
			Err: fmt.Errorf("status %d", status)}
	}
}

// extractOrInvalid parses sections out of model output, reporting empty
// results as InvalidResponse so the call site may retry.
func extractOrInvalid(provider, output string) ([]types.Section, error) {
	sections := ExtractSections(output)
	if len(sections) == 0 {
		return nil, &ProviderError{
			Kind:     KindInvalidResponse,
			Provider: provider,
			Err:      errors.New("no sections found in model output"),
		}
	}
	return sections, nil
}

// OllamaProvider implements Segmenter against a local Ollama server.
type OllamaProvider struct {
	baseURL       string
	model         string
	promptVersion string
	categories    []string
	temperature   float64
	retry         RetryConfig
	httpClient    *http.Client
}

// OllamaOptions configures an OllamaProvider.
type OllamaOptions struct {
	BaseURL       string
	Model         string
	PromptVersion string
	Categories    []string
	Temperature   float64
	Timeout       time.Duration
	Retry         RetryConfig
}

// NewOllamaProvider creates a segmenter backed by Ollama's generate API.
func NewOllamaProvider(opts OllamaOptions) *OllamaProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOllamaBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultOllamaModel
	}
	if opts.PromptVersion == "" {
		opts.PromptVersion = PromptVersionV1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTTPTimeout
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryConfig()
	}

	return &OllamaProvider{
		baseURL:       opts.BaseURL,
		model:         opts.Model,
		promptVersion: opts.PromptVersion,
		categories:    opts.Categories,
		temperature:   opts.Temperature,
		retry:         opts.Retry,
		httpClient:    &http.Client{Timeout: opts.Timeout},
	}
}

// Segment implements Segmenter.
func (p *OllamaProvider) Segment(ctx context.Context, req Request) ([]types.Section, error) {
	prompt := BuildPrompt(req.Text, req.SourceName, p.categories)

	return retryWithBackoff(ctx, p.retry, func() ([]types.Section, error) {
		output, err := p.callAPI(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return extractOrInvalid(ProviderOllama, output)
	})
}

func (p *OllamaProvider) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": p.temperature,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyHTTPError(ProviderOllama, err, 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", classifyHTTPError(ProviderOllama, nil, resp.StatusCode)
	}

	var apiResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", &ProviderError{Kind: KindInvalidResponse, Provider: ProviderOllama,
			Err: fmt.Errorf("decode response: %w", err)}
	}

	return apiResp.Response, nil
}

// Model implements Segmenter.
func (p *OllamaProvider) Model() string { return p.model }

// PromptVersion implements Segmenter.
func (p *OllamaProvider) PromptVersion() string { return p.promptVersion }

// Close implements Segmenter.
func (p *OllamaProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// OpenAIProvider implements Segmenter against the OpenAI chat API.
type OpenAIProvider struct {
	baseURL       string
	apiKey        string
	model         string
	promptVersion string
	categories    []string
	temperature   float64
	retry         RetryConfig
	httpClient    *http.Client
}

// OpenAIOptions configures an OpenAIProvider.
type OpenAIOptions struct {
	BaseURL       string
	APIKey        string
	Model         string
	PromptVersion string
	Categories    []string
	Temperature   float64
	Timeout       time.Duration
	Retry         RetryConfig
}

// NewOpenAIProvider creates a segmenter backed by the OpenAI chat API.
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("segment: openai api key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOpenAIBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.PromptVersion == "" {
		opts.PromptVersion = PromptVersionV1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTTPTimeout
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryConfig()
	}

	return &OpenAIProvider{
		baseURL:       opts.BaseURL,
		apiKey:        opts.APIKey,
		model:         opts.Model,
		promptVersion: opts.PromptVersion,
		categories:    opts.Categories,
		temperature:   opts.Temperature,
		retry:         opts.Retry,
		httpClient:    &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Segment implements Segmenter.
func (p *OpenAIProvider) Segment(ctx context.Context, req Request) ([]types.Section, error) {
	prompt := BuildPrompt(req.Text, req.SourceName, p.categories)

	return retryWithBackoff(ctx, p.retry, func() ([]types.Section, error) {
		output, err := p.callAPI(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return extractOrInvalid(ProviderOpenAI, output)
	})
}

func (p *OpenAIProvider) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": p.temperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyHTTPError(ProviderOpenAI, err, 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", classifyHTTPError(ProviderOpenAI, nil, resp.StatusCode)
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", &ProviderError{Kind: KindInvalidResponse, Provider: ProviderOpenAI,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(apiResp.Choices) == 0 {
		return "", &ProviderError{Kind: KindInvalidResponse, Provider: ProviderOpenAI,
			Err: errors.New("no choices returned")}
	}

	return apiResp.Choices[0].Message.Content, nil
}

// Model implements Segmenter.
func (p *OpenAIProvider) Model() string { return p.model }

// PromptVersion implements Segmenter.
func (p *OpenAIProvider) PromptVersion() string { return p.promptVersion }

// Close implements Segmenter.
func (p *OpenAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
