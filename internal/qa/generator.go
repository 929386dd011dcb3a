package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultGenMaxTokens     = 1000
	defaultGenTimeout       = 60 * time.Second
	defaultGenMaxRetries    = 3
	defaultGenBaseBackoff   = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute.
const (
	defaultGenRateLimit = 50.0 / 60.0
	defaultGenBurst     = 5
)

// GeneratorConfig configures an LLM generation backend.
type GeneratorConfig struct {
	Provider  string        `koanf:"provider"` // "anthropic" or "openai"
	Model     string        `koanf:"model"`
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	MaxTokens int           `koanf:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout"`
}

// NewGenerator creates a Generator for the configured provider. An empty
// provider returns (nil, nil): the engine then answers via fallback only.
func NewGenerator(cfg GeneratorConfig) (Generator, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "anthropic":
		return NewAnthropicGenerator(cfg)
	case "openai":
		return NewOpenAIGenerator(cfg)
	default:
		return nil, fmt.Errorf("unknown generator provider: %q", cfg.Provider)
	}
}

// AnthropicGenerator implements Generator against Anthropic's Messages API.
type AnthropicGenerator struct {
	model      string
	apiKey     string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewAnthropicGenerator creates a generator backed by the Anthropic API.
func NewAnthropicGenerator(cfg GeneratorConfig) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultGenMaxTokens
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultGenTimeout
	}

	return &AnthropicGenerator{
		model:     model,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(defaultGenRateLimit), defaultGenBurst),
		maxRetries: defaultGenMaxRetries,
	}, nil
}

// Generate produces an answer grounded in contextText.
//
// The method handles rate limiting, context cancellation, and retries with
// exponential backoff for transient errors. Any terminal failure returns an
// error; the engine routes those to the fallback path.
func (a *AnthropicGenerator) Generate(ctx context.Context, query, contextText string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	req := anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: 0.3, // Low temperature for consistent, factual outputs
		Messages: []anthropicMessage{
			{
				Role:    "user",
				Content: buildPrompt(query, contextText),
			},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultGenBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := a.doRequest(ctx, req)
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs the actual HTTP request to the Messages API.
func (a *AnthropicGenerator) doRequest(ctx context.Context, req anthropicRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", a.apiKey)
	httpReq.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	}

	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var msgResp anthropicResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	return msgResp.Content[0].Text, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

var _ Generator = (*AnthropicGenerator)(nil)
