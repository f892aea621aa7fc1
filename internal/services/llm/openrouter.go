// Package llm provides the language-model transports: the OpenRouter
// client used for the provider matrix, and the Claude/Gemini provider
// factory used for secondary-model calls.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/common"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the OpenRouter API
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout is the default per-call HTTP timeout
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 5
)

// OpenRouterClient is the provider transport for the analysis matrix.
// Every (provider, prompt) call routes through OpenRouter's unified
// chat-completions API, with the provider selected by model id.
type OpenRouterClient struct {
	baseURL        string
	apiKey         string
	referer        string
	appTitle       string
	maxTokens      int
	temperature    float32
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         arbor.ILogger
	limiter        *rate.Limiter
}

// OpenRouterOption configures the OpenRouterClient
type OpenRouterOption func(*OpenRouterClient)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger
func WithLogger(logger arbor.ILogger) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewOpenRouterClient creates a new OpenRouter transport client
func NewOpenRouterClient(apiKey string, config *common.OpenRouterConfig, opts ...OpenRouterOption) *OpenRouterClient {
	c := &OpenRouterClient{
		baseURL:        DefaultBaseURL,
		apiKey:         apiKey,
		requestTimeout: DefaultTimeout,
		maxTokens:      1024,
		temperature:    0.7,
		limiter:        rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	if config != nil {
		if config.BaseURL != "" {
			c.baseURL = config.BaseURL
		}
		if config.RequestTimeout > 0 {
			c.requestTimeout = config.RequestTimeout
		}
		if config.MaxTokens > 0 {
			c.maxTokens = config.MaxTokens
		}
		if config.Temperature > 0 {
			c.temperature = config.Temperature
		}
		if config.RateLimit > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)
		}
		c.referer = config.Referer
		c.appTitle = config.AppTitle
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.requestTimeout,
		}
	}

	return c
}

// chatRequest is the OpenRouter chat-completions request body
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float32       `json:"temperature,omitempty"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

// chatResponse is the OpenRouter chat-completions response body
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one prompt to one provider and returns its completion.
// The call is bounded by the configured per-call timeout so one
// unresponsive provider cannot stall the matrix.
func (c *OpenRouterClient) Complete(ctx context.Context, providerID, prompt string, opts interfaces.CompletionOptions) (*interfaces.Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Provider: providerID, Message: "rate limiter wait failed", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	body := chatRequest{
		Model: providerID,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if opts.StructuredOutput {
		body.ResponseFormat = &respFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Provider: providerID, Message: "failed to marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Provider: providerID, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.appTitle != "" {
		req.Header.Set("X-Title", c.appTitle)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("provider", providerID).
			Bool("structured", opts.StructuredOutput).
			Msg("OpenRouter completion request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, &TransportError{Provider: providerID, Message: "request timed out", Err: err}
		}
		return nil, &TransportError{Provider: providerID, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorBody(resp.Body)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &AuthError{Provider: providerID, StatusCode: resp.StatusCode, Message: msg}
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RateLimitError{Provider: providerID, StatusCode: resp.StatusCode, Message: msg}
		default:
			return nil, &TransportError{Provider: providerID, Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, msg)}
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &TransportError{Provider: providerID, Message: "failed to decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &TransportError{Provider: providerID, Message: "empty response from provider"}
	}

	return &interfaces.Completion{Text: parsed.Choices[0].Message.Content}, nil
}

// VerifyKey checks an OpenRouter API key by listing models
func (c *OpenRouterClient) VerifyKey(ctx context.Context, apiKey string) error {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return &TransportError{Provider: "openrouter", Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Provider: "openrouter", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Provider: "openrouter", StatusCode: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Provider: "openrouter", Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

// readErrorBody reads a bounded error body for diagnostics
func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 2048))
	return string(body)
}
