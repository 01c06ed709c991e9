// Package gateway forwards assembled prompts to the hosted Gemini completion
// API and interprets what comes back. The wire contract is deliberately
// loose: outbound is one concatenated text blob of "role: content" lines,
// inbound is free-form text that may carry a stage marker and a VISION
// SUMMARY block. No schema is enforced; malformed responses degrade to the
// heuristic fallback parsing upstream.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"dejavu/internal/logging"
)

// Sentinel errors used to pick the user-facing fallback string.
var (
	ErrNoAPIKey      = errors.New("API key not configured")
	ErrAuth          = errors.New("API rejected credentials")
	ErrEmptyResponse = errors.New("no completion returned")
)

// The three fixed user-facing strings. Raw gateway errors never reach the
// transcript; one of these does.
const (
	FallbackAuth = "I couldn't reach your coach because the API key is missing or invalid. Add your key in settings and try again."

	FallbackNetwork = "I couldn't reach your coach right now. Check your connection and send that again in a moment."

	FallbackEmpty = "Your coach didn't send anything back. Please send your message again."
)

// FallbackMessage maps a gateway error to its fixed user-facing string.
func FallbackMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoAPIKey), errors.Is(err, ErrAuth):
		return FallbackAuth
	case errors.Is(err, ErrEmptyResponse):
		return FallbackEmpty
	default:
		return FallbackNetwork
	}
}

// Config configures the Gemini client.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.0-flash",
		Timeout:         2 * time.Minute,
		MaxOutputTokens: 8192,
	}
}

// Completer is the narrow surface the send pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiClient implements Completer against the Gemini REST API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiClient creates a client from config.
func NewGeminiClient(config Config) *GeminiClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	maxTokens := config.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &GeminiClient{
		apiKey:          config.APIKey,
		baseURL:         config.BaseURL,
		model:           model,
		maxOutputTokens: maxTokens,
		httpClient:      &http.Client{Timeout: config.Timeout},
	}
}

// Wire types, the subset of the Gemini REST surface this product touches.

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the assembled prompt blob and returns the raw text reply.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	// Auto-apply timeout if context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.GatewayDebug("Complete: model=%s prompt_len=%d", c.model, len(prompt))

	if c.apiKey == "" {
		logging.GatewayError("Complete: API key not configured")
		return "", ErrNoAPIKey
	}

	// Rate limiting
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     1.0,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	// Retry loop for rate limits and transient transport failures.
	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			// fall through to parsing
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		case http.StatusUnauthorized, http.StatusForbidden:
			logging.GatewayError("Complete: auth failure status=%d", resp.StatusCode)
			return "", fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
		default:
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var geminiResp geminiResponse
		if err := json.Unmarshal(body, &geminiResp); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if geminiResp.Error != nil {
			return "", fmt.Errorf("API error: %s", geminiResp.Error.Message)
		}
		if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
			return "", ErrEmptyResponse
		}

		var result strings.Builder
		for _, part := range geminiResp.Candidates[0].Content.Parts {
			result.WriteString(part.Text)
		}
		response := strings.TrimSpace(result.String())
		if response == "" {
			return "", ErrEmptyResponse
		}

		logging.Gateway("Complete: finished in %v response_len=%d", time.Since(startTime), len(response))
		return response, nil
	}

	logging.GatewayError("Complete: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// SetModel changes the model used for completions.
func (c *GeminiClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string {
	return c.model
}
