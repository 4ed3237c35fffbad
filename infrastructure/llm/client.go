// Package llm implements ports.LanguageModel against an OpenAI-compatible
// chat completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mentraflow-backend/application/ports"
)

// ErrEmptyCompletion is returned when the service answers without content.
var ErrEmptyCompletion = errors.New("completion has no content")

// Config configures the client.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
	// BreakerFailures consecutive failures open the breaker for BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls the chat completions API through a rate limiter and a
// circuit breaker.
type Client struct {
	http    *resty.Client
	model   string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ ports.LanguageModel = (*Client)(nil)

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.RequestTimeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a service failure.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return &Client{
		http:    httpClient,
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: breaker,
		logger:  logger,
	}
}

// IsAvailable is false while the breaker is open, so stages fall back
// without waiting on the limiter.
func (c *Client) IsAvailable() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// Complete sends prompt as a single user message and returns the reply.
func (c *Client) Complete(ctx context.Context, prompt string, options ports.CompletionOptions) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.complete(ctx, prompt, options)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Client) complete(ctx context.Context, prompt string, options ports.CompletionOptions) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	}
	if options.Format == "json" {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var result chatResponse
	var failure apiError
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("chat completion failed with status %d: %s", resp.StatusCode(), msg)
	}

	c.logger.Debug("Chat completion finished",
		zap.String("model", c.model),
		zap.Int("max_tokens", options.MaxTokens),
		zap.Duration("duration", time.Since(start)))

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return result.Choices[0].Message.Content, nil
}

// Disabled is the language model used when no API key is configured. It is
// never available, so every stage uses its fallback.
type Disabled struct{}

var _ ports.LanguageModel = Disabled{}

func (Disabled) IsAvailable() bool { return false }

func (Disabled) Complete(ctx context.Context, prompt string, options ports.CompletionOptions) (string, error) {
	return "", errors.New("language model disabled")
}
