package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/metrics"
)

// SystemPrompt frames every completion as a product assistant.
const SystemPrompt = "You are a helpful assistant that provides accurate information about products."

// CompleterConfig holds chat completion settings on top of Config.
type CompleterConfig struct {
	Config
	MaxTokens      int
	Temperature    float32
	RateLimitRPS   float64 // 0 = unlimited
	RateLimitBurst int
}

// Completer implements domain.Completer over the chat completions API.
type Completer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewCompleter creates a chat completion client.
func NewCompleter(cfg *CompleterConfig) *Completer {
	c := &Completer{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		maxTokens:   clampTokens(cfg.MaxTokens),
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
	if cfg.RateLimitRPS > 0 {
		burst := max(cfg.RateLimitBurst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return c
}

// Complete sends the prompt with the system message and returns the first choice.
// Zero MaxTokens or nil Temperature take the configured defaults; tokens are capped at 8000.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = clampTokens(req.MaxTokens)
	}
	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature == 0 {
		// go-openai drops a zero temperature from the request body
		temperature = math.SmallestNonzeroFloat32
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		c.logger.Error("Completion request failed",
			zap.String("model", c.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", parseAPIError("completion", err, domain.ErrCompletionProvider)
	}
	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("completion response has no choices: %w", domain.ErrCompletionProvider)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	metrics.CompletionTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	c.logger.Debug("Completion request completed",
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.Int("max_tokens", maxTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func clampTokens(n int) int {
	return min(n, domain.MaxCompletionTokens)
}
