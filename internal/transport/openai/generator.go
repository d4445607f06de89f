package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/domain"
	"github.com/scribe-cloud/quill/internal/metrics"
)

// DefaultGenerationTimeout is the hard cutoff for one generation call.
const DefaultGenerationTimeout = 60 * time.Second

// SamplingConfig holds the fixed sampling parameters for generation.
// Temperature is tuned high for throughput over determinism.
type SamplingConfig struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// DefaultSampling returns the sampling configuration used by the pipeline.
func DefaultSampling() SamplingConfig {
	return SamplingConfig{Temperature: 0.9, TopP: 0.95, MaxTokens: 4096}
}

// Generator is the generation gateway over an OpenAI-compatible chat API.
// Exactly one attempt per call, no internal retry loop.
type Generator struct {
	client   *openai.Client
	model    string
	sampling SamplingConfig
	timeout  time.Duration
	provider string
	logger   *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Sampling SamplingConfig
	Timeout  time.Duration
	Provider string
	Logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible text generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}

	sampling := cfg.Sampling
	if sampling == (SamplingConfig{}) {
		sampling = DefaultSampling()
	}

	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		sampling: sampling,
		timeout:  timeout,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Generate sends an assembled prompt to the model and returns the generated
// text. The timeout is a hard cutoff: on expiry the call's resources are
// released and the failure surfaces as a typed timeout.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.sampling.Temperature,
		TopP:        g.sampling.TopP,
		MaxTokens:   g.sampling.MaxTokens,
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return "", classifyGenerateError(err)
	}

	text, err := extractCandidate(&resp)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "rejected").Inc()
		return "", err
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())

	return text, nil
}

// extractCandidate validates the provider response shape: there must be a
// candidate, its finish reason must be the normal stop value, and it must
// carry text.
func extractCandidate(resp *openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no candidate in generation response: %w", domain.ErrUpstreamMalformed)
	}

	choice := resp.Choices[0]
	if choice.FinishReason != "" && choice.FinishReason != openai.FinishReasonStop {
		return "", fmt.Errorf("generation finished with reason %q: %w",
			choice.FinishReason, domain.ErrUpstreamBlocked)
	}

	if choice.Message.Content == "" {
		return "", fmt.Errorf("candidate has no text payload: %w", domain.ErrUpstreamMalformed)
	}

	return choice.Message.Content, nil
}

// classifyGenerateError maps a provider failure to a domain sentinel.
// Checked in order: rate limit, provider error envelope, transport timeout.
func classifyGenerateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return fmt.Errorf("generation API rate limited: %w", domain.ErrRateLimited)
		}
		return fmt.Errorf("generation API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrUpstreamMalformed)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 {
			return fmt.Errorf("generation API rate limited: %w", domain.ErrRateLimited)
		}
		return fmt.Errorf("generation API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrUpstreamMalformed)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("generation request timed out: %w", domain.ErrTimeout)
	}

	return fmt.Errorf("generation request failed: %w", domain.ErrInternal)
}
