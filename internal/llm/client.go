// Package llm wraps the language model behind a single completion call.
//
// Failures never surface as Go errors: the reply text becomes
// "Error calling LLM: <message>", and callers treat it as ordinary model
// output.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rahul/estate/internal/observability"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const (
	DefaultModel       = "gpt-4o"
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7

	errorPrefix = "Error calling LLM: "
)

// Client completes a prompt under a system prompt.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) string
}

// IsErrorText reports whether a reply is the inline error rendering.
func IsErrorText(reply string) bool {
	return strings.HasPrefix(reply, errorPrefix)
}

// ErrorText renders err the way every failed completion is returned.
func ErrorText(err error) string {
	return errorPrefix + err.Error()
}

// Options configure a langchaingo-backed client.
type Options struct {
	Name      string
	MaxTokens int
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// ModelClient sends completions to any langchaingo model.
type ModelClient struct {
	model     llms.Model
	name      string
	maxTokens int
	logger    *observability.Logger
	metrics   *observability.Metrics
}

func NewModelClient(model llms.Model, opts Options) *ModelClient {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &ModelClient{
		model:     model,
		name:      opts.Name,
		maxTokens: opts.MaxTokens,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// OpenAIConfig holds the provider settings for NewOpenAI.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewOpenAI builds an OpenAI-compatible client. Bad or missing credentials
// do not fail: the returned client answers every call with error text.
func NewOpenAI(cfg OpenAIConfig, opts Options) Client {
	if cfg.APIKey == "" {
		return Unavailable{Err: errors.New("OPENAI_API_KEY is not set")}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	oaOpts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		oaOpts = append(oaOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(oaOpts...)
	if err != nil {
		return Unavailable{Err: fmt.Errorf("init openai: %w", err)}
	}
	if opts.Name == "" {
		opts.Name = cfg.Model
	}
	return NewModelClient(model, opts)
}

func (c *ModelClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) string {
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}

	reply, err := c.generate(ctx, messages, temperature)
	failed := err != nil
	if failed {
		reply = ErrorText(err)
	}
	c.logger.LogLLM(c.name, systemPrompt, userPrompt, reply, temperature, failed)
	c.metrics.ObserveLLM(failed)
	return reply
}

func (c *ModelClient) generate(ctx context.Context, messages []llms.MessageContent, temperature float64) (string, error) {
	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}

// Unavailable answers every call with the configured error.
type Unavailable struct {
	Err error
}

func (u Unavailable) Complete(context.Context, string, string, float64) string {
	return ErrorText(u.Err)
}
