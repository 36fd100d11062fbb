package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/trader/internal/retry"
)

// ErrEmptyResponse means the model answered with no text, which is treated
// as a refusal.
var ErrEmptyResponse = errors.New("empty response")

// Completer returns the model's text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// SystemPrompt frames every request.
const SystemPrompt = "You are a disciplined equity portfolio manager. " +
	"You answer only with the JSON object requested, without commentary."

// ChatModelCompleter adapts an eino chat model.
type ChatModelCompleter struct {
	Model   model.BaseChatModel
	System  string
	Options []model.Option
}

func (c *ChatModelCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if c.System != "" {
		msgs = append(msgs, schema.SystemMessage(c.System))
	}
	msgs = append(msgs, schema.UserMessage(prompt))

	out, err := c.Model.Generate(ctx, msgs, c.Options...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

// ModelConfig selects and authenticates a chat model.
type ModelConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

func (cfg ModelConfig) options() []model.Option {
	if cfg.Temperature == 0 {
		return nil
	}
	return []model.Option{model.WithTemperature(cfg.Temperature)}
}

// NewOpenAICompleter talks to any OpenAI-compatible endpoint.
func NewOpenAICompleter(ctx context.Context, cfg ModelConfig) (*ChatModelCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return &ChatModelCompleter{Model: cm, System: SystemPrompt, Options: cfg.options()}, nil
}

// NewDeepSeekCompleter uses the DeepSeek chat API.
func NewDeepSeekCompleter(ctx context.Context, cfg ModelConfig) (*ChatModelCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek: API key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("deepseek: %w", err)
	}
	return &ChatModelCompleter{Model: cm, System: SystemPrompt, Options: cfg.options()}, nil
}

// NewCompleter builds the completer named by provider ("deepseek" or "openai").
func NewCompleter(ctx context.Context, provider string, cfg ModelConfig) (*ChatModelCompleter, error) {
	switch strings.ToLower(provider) {
	case "", "deepseek":
		return NewDeepSeekCompleter(ctx, cfg)
	case "openai":
		return NewOpenAICompleter(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown reasoning provider %q", provider)
}

// Guard bounds a completer with a per-attempt timeout, an attempt budget and
// an optional request rate.
type Guard struct {
	next    Completer
	policy  retry.Policy
	limiter *rate.Limiter
}

// NewGuard wraps next. perMinute <= 0 disables rate limiting.
func NewGuard(next Completer, policy retry.Policy, perMinute int) *Guard {
	g := &Guard{next: next, policy: policy}
	if perMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
	}
	return g
}

// Complete retries transport failures. An empty answer is a refusal and is
// returned as is without retrying.
func (g *Guard) Complete(ctx context.Context, prompt string) (string, error) {
	var text string
	err := retry.Do(ctx, g.policy, func(ctx context.Context) error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		text, err = g.next.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
