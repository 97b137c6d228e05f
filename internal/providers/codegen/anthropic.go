package codegen

import (
	"context"
	"errors"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/resilience"
	"golang.org/x/time/rate"
)

const defaultAnthropicModel = "claude-3-5-sonnet-20241022"

// Anthropic calls the Messages API through the official SDK. The SDK
// retries on its own; the breaker and limiter match the OpenAI path.
type Anthropic struct {
	client    anthropic.Client
	model     string
	system    string
	maxTokens int
	breaker   *resilience.Breaker
	limiter   *rate.Limiter
}

// NewAnthropic creates the provider.
func NewAnthropic(cfg Config) *Anthropic {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(cfg.RPS)))
	}

	settings := resilience.Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
	}
	if cfg.Metrics != nil {
		settings.OnStateChange = func(name string, _, to resilience.State) {
			cfg.Metrics.SetBreakerState(name, int(to))
		}
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		system:    cfg.SystemPrompt,
		maxTokens: cfg.MaxTokens,
		breaker:   resilience.New("codegen", settings),
		limiter:   limiter,
	}
}

// Generate sends prompt as a single user turn and joins the text blocks of
// the reply.
func (a *Anthropic) Generate(ctx context.Context, prompt string) (Result, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{{
			Role:    anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(prompt)},
		}},
	}
	if sys := strings.TrimSpace(a.system); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	msg, err := resilience.Do(a.breaker, func() (*anthropic.Message, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return a.client.Messages.New(ctx, params)
	})
	if err != nil {
		return Result{}, &UpstreamError{Provider: ProviderAnthropic, Err: err}
	}

	text := collectText(msg.Content)
	if text == "" {
		return Result{}, &UpstreamError{Provider: ProviderAnthropic, Err: errors.New("response has no text")}
	}

	model := string(msg.Model)
	if model == "" {
		model = a.model
	}
	return Result{Text: text, Model: model, Provider: ProviderAnthropic}, nil
}

func collectText(blocks []anthropic.ContentBlockUnion) string {
	var sb strings.Builder
	for _, block := range blocks {
		if block.Type != "text" {
			continue
		}
		sb.WriteString(block.Text)
	}
	return sb.String()
}
