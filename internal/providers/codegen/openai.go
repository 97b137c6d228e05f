package codegen

import (
	"context"
	"errors"
	"strings"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/httpclient"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
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

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client    *httpclient.Client
	model     string
	system    string
	maxTokens int
}

// NewOpenAI creates the provider on the shared outbound client.
func NewOpenAI(cfg Config) *OpenAI {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultOpenAIURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := httpclient.Options{
		Name:     "codegen",
		BaseURL:  base,
		Timeout:  cfg.Timeout,
		RetryMax: 2,
		RPS:      cfg.RPS,
		Token:    cfg.APIKey,
		Logger:   cfg.Logger,
	}
	if cfg.Metrics != nil {
		opts.OnStateChange = func(name string, _, to resilience.State) {
			cfg.Metrics.SetBreakerState(name, int(to))
		}
	}

	return &OpenAI{
		client:    httpclient.New(opts),
		model:     model,
		system:    cfg.SystemPrompt,
		maxTokens: cfg.MaxTokens,
	}
}

// Generate sends prompt as a single user message.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (Result, error) {
	req := chatRequest{Model: o.model, MaxTokens: o.maxTokens}
	if o.system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: o.system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	var out chatResponse
	var failure apiError
	resp, err := o.client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&out).SetError(&failure).Post("/chat/completions")
	})
	if err != nil {
		return Result{}, &UpstreamError{Provider: ProviderOpenAI, Err: err}
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return Result{}, &UpstreamError{
			Provider: ProviderOpenAI,
			Err:      &httpclient.StatusError{Status: resp.StatusCode(), Body: msg},
		}
	}
	if len(out.Choices) == 0 {
		return Result{}, &UpstreamError{Provider: ProviderOpenAI, Err: errors.New("response has no choices")}
	}

	model := out.Model
	if model == "" {
		model = o.model
	}
	return Result{
		Text:     out.Choices[0].Message.Content,
		Model:    model,
		Provider: ProviderOpenAI,
	}, nil
}
