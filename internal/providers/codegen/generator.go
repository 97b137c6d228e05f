package codegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var (
	// ErrNotConfigured is returned when no API key was supplied.
	ErrNotConfigured = errors.New("code generator is not configured")
	// ErrEmptyPrompt is returned for blank prompts.
	ErrEmptyPrompt = errors.New("prompt is required")
)

// Result is the text produced for a prompt.
type Result struct {
	Text     string `json:"result"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

// Generator turns a prompt into generated code.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

// UpstreamError wraps a failure reported by, or on the way to, the provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Config selects and configures a provider.
type Config struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
	RPS          float64
	Logger       *logging.Logger
	Metrics      *monitoring.Metrics
}

// New builds the configured provider wrapped with logging and metrics.
// Without an API key it returns a generator that always fails with
// ErrNotConfigured.
func New(cfg Config) (Generator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.Logger.Warn("code generation disabled: no API key", zap.String("provider", cfg.Provider))
		return Disabled{}, nil
	}

	var g Generator
	switch cfg.Provider {
	case ProviderOpenAI, "":
		g = NewOpenAI(cfg)
	case ProviderAnthropic:
		g = NewAnthropic(cfg)
	default:
		return nil, fmt.Errorf("unknown code generation provider %q", cfg.Provider)
	}
	return &instrumented{
		next:     g,
		provider: providerName(cfg.Provider),
		log:      cfg.Logger.Named("codegen"),
		metrics:  cfg.Metrics,
	}, nil
}

func providerName(p string) string {
	if p == "" {
		return ProviderOpenAI
	}
	return p
}

// Disabled is the generator used when no API key is configured.
type Disabled struct{}

// Generate always fails with ErrNotConfigured.
func (Disabled) Generate(context.Context, string) (Result, error) {
	return Result{}, ErrNotConfigured
}

// instrumented validates the prompt and records every call.
type instrumented struct {
	next     Generator
	provider string
	log      *logging.Logger
	metrics  *monitoring.Metrics
}

func (g *instrumented) Generate(ctx context.Context, prompt string) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}

	start := time.Now()
	res, err := g.next.Generate(ctx, prompt)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		g.log.Warn("generation failed",
			zap.String("provider", g.provider),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		g.log.Info("generation complete",
			zap.String("provider", g.provider),
			zap.String("model", res.Model),
			zap.Int("prompt_chars", len(prompt)),
			zap.Int("result_chars", len(res.Text)),
			zap.Duration("elapsed", elapsed))
	}
	if g.metrics != nil {
		g.metrics.RecordGeneration(g.provider, outcome, elapsed)
	}
	return res, err
}
