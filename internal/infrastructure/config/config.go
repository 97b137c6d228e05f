package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage backends for the workspace.
const (
	BackendLocal = "local"
	BackendBlob  = "blob"
)

// Code generation providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Workspace WorkspaceConfig
	Exec      ExecConfig
	WebSocket WebSocketConfig
	Generator GeneratorConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	StaticDir       string        `envconfig:"STATIC_DIR"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
	MaxBodySize     int64         `envconfig:"MAX_BODY_SIZE" default:"10485760"`
}

// WorkspaceConfig selects where workspace files live.
type WorkspaceConfig struct {
	Root       string `envconfig:"WORKSPACE_ROOT" default:"./workspace"`
	Backend    string `envconfig:"STORAGE_BACKEND" default:"local"`
	BlobURL    string `envconfig:"BLOB_URL"`
	BlobToken  string `envconfig:"BLOB_TOKEN"`
	BlobPrefix string `envconfig:"BLOB_PREFIX" default:"workspace/"`
}

// ExecConfig controls spawned shell commands.
type ExecConfig struct {
	Shell            string        `envconfig:"SHELL_PATH"`
	KillGracePeriod  time.Duration `envconfig:"KILL_GRACE_PERIOD" default:"1s"`
	WaitDelay        time.Duration `envconfig:"EXEC_WAIT_DELAY" default:"2s"`
	ScaffoldTriggers []string      `envconfig:"SCAFFOLD_TRIGGERS" default:"create-react-app,create-vite,create-next-app"`
}

// WebSocketConfig holds command socket settings.
type WebSocketConfig struct {
	PingInterval   time.Duration `envconfig:"WS_PING_INTERVAL" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"10s"`
	MaxMessageSize int64         `envconfig:"WS_MAX_MESSAGE_SIZE" default:"65536"`
}

// GeneratorConfig holds the code-generation upstream settings. An empty
// BaseURL or Model selects the provider's default.
type GeneratorConfig struct {
	Provider     string        `envconfig:"GENERATOR_PROVIDER" default:"openai"`
	BaseURL      string        `envconfig:"GENERATOR_URL"`
	APIKey       string        `envconfig:"GENERATOR_API_KEY"`
	Model        string        `envconfig:"GENERATOR_MODEL"`
	MaxTokens    int           `envconfig:"GENERATOR_MAX_TOKENS" default:"4096"`
	Timeout      time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"60s"`
	SystemPrompt string        `envconfig:"GENERATOR_SYSTEM_PROMPT" default:"You are a coding assistant. Reply with code only."`
	RPS          float64       `envconfig:"GENERATOR_RPS" default:"2"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			MaxBodySize:     10 << 20,
		},
		Workspace: WorkspaceConfig{
			Root:       "./workspace",
			Backend:    BackendLocal,
			BlobPrefix: "workspace/",
		},
		Exec: ExecConfig{
			KillGracePeriod:  time.Second,
			WaitDelay:        2 * time.Second,
			ScaffoldTriggers: []string{"create-react-app", "create-vite", "create-next-app"},
		},
		WebSocket: WebSocketConfig{
			PingInterval:   30 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxMessageSize: 64 * 1024,
		},
		Generator: GeneratorConfig{
			Provider:     ProviderOpenAI,
			MaxTokens:    4096,
			Timeout:      60 * time.Second,
			SystemPrompt: "You are a coding assistant. Reply with code only.",
			RPS:          2,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Workspace.Backend {
	case BackendLocal:
	case BackendBlob:
		if c.Workspace.BlobURL == "" {
			return fmt.Errorf("invalid config: BLOB_URL is required for the blob backend")
		}
	default:
		return fmt.Errorf("invalid config: unknown STORAGE_BACKEND %q", c.Workspace.Backend)
	}

	switch c.Generator.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("invalid config: unknown GENERATOR_PROVIDER %q", c.Generator.Provider)
	}

	if c.Exec.KillGracePeriod < 0 {
		return fmt.Errorf("invalid config: KILL_GRACE_PERIOD must not be negative")
	}
	return nil
}

// WorkspaceRoot returns the absolute, cleaned workspace root.
func (c *Config) WorkspaceRoot() (string, error) {
	abs, err := filepath.Abs(c.Workspace.Root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	return filepath.Clean(abs), nil
}

// Triggers returns the scaffold triggers with blanks removed.
func (c *Config) Triggers() []string {
	out := make([]string, 0, len(c.Exec.ScaffoldTriggers))
	for _, t := range c.Exec.ScaffoldTriggers {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
