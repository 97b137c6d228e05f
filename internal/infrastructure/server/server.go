package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/dikshantchitara/CodePilot-AI-Server/internal/api/http"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/api/middleware"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/api/ws"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/process"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/workspace"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/config"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/httpclient"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/monitoring"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/resilience"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/providers/codegen"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	registry *process.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, version string) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, err
	}
	return newServer(cfg, logger, version)
}

func newServer(cfg *config.Config, logger *logging.Logger, version string) (*Server, error) {
	root, err := cfg.WorkspaceRoot()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	logger.Info("Initializing CodePilot server",
		zap.String("version", version),
		zap.String("port", cfg.Server.Port),
		zap.String("workspace", root),
		zap.String("storage", cfg.Workspace.Backend),
		zap.String("generator", cfg.Generator.Provider),
	)

	// Metrics first, every other component records into them
	metrics := monitoring.NewMetrics()

	registry := process.NewRegistry(
		process.WithLogger(logger),
		process.WithObserver(metrics.SetProcessesActive),
	)
	spawner := process.NewSpawner(registry, process.SpawnerConfig{
		ShellPath: cfg.Exec.Shell,
		WaitDelay: cfg.Exec.WaitDelay,
	})

	store, err := newStore(cfg, root, logger, metrics)
	if err != nil {
		return nil, err
	}
	manager := workspace.NewManager(store, registry, workspace.ManagerConfig{
		Root:        root,
		GracePeriod: cfg.Exec.KillGracePeriod,
		Logger:      logger,
		Metrics:     metrics,
	})

	generator, err := codegen.New(codegen.Config{
		Provider:     cfg.Generator.Provider,
		BaseURL:      cfg.Generator.BaseURL,
		APIKey:       cfg.Generator.APIKey,
		Model:        cfg.Generator.Model,
		MaxTokens:    cfg.Generator.MaxTokens,
		Timeout:      cfg.Generator.Timeout,
		SystemPrompt: cfg.Generator.SystemPrompt,
		RPS:          cfg.Generator.RPS,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodySize))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.CORSOrigins
	router.Use(middleware.CORS(cors))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	if cfg.Server.StaticDir != "" {
		router.Static("/static", cfg.Server.StaticDir)
	}

	// Command sessions
	wsHandler := ws.NewHandler(registry, spawner, manager, ws.Config{
		Triggers:       cfg.Triggers(),
		PingInterval:   cfg.WebSocket.PingInterval,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	}, logger, metrics)
	router.GET("/ws", wsHandler.HandleConnection)
	router.GET("/stream", wsHandler.HandleConnection)

	// REST facade, health and metrics
	api.NewHandlers(manager, generator, registry, metrics, logger, version).Register(router)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		registry: registry,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// newStore builds the configured workspace backend.
func newStore(cfg *config.Config, root string, logger *logging.Logger, metrics *monitoring.Metrics) (workspace.Store, error) {
	switch cfg.Workspace.Backend {
	case config.BackendBlob:
		client := httpclient.New(httpclient.Options{
			Name:    "blob",
			BaseURL: cfg.Workspace.BlobURL,
			Token:   cfg.Workspace.BlobToken,
			Logger:  logger,
			OnStateChange: func(name string, from, to resilience.State) {
				metrics.SetBreakerState(name, int(to))
				logger.Warn("upstream breaker changed state",
					zap.String("upstream", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
		logger.Info("Using blob workspace storage", zap.String("url", cfg.Workspace.BlobURL))
		return workspace.NewBlobStore(client, cfg.Workspace.BlobPrefix), nil
	default:
		return workspace.NewLocalStore(root)
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.terminateAll()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, waits for in-flight ones and
// terminates every process still running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP shutdown did not complete", zap.Error(err))
	}
	s.terminateAll()

	s.logger.Sync()
	return err
}

func (s *Server) terminateAll() {
	if n := s.registry.TerminateAll(); n > 0 {
		s.metrics.RecordTermination("shutdown", n)
		s.logger.Info("Terminated running processes", zap.Int("count", n))
	}
}
