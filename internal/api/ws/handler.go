package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/process"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/monitoring"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Dirs resolves command working directories inside the workspace.
type Dirs interface {
	Root() string
	ResolveDir(rel string) (string, error)
}

// Config holds command socket settings.
type Config struct {
	// Triggers are substrings marking a project scaffold command; such
	// commands end with commandComplete instead of close.
	Triggers       []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// Handler upgrades connections and runs one Session per socket.
type Handler struct {
	registry *process.Registry
	spawner  *process.Spawner
	dirs     Dirs
	cfg      Config
	log      *logging.Logger
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler. The registry must be the one the
// spawner registers into.
func NewHandler(registry *process.Registry, spawner *process.Spawner, dirs Dirs, cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	return &Handler{
		registry: registry,
		spawner:  spawner,
		dirs:     dirs,
		cfg:      cfg,
		log:      log.Named("ws"),
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Same policy as CORS: any origin
			},
		},
	}
}

// HandleConnection upgrades the request and blocks until the socket closes.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(h, id.NewConnectionID(), conn)
	s.log.Info("connection opened", zap.String("remote", c.ClientIP()))
	s.run()
}

func (h *Handler) isScaffold(command string) bool {
	for _, t := range h.cfg.Triggers {
		if strings.Contains(command, t) {
			return true
		}
	}
	return false
}
