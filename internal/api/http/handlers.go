package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/process"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/workspace"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/monitoring"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/providers/codegen"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "CodePilot AI Server"

// Workspace is the file API the handlers serve.
type Workspace interface {
	Root() string
	List(ctx context.Context, rel string, opts workspace.ListOptions) (workspace.Listing, error)
	Read(ctx context.Context, rel string) (workspace.File, error)
	Write(ctx context.Context, rel string, content []byte) (string, error)
	Delete(ctx context.Context, rel string) (workspace.Deletion, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	workspace Workspace
	generator codegen.Generator
	registry  *process.Registry
	metrics   *monitoring.Metrics
	log       *logging.Logger
	version   string
}

// NewHandlers creates a new handler set
func NewHandlers(
	ws Workspace,
	generator codegen.Generator,
	registry *process.Registry,
	metrics *monitoring.Metrics,
	log *logging.Logger,
	version string,
) *Handlers {
	if log == nil {
		log = logging.Nop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	return &Handlers{
		workspace: ws,
		generator: generator,
		registry:  registry,
		metrics:   metrics,
		log:       log.Named("http"),
		version:   version,
	}
}

// Register installs the health template and every REST route on r.
func (h *Handlers) Register(r *gin.Engine) {
	r.SetHTMLTemplate(healthTemplate)

	r.GET("/", h.Root)
	r.GET("/health", h.HealthPage)
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	r.GET("/list", h.List)
	r.GET("/read", h.Read)
	r.GET("/read/*path", h.Read)
	r.POST("/write", h.Write)
	r.DELETE("/*path", h.Delete)

	r.POST("/generate", h.Generate)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": h.version,
	})
}

// List lists a workspace directory
func (h *Handlers) List(c *gin.Context) {
	opts := workspace.ListOptions{Pattern: c.Query("pattern")}
	if raw := c.Query("recursive"); raw != "" {
		recursive, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "recursive must be a boolean")
			return
		}
		opts.Recursive = recursive
	}

	listing, err := h.workspace.List(c.Request.Context(), c.Query("path"), opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Read returns a file's content. The path comes from ?path= or from the
// URL tail of /read/*path.
func (h *Handlers) Read(c *gin.Context) {
	rel := c.Query("path")
	if tail := strings.TrimPrefix(c.Param("path"), "/"); tail != "" {
		rel = tail
	}

	file, err := h.workspace.Read(c.Request.Context(), rel)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

type writeRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

// Write creates or replaces a file
func (h *Handlers) Write(c *gin.Context) {
	var req writeRequest
	if !bind(c, &req) {
		return
	}

	key, err := h.workspace.Write(c.Request.Context(), req.Path, []byte(req.Content))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"path":    key,
		"size":    len(req.Content),
		"written": true,
	})
}

type deleteRequest struct {
	Path string `json:"path"`
}

// Delete removes a file or directory after terminating every process
// running inside it. The path is the URL tail, or {"path"} in the body
// for DELETE /.
func (h *Handlers) Delete(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	if rel == "" && c.Request.ContentLength != 0 {
		var req deleteRequest
		if !bind(c, &req) {
			return
		}
		rel = req.Path
	}

	del, err := h.workspace.Delete(c.Request.Context(), rel)
	if err != nil {
		fail(c, err)
		return
	}
	if del.Terminated > 0 {
		h.log.Info("deleted path with running processes",
			zap.String("path", del.Path),
			zap.Int("terminated", del.Terminated),
		)
	}
	c.JSON(http.StatusOK, del)
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate forwards a prompt to the code generator
func (h *Handlers) Generate(c *gin.Context) {
	var req generateRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
