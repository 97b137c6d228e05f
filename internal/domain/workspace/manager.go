package workspace

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/process"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/monitoring"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/paths"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// File is the result of a read.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	MIME    string `json:"mime"`
	Size    int    `json:"size"`
}

// Listing is the result of a list.
type Listing struct {
	Path    string  `json:"path"`
	Entries []Entry `json:"entries"`
}

// Deletion is the result of a delete.
type Deletion struct {
	Path       string `json:"path"`
	Deleted    bool   `json:"deleted"`
	Terminated int    `json:"terminated"`
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Root is the absolute local directory commands run in.
	Root string
	// GracePeriod is how long Delete waits after killing processes
	// running inside the target before removing it.
	GracePeriod time.Duration
	Logger      *logging.Logger
	Metrics     *monitoring.Metrics
}

// Manager confines paths to the workspace and couples directory deletion
// to process termination.
type Manager struct {
	store    Store
	registry *process.Registry
	root     string
	grace    time.Duration
	log      *logging.Logger
	metrics  *monitoring.Metrics
}

// NewManager creates a manager over store. registry may be shared with the
// WebSocket sessions.
func NewManager(store Store, registry *process.Registry, cfg ManagerConfig) *Manager {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		store:    store,
		registry: registry,
		root:     filepath.Clean(cfg.Root),
		grace:    cfg.GracePeriod,
		log:      log.Named("workspace"),
		metrics:  cfg.Metrics,
	}
}

// Root returns the absolute workspace directory.
func (m *Manager) Root() string { return m.root }

// ResolveDir maps a workspace-relative directory onto the local root.
func (m *Manager) ResolveDir(rel string) (string, error) {
	return paths.Resolve(m.root, rel)
}

// List returns the entries under rel.
func (m *Manager) List(ctx context.Context, rel string, opts ListOptions) (listing Listing, err error) {
	timer := monitoring.NewTimer(m.metrics, "list")
	defer func() { timer.Stop(result(err)) }()

	key, err := paths.Normalize(rel)
	if err != nil {
		return Listing{}, err
	}
	entries, err := m.store.List(ctx, key, opts)
	if err != nil {
		return Listing{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Listing{Path: key, Entries: entries}, nil
}

// Read returns the file at rel with its detected MIME type.
func (m *Manager) Read(ctx context.Context, rel string) (file File, err error) {
	timer := monitoring.NewTimer(m.metrics, "read")
	defer func() { timer.Stop(result(err)) }()

	key, err := paths.Normalize(rel)
	if err != nil {
		return File{}, err
	}
	if key == "" {
		return File{}, ErrIsDirectory
	}
	data, err := m.store.Read(ctx, key)
	if err != nil {
		return File{}, err
	}
	return File{
		Path:    key,
		Content: string(data),
		MIME:    detectMIME(key, data),
		Size:    len(data),
	}, nil
}

// Write stores content at rel, creating parent directories.
func (m *Manager) Write(ctx context.Context, rel string, content []byte) (key string, err error) {
	timer := monitoring.NewTimer(m.metrics, "write")
	defer func() { timer.Stop(result(err)) }()

	key, err = paths.Normalize(rel)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrInvalidPath
	}
	if err := m.store.Write(ctx, key, content); err != nil {
		return "", err
	}
	m.log.Debug("file written", zap.String("path", key), zap.Int("size", len(content)))
	return key, nil
}

// Delete removes the file or directory at rel. Processes running inside
// the target are terminated first; if any were, Delete waits the grace
// period so they can release the directory before it is removed.
func (m *Manager) Delete(ctx context.Context, rel string) (del Deletion, err error) {
	timer := monitoring.NewTimer(m.metrics, "delete")
	defer func() { timer.Stop(result(err)) }()

	key, err := paths.Normalize(rel)
	if err != nil {
		return Deletion{}, err
	}
	if key == "" {
		return Deletion{}, ErrInvalidPath
	}
	if _, err := m.store.Stat(ctx, key); err != nil {
		return Deletion{}, err
	}

	abs := filepath.Join(m.root, filepath.FromSlash(key))
	terminated := 0
	if m.registry != nil {
		terminated = m.registry.TerminateUnder(abs)
	}
	if terminated > 0 {
		if m.metrics != nil {
			m.metrics.RecordTermination("delete", terminated)
		}
		m.log.Info("terminated processes before delete",
			zap.String("path", key),
			zap.Int("count", terminated),
			zap.Duration("grace", m.grace))
		if err := sleep(ctx, m.grace); err != nil {
			return Deletion{}, fmt.Errorf("waiting for terminated processes: %w", err)
		}
	}

	if err := m.store.Delete(ctx, key); err != nil {
		return Deletion{}, err
	}
	m.log.Info("deleted", zap.String("path", key))
	return Deletion{Path: key, Deleted: true, Terminated: terminated}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsClientError(err):
		return "rejected"
	default:
		return "error"
	}
}

// detectMIME sniffs data; for plain text it falls back to the extension so
// source files report something more useful than text/plain.
func detectMIME(key string, data []byte) string {
	detected := mimetype.Detect(data)
	if detected.Is("text/plain") {
		if byExt := mimeByExtension(path.Ext(key)); byExt != "" {
			return byExt
		}
	}
	return detected.String()
}

func mimeByExtension(ext string) string {
	switch ext {
	case ".js", ".mjs", ".cjs", ".jsx":
		return "text/javascript; charset=utf-8"
	case ".ts", ".tsx":
		return "text/x-typescript; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".go":
		return "text/x-go; charset=utf-8"
	case ".py":
		return "text/x-python; charset=utf-8"
	}
	return ""
}
