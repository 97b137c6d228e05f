package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/paths"
)

// LocalStore keeps the workspace in a directory on disk.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed. root must be absolute.
func NewLocalStore(root string) (*LocalStore, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("workspace root must be absolute: %s", root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &LocalStore{root: filepath.Clean(root)}, nil
}

// Root returns the absolute root directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) resolve(key string) (string, error) {
	return paths.Resolve(s.root, key)
}

// List returns the entries of the directory at key.
func (s *LocalStore) List(ctx context.Context, key string, opts ListOptions) ([]Entry, error) {
	if err := validatePattern(opts.Pattern); err != nil {
		return nil, err
	}
	abs, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, s.statErr("list", key, err)
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	var entries []Entry
	if opts.Recursive {
		entries, err = s.walk(ctx, abs, opts.Pattern)
	} else {
		entries, err = s.readDir(abs, opts.Pattern)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, backendErr("list", key, err)
	}

	sortEntries(entries)
	return entries, nil
}

func (s *LocalStore) readDir(abs, pattern string) ([]Entry, error) {
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !matchPattern(pattern, d.Name()) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		entries = append(entries, s.entry(filepath.Join(abs, d.Name()), info))
	}
	return entries, nil
}

// walk lists the whole subtree. fastwalk calls the callback from several
// goroutines, so appends are guarded.
func (s *LocalStore) walk(ctx context.Context, abs, pattern string) ([]Entry, error) {
	var (
		mu      sync.Mutex
		entries []Entry
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, abs, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || p == abs {
			return nil
		}

		rel, relErr := filepath.Rel(abs, p)
		if relErr != nil || !matchPattern(pattern, filepath.ToSlash(rel)) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}

		e := s.entry(p, info)
		mu.Lock()
		entries = append(entries, e)
		mu.Unlock()
		return nil
	})
	return entries, err
}

// Read returns the contents of the file at key.
func (s *LocalStore) Read(_ context.Context, key string) ([]byte, error) {
	abs, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, s.statErr("read", key, err)
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, backendErr("read", key, err)
	}
	return data, nil
}

// Write creates or replaces the file at key, creating parent directories.
func (s *LocalStore) Write(_ context.Context, key string, data []byte) error {
	if key == "" {
		return ErrInvalidPath
	}
	abs, err := s.resolve(key)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return ErrIsDirectory
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return backendErr("write", key, err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return backendErr("write", key, err)
	}
	return nil
}

// Delete removes the file or directory tree at key.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidPath
	}
	abs, err := s.resolve(key)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(abs); err != nil {
		return s.statErr("delete", key, err)
	}
	if err := os.RemoveAll(abs); err != nil {
		return backendErr("delete", key, err)
	}
	return nil
}

// Stat describes the entry at key.
func (s *LocalStore) Stat(_ context.Context, key string) (Entry, error) {
	abs, err := s.resolve(key)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Entry{}, s.statErr("stat", key, err)
	}
	return s.entry(abs, info), nil
}

func (s *LocalStore) entry(abs string, info fs.FileInfo) Entry {
	e := Entry{
		Name:     info.Name(),
		Path:     paths.Relative(s.root, abs),
		Type:     TypeFile,
		Size:     info.Size(),
		Modified: info.ModTime().UTC(),
	}
	if info.IsDir() {
		e.Type = TypeDirectory
		e.Size = 0
	}
	return e
}

func (s *LocalStore) statErr(op, key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return backendErr(op, key, err)
}
