package workspace

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// EntryType distinguishes files from directories in a listing.
type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "directory"
)

// Entry describes one file or directory. Path is workspace-relative in
// slash form.
type Entry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Type     EntryType `json:"type"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ListOptions controls a listing.
type ListOptions struct {
	Recursive bool
	// Pattern is a doublestar glob matched against paths relative to the
	// listed directory. A pattern without a slash also matches base names
	// at any depth.
	Pattern string
}

// Store is a workspace backend. Keys are normalized workspace-relative
// paths; "" is the root.
type Store interface {
	List(ctx context.Context, key string, opts ListOptions) ([]Entry, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Stat(ctx context.Context, key string) (Entry, error)
}

// validatePattern rejects malformed globs before any backend work.
func validatePattern(pattern string) error {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return ErrInvalidPattern
	}
	return nil
}

// matchPattern reports whether rel (relative to the listed directory)
// satisfies pattern.
func matchPattern(pattern, rel string) bool {
	if pattern == "" {
		return true
	}
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, _ := doublestar.Match(pattern, path.Base(rel))
		return ok
	}
	return false
}

// sortEntries orders directories first, then by path.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type == TypeDirectory
		}
		return entries[i].Path < entries[j].Path
	})
}

func joinKey(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
