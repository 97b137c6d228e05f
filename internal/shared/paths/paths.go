// Package paths confines client-supplied relative paths to a workspace root.
//
// Every path that reaches the filesystem, the blob store or the process
// registry goes through Normalize or Resolve first, so a path that would land
// outside the root is rejected before anything is touched.
package paths

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrEscape is returned when a path resolves outside the workspace root.
var ErrEscape = errors.New("path escapes workspace root")

// Normalize cleans a workspace key into slash form with no leading slash.
// "" and "." map to "" (the root). Keys that climb above the root fail
// with ErrEscape.
func Normalize(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", ErrEscape
	}
	rel = strings.ReplaceAll(rel, `\`, "/")
	if filepath.VolumeName(filepath.FromSlash(rel)) != "" {
		return "", ErrEscape
	}

	clean := path.Clean(strings.TrimLeft(rel, "/"))
	switch {
	case clean == ".":
		return "", nil
	case clean == "..", strings.HasPrefix(clean, "../"):
		return "", ErrEscape
	}
	return clean, nil
}

// Resolve maps rel onto root and returns the absolute path.
// root must already be absolute and clean.
func Resolve(root, rel string) (string, error) {
	key, err := Normalize(rel)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(root, filepath.FromSlash(key))
	if !Within(root, abs) {
		return "", ErrEscape
	}
	return abs, nil
}

// Within reports whether p is root itself or lies beneath it.
func Within(root, p string) bool {
	root = filepath.Clean(root)
	p = filepath.Clean(p)
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// Relative returns abs relative to root in slash form, "" for root itself.
func Relative(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
