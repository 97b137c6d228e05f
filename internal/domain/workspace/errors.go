package workspace

import (
	"errors"
	"fmt"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/paths"
)

var (
	// ErrPathEscape is returned for paths that resolve outside the root.
	ErrPathEscape = paths.ErrEscape
	// ErrNotFound is returned when the target does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPath is returned for paths that are empty where a file is
	// required, or that name the workspace root for deletion.
	ErrInvalidPath = errors.New("invalid path")
	// ErrIsDirectory is returned when a file operation targets a directory.
	ErrIsDirectory = errors.New("is a directory")
	// ErrNotDirectory is returned when listing a file.
	ErrNotDirectory = errors.New("not a directory")
	// ErrInvalidPattern is returned for malformed glob patterns.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// BackendError wraps a storage failure that is not the caller's fault.
type BackendError struct {
	Op   string
	Path string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("workspace %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func backendErr(op, path string, err error) error {
	return &BackendError{Op: op, Path: path, Err: err}
}

// IsClientError reports whether err was caused by the request rather than
// the backend.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPathEscape) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidPath) ||
		errors.Is(err, ErrIsDirectory) ||
		errors.Is(err, ErrNotDirectory) ||
		errors.Is(err, ErrInvalidPattern)
}
