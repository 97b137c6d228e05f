package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*LocalStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)
	return s, root
}

func seed(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func entryPaths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestNewLocalStoreRequiresAbsolute(t *testing.T) {
	_, err := NewLocalStore("relative/dir")
	assert.Error(t, err)
}

func TestLocalList(t *testing.T) {
	s, root := newLocal(t)
	seed(t, root, map[string]string{
		"README.md":           "# hi",
		"src/index.js":        "console.log(1)",
		"src/components/a.js": "export {}",
		"src/styles.css":      "body{}",
	})
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		opts ListOptions
		want []string
	}{
		{"root", "", ListOptions{}, []string{"src", "README.md"}},
		{"subdir", "src", ListOptions{}, []string{"src/components", "src/index.js", "src/styles.css"}},
		{"recursive", "src", ListOptions{Recursive: true}, []string{"src/components", "src/components/a.js", "src/index.js", "src/styles.css"}},
		{"pattern", "src", ListOptions{Recursive: true, Pattern: "**/*.js"}, []string{"src/components/a.js", "src/index.js"}},
		{"base name pattern", "", ListOptions{Recursive: true, Pattern: "*.css"}, []string{"src/styles.css"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.List(ctx, tt.key, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, entryPaths(entries))
		})
	}
}

func TestLocalListErrors(t *testing.T) {
	s, root := newLocal(t)
	seed(t, root, map[string]string{"file.txt": "x"})
	ctx := context.Background()

	_, err := s.List(ctx, "missing", ListOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.List(ctx, "file.txt", ListOptions{})
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = s.List(ctx, "", ListOptions{Pattern: "[unclosed"})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = s.List(ctx, "../outside", ListOptions{})
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestLocalWriteReadDelete(t *testing.T) {
	s, root := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "deep/nested/file.txt", []byte("hello")))
	assert.FileExists(t, filepath.Join(root, "deep", "nested", "file.txt"))

	data, err := s.Read(ctx, "deep/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entry, err := s.Stat(ctx, "deep")
	require.NoError(t, err)
	assert.Equal(t, TypeDirectory, entry.Type)

	_, err = s.Read(ctx, "deep")
	assert.ErrorIs(t, err, ErrIsDirectory)
	assert.ErrorIs(t, s.Write(ctx, "deep", []byte("x")), ErrIsDirectory)

	require.NoError(t, s.Delete(ctx, "deep"))
	assert.NoDirExists(t, filepath.Join(root, "deep"))
	assert.ErrorIs(t, s.Delete(ctx, "deep"), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrInvalidPath)
}

func TestLocalStatFile(t *testing.T) {
	s, root := newLocal(t)
	seed(t, root, map[string]string{"a/b.txt": "12345"})

	entry, err := s.Stat(context.Background(), "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, Entry{
		Name:     "b.txt",
		Path:     "a/b.txt",
		Type:     TypeFile,
		Size:     5,
		Modified: entry.Modified,
	}, entry)
	assert.False(t, entry.Modified.IsZero())
}

func TestLocalListCancelled(t *testing.T) {
	s, root := newLocal(t)
	seed(t, root, map[string]string{"a/1.txt": "", "a/2.txt": "", "b/3.txt": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.List(ctx, "", ListOptions{Recursive: true})
	assert.ErrorIs(t, err, context.Canceled)
}
