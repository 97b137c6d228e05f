package workspace

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/httpclient"
	"github.com/go-resty/resty/v2"
)

// blobObject is one key in a blob service listing.
type blobObject struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

type blobListing struct {
	Objects []blobObject `json:"objects"`
}

// BlobStore keeps the workspace in a remote object store speaking a small
// REST protocol:
//
//	GET    /objects?prefix=p   -> {"objects":[{"key","size","modified"}]}
//	GET    /objects/{key}      -> raw bytes
//	PUT    /objects/{key}      <- raw bytes
//	DELETE /objects/{key}
//
// The service has no directories; they are synthesized from key prefixes.
type BlobStore struct {
	client *httpclient.Client
	prefix string
}

// NewBlobStore creates a store on client. Every key is stored under prefix.
func NewBlobStore(client *httpclient.Client, prefix string) *BlobStore {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &BlobStore{client: client, prefix: prefix}
}

func (s *BlobStore) objectKey(key string) string {
	return s.prefix + key
}

func objectPath(objectKey string) string {
	segments := strings.Split(objectKey, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/objects/" + strings.Join(segments, "/")
}

// list fetches every object under the given object-key prefix, with the
// store prefix stripped.
func (s *BlobStore) list(ctx context.Context, op, key, prefix string) ([]blobObject, error) {
	var listing blobListing
	resp, err := s.client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("prefix", prefix).SetResult(&listing).Get("/objects")
	})
	if err != nil {
		return nil, backendErr(op, key, err)
	}
	if resp.IsError() {
		return nil, backendErr(op, key, &httpclient.StatusError{Status: resp.StatusCode(), Body: resp.String()})
	}

	out := make([]blobObject, 0, len(listing.Objects))
	for _, obj := range listing.Objects {
		if !strings.HasPrefix(obj.Key, s.prefix) {
			continue
		}
		obj.Key = strings.TrimPrefix(obj.Key, s.prefix)
		out = append(out, obj)
	}
	return out, nil
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}

// List synthesizes directory entries from the keys under key.
func (s *BlobStore) List(ctx context.Context, key string, opts ListOptions) ([]Entry, error) {
	if err := validatePattern(opts.Pattern); err != nil {
		return nil, err
	}

	base := dirPrefix(key)
	objects, err := s.list(ctx, "list", key, s.objectKey(base))
	if err != nil {
		return nil, err
	}

	if len(objects) == 0 && key != "" {
		entry, err := s.Stat(ctx, key)
		if err != nil {
			return nil, err
		}
		if entry.Type == TypeFile {
			return nil, ErrNotDirectory
		}
	}

	seen := make(map[string]bool)
	var entries []Entry
	add := func(e Entry, rel string) {
		if seen[e.Path] || !matchPattern(opts.Pattern, rel) {
			return
		}
		seen[e.Path] = true
		entries = append(entries, e)
	}

	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, base)
		if rel == "" {
			continue
		}
		parts := strings.Split(rel, "/")

		depth := len(parts) - 1
		if !opts.Recursive && depth > 0 {
			depth = 1
		}
		for i := 1; i <= depth && i < len(parts); i++ {
			dirRel := strings.Join(parts[:i], "/")
			add(Entry{
				Name:     parts[i-1],
				Path:     base + dirRel,
				Type:     TypeDirectory,
				Modified: obj.Modified.UTC(),
			}, dirRel)
		}
		if opts.Recursive || len(parts) == 1 {
			add(Entry{
				Name:     path.Base(rel),
				Path:     obj.Key,
				Type:     TypeFile,
				Size:     obj.Size,
				Modified: obj.Modified.UTC(),
			}, rel)
		}
	}

	sortEntries(entries)
	return entries, nil
}

// Read downloads the object at key.
func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrIsDirectory
	}
	resp, err := s.client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(objectPath(s.objectKey(key)))
	})
	if err != nil {
		return nil, backendErr("read", key, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		if entry, err := s.Stat(ctx, key); err == nil && entry.Type == TypeDirectory {
			return nil, ErrIsDirectory
		}
		return nil, ErrNotFound
	case resp.IsError():
		return nil, backendErr("read", key, &httpclient.StatusError{Status: resp.StatusCode(), Body: resp.String()})
	}
	return resp.Body(), nil
}

// Write uploads data to key.
func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrInvalidPath
	}
	resp, err := s.client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/octet-stream").
			SetBody(data).
			Put(objectPath(s.objectKey(key)))
	})
	if err != nil {
		return backendErr("write", key, err)
	}
	if resp.IsError() {
		return backendErr("write", key, &httpclient.StatusError{Status: resp.StatusCode(), Body: resp.String()})
	}
	return nil
}

// Delete removes the object at key and every object beneath it.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidPath
	}
	children, err := s.list(ctx, "delete", key, s.objectKey(dirPrefix(key)))
	if err != nil {
		return err
	}

	deleted := 0
	for _, obj := range children {
		ok, err := s.deleteObject(ctx, obj.Key)
		if err != nil {
			return err
		}
		if ok {
			deleted++
		}
	}

	ok, err := s.deleteObject(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		deleted++
	}

	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BlobStore) deleteObject(ctx context.Context, key string) (bool, error) {
	resp, err := s.client.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Delete(objectPath(s.objectKey(key)))
	})
	if err != nil {
		return false, backendErr("delete", key, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return false, nil
	case resp.IsError():
		return false, backendErr("delete", key, &httpclient.StatusError{Status: resp.StatusCode(), Body: resp.String()})
	}
	return true, nil
}

// Stat resolves key to a file or a synthesized directory.
func (s *BlobStore) Stat(ctx context.Context, key string) (Entry, error) {
	if key == "" {
		return Entry{Name: "", Path: "", Type: TypeDirectory}, nil
	}
	objects, err := s.list(ctx, "stat", key, s.objectKey(key))
	if err != nil {
		return Entry{}, err
	}

	dir := Entry{Name: path.Base(key), Path: key, Type: TypeDirectory}
	isDir := false
	for _, obj := range objects {
		if obj.Key == key {
			return Entry{
				Name:     path.Base(key),
				Path:     key,
				Type:     TypeFile,
				Size:     obj.Size,
				Modified: obj.Modified.UTC(),
			}, nil
		}
		if strings.HasPrefix(obj.Key, key+"/") {
			isDir = true
			if obj.Modified.After(dir.Modified) {
				dir.Modified = obj.Modified.UTC()
			}
		}
	}
	if isDir {
		return dir, nil
	}
	return Entry{}, ErrNotFound
}

// IsUnavailable reports whether err came from an open circuit breaker.
func IsUnavailable(err error) bool {
	return errors.Is(err, httpclient.ErrUnavailable)
}
