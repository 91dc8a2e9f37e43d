package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// CacheImmutable is the Cache-Control applied to uploaded originals and page images.
const CacheImmutable = "public, max-age=604800, immutable"

// ErrInvalidKey is returned for keys that escape the bucket root.
var ErrInvalidKey = errors.New("invalid object key")

// PutOptions carries object metadata.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Bucket stores uploaded objects and returns their public URL.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (string, error)
}

// FileBucket is a Bucket on the local filesystem, served over HTTP by Handler.
type FileBucket struct {
	root    string
	baseURL string
}

// NewFileBucket creates root if needed. baseURL is the public prefix the
// bucket is mounted under, e.g. "https://slidr.example/files".
func NewFileBucket(root, baseURL string) (*FileBucket, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create bucket root: %w", err)
	}
	return &FileBucket{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *FileBucket) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

// Put writes the object atomically and returns its public URL.
func (b *FileBucket) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dest, err := b.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return b.URL(key), nil
}

// URL returns the public URL of key.
func (b *FileBucket) URL(key string) string {
	return b.baseURL + "/" + strings.TrimLeft(key, "/")
}

// Handler serves bucket objects with long-lived cache headers. Mount it with
// the mount prefix stripped.
func (b *FileBucket) Handler() http.Handler {
	fs := http.FileServer(http.Dir(b.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", CacheImmutable)
		fs.ServeHTTP(w, r)
	})
}
