package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey indicates an object key that escapes the base directory.
var ErrInvalidKey = errors.New("storage: invalid object key")

// FileOptions configures the local file driver.
type FileOptions struct {
	// Dir is the base directory. Buckets become subdirectories.
	Dir string
}

// FileAdapter implements Storage on the local filesystem.
type FileAdapter struct {
	dir string
}

// NewFile returns a file adapter rooted at opts.Dir, or the working directory
// when empty.
func NewFile(opts FileOptions) *FileAdapter {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = "."
	}
	return &FileAdapter{dir: filepath.Clean(dir)}
}

// PutObject writes r to <dir>/<bucket>/<key> with owner-only permissions.
func (f *FileAdapter) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	if key == "" || filepath.Base(key) != key {
		return ObjectInfo{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if bucket != "" && filepath.Base(bucket) != bucket {
		return ObjectInfo{}, fmt.Errorf("%w: bucket %q", ErrInvalidKey, bucket)
	}

	dir := filepath.Join(f.dir, bucket)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ObjectInfo{}, err
	}

	path := filepath.Join(dir, key)
	// #nosec G304 -- key is a single path element checked above.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return ObjectInfo{}, err
	}

	n, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return ObjectInfo{}, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Location:    path,
		Size:        n,
		ContentType: opts.ContentType,
		UpdatedAt:   stat.ModTime(),
	}, nil
}

// Close implements io.Closer.
func (f *FileAdapter) Close() error {
	return nil
}
