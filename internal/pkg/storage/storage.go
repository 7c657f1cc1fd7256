// Package storage is the sink for exported backup codes: a local directory
// or an object store bucket.
package storage

import (
	"context"
	"io"
	"time"
)

// Storage writes one object per export. Objects are never read back.
type Storage interface {
	io.Closer

	PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error)
}

type PutOptions struct {
	// Size is the content length, or zero when unknown.
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo is what the caller shows the user after an export.
type ObjectInfo struct {
	Bucket string
	Key    string
	// Location is a path for the file driver and a URL for the others.
	Location    string
	Size        int64
	ETag        string
	ContentType string
	// UpdatedAt is zero when the backend does not report it.
	UpdatedAt time.Time
}

func objectURL(scheme, bucket, key string) string {
	return scheme + "://" + bucket + "/" + key
}
