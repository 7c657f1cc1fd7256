package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// DefaultBoltBucket is used when BoltOptions.Bucket is empty.
const DefaultBoltBucket = "session"

// BoltOptions configures the bbolt driver.
type BoltOptions struct {
	// Path is the database file. Parent directories are created.
	Path string
	// Bucket holds every key of this store.
	Bucket string
}

// Bolt persists values in a single bbolt bucket.
type Bolt struct {
	db     *bbolt.DB
	bucket []byte
}

// NewBolt opens (or creates) the database file at opts.Path.
func NewBolt(opts BoltOptions) (*Bolt, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, errors.New("kvstore: bolt path is required")
	}
	bucket := opts.Bucket
	if bucket == "" {
		bucket = DefaultBoltBucket
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("kvstore: create bolt dir: %w", err)
	}

	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("kvstore: open bolt db: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kvstore: create bolt bucket: %w", err)
	}

	return &Bolt{db: db, bucket: []byte(bucket)}, nil
}

// Get returns the value for key.
func (b *Bolt) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(b.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		value = string(raw)
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", notFound(key)
	}

	return value, nil
}

// Set stores value under key.
func (b *Bolt) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), []byte(value))
	})
}

// Remove deletes key.
func (b *Bolt) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
}

// Close releases the file lock.
func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
