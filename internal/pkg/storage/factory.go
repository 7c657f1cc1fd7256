package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DriverFile  = "file"
	DriverS3    = "s3"
	DriverGCS   = "gcs"
	DriverMinIO = "minio"
)

// ErrUnknownDriver indicates an unsupported storage driver.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// FactoryOptions carries the settings of every driver; only the selected
// one is read.
type FactoryOptions struct {
	File  FileOptions
	S3    S3Options
	GCS   GCSOptions
	MinIO MinIOOptions
}

// NewFromDriver builds the driver named by driver. An empty name selects
// the file driver.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Storage, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case DriverFile, "":
		return NewFile(opts.File), nil
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverGCS:
		return NewGCS(ctx, opts.GCS)
	case DriverMinIO:
		return NewMinIO(opts.MinIO)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, d)
	}
}
