// Package blob re-exports the core blob abstractions and selects a
// backend driver from configuration.
package blob

import (
	"context"
	"fmt"

	"swatch/internal/blob/core"
	"swatch/internal/infra/blob/fs"
	"swatch/internal/infra/blob/memory"
	"swatch/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrNotFound indicates a requested key does not exist.
var ErrNotFound = core.ErrNotFound

// Options selects and configures a backend driver.
type Options struct {
	Driver      Driver
	FSRoot      string // fs driver: directory root (default ./artifacts)
	S3Bucket    string // s3 driver: bucket name (required)
	S3Region    string
	S3Endpoint  string // optional, for MinIO
	S3PathStyle bool
}

// Open constructs the Store named by opts.Driver. An empty driver
// defaults to the filesystem backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(opts.FSRoot)
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    opts.S3Bucket,
			Region:    opts.S3Region,
			Endpoint:  opts.S3Endpoint,
			PathStyle: opts.S3PathStyle,
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
