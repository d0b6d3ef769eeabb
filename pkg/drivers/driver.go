package drivers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cloud-bulldozer/writeperf/pkg/config"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
)

// Driver creates the storage clients used by a run.
type Driver interface {
	// Name identifies the driver in logs and results.
	Name() string
	// Buffered reports whether Put sends the payload as one contiguous
	// buffer, so it must be materialised before timing starts.
	Buffered() bool
	// Connect returns a Writer owned by a single worker.
	Connect(ctx context.Context) (Writer, error)
}

// Writer performs object writes for a single worker. A Writer is never
// shared between goroutines.
type Writer interface {
	// Put writes one object and returns once it is durable.
	Put(ctx context.Context, name string, p *payload.Payload) error
	Close() error
}

// Preparer is implemented by writers that need per-object setup, such as
// clearing a file left by an earlier run. Prepare runs outside the timed
// write.
type Preparer interface {
	Prepare(ctx context.Context, name string) error
}

// NewDriver returns a Driver based on the given driverName and configuration.
// It currently supports the "s3", "gcs", "azure", "hdfs" and "local" drivers.
// If the driverName is not recognized, it returns an error.
func NewDriver(ctx context.Context, driverName string, cfg config.Config) (Driver, error) {
	switch driverName {
	case "s3":
		return newS3(ctx, cfg)
	case "gcs":
		return newGCS(cfg), nil
	case "azure":
		return newAzure(cfg)
	case "hdfs":
		return newHDFS(cfg.Bucket)
	case "local":
		return newLocal(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown driver: %s", driverName)
	}
}

// NewFSDriver picks a filesystem-style driver from the scheme of the
// bucket URI, e.g. hdfs://namenode:8020, file:///mnt/data or s3a://bucket.
// The returned config carries the bucket as the driver sees it.
func NewFSDriver(ctx context.Context, cfg config.Config) (Driver, config.Config, error) {
	if cfg.Bucket == "" || !strings.Contains(cfg.Bucket, "://") {
		return newLocal(cfg.Bucket), cfg, nil
	}
	u, err := url.Parse(cfg.Bucket)
	if err != nil {
		return nil, cfg, fmt.Errorf("invalid filesystem URI %q: %w", cfg.Bucket, err)
	}
	switch u.Scheme {
	case "hdfs":
		d, err := newHDFS(u.Host)
		return d, cfg, err
	case "file":
		return newLocal(u.Path), cfg, nil
	case "s3", "s3a":
		cfg.Bucket = u.Host
		d, err := newS3(ctx, cfg)
		return d, cfg, err
	case "gs":
		cfg.Bucket = u.Host
		return newGCS(cfg), cfg, nil
	default:
		return nil, cfg, fmt.Errorf("unsupported filesystem scheme: %s", u.Scheme)
	}
}
