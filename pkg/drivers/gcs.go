package drivers

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/cloud-bulldozer/writeperf/pkg/config"
	log "github.com/cloud-bulldozer/writeperf/pkg/logging"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
	"google.golang.org/api/option"
)

const gcsDriverName = "gcs"

type gcsDriver struct {
	bucket   string
	endpoint string
	checksum bool
	// newClient is swapped for a fake-gcs-server client in tests
	newClient func(ctx context.Context) (*storage.Client, error)
}

type gcsWriter struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	cksum  bool
}

func newGCS(cfg config.Config) *gcsDriver {
	d := &gcsDriver{
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		checksum: cfg.Checksum,
	}
	d.newClient = d.defaultClient
	return d
}

// defaultClient uses Application Default Credentials; STORAGE_EMULATOR_HOST
// is honoured by the client library itself.
func (d *gcsDriver) defaultClient(ctx context.Context) (*storage.Client, error) {
	var opts []option.ClientOption
	if d.endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.endpoint))
	}
	return storage.NewClient(ctx, opts...)
}

func (d *gcsDriver) Name() string { return gcsDriverName }

func (d *gcsDriver) Buffered() bool { return false }

func (d *gcsDriver) Connect(ctx context.Context) (Writer, error) {
	client, err := d.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	log.Debugf("🔌 GCS client connected to bucket %s", d.bucket)
	return &gcsWriter{
		client: client,
		bucket: client.Bucket(d.bucket),
		name:   d.bucket,
		cksum:  d.checksum,
	}, nil
}

// Put streams the blocks into an object writer; the object only exists
// once Close returns.
func (w *gcsWriter) Put(ctx context.Context, name string, p *payload.Payload) error {
	wc := w.bucket.Object(name).NewWriter(ctx)
	if w.cksum {
		wc.CRC32C = p.CRC32C()
		wc.SendCRC32C = true
	}
	if _, err := p.WriteTo(wc); err != nil {
		wc.Close()
		return fmt.Errorf("write gs://%s/%s: %w", w.name, name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", w.name, name, err)
	}
	return nil
}

func (w *gcsWriter) Close() error {
	return w.client.Close()
}
