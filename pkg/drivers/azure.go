package drivers

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/cloud-bulldozer/writeperf/pkg/config"
	log "github.com/cloud-bulldozer/writeperf/pkg/logging"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
)

const (
	azureDriverName = "azure"

	azConnStringEnv = "AZURE_STORAGE_CONNECTION_STRING"
	azAccountEnv    = "AZURE_STORAGE_ACCOUNT"
	azKeyEnv        = "AZURE_STORAGE_KEY"
)

type azureDriver struct {
	container  string
	serviceURL string
	connString string
	creds      *azblob.SharedKeyCredential
}

type azureWriter struct {
	client    *azblob.Client
	container string
}

// newAzure takes credentials from AZURE_STORAGE_CONNECTION_STRING, or from
// AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY. --bucket names the container.
func newAzure(cfg config.Config) (Driver, error) {
	d := &azureDriver{container: cfg.Bucket}
	if cs := os.Getenv(azConnStringEnv); cs != "" {
		d.connString = cs
		return d, nil
	}
	account, key := os.Getenv(azAccountEnv), os.Getenv(azKeyEnv)
	if account == "" || key == "" {
		return nil, fmt.Errorf("azure credentials missing: set %s, or %s and %s", azConnStringEnv, azAccountEnv, azKeyEnv)
	}
	creds, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}
	d.creds = creds
	d.serviceURL = cfg.Endpoint
	if d.serviceURL == "" {
		d.serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}
	return d, nil
}

func (d *azureDriver) Name() string { return azureDriverName }

func (d *azureDriver) Buffered() bool { return true }

func (d *azureDriver) Connect(_ context.Context) (Writer, error) {
	var (
		client *azblob.Client
		err    error
	)
	if d.connString != "" {
		client, err = azblob.NewClientFromConnectionString(d.connString, nil)
	} else {
		client, err = azblob.NewClientWithSharedKeyCredential(d.serviceURL, d.creds, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}
	log.Debugf("🔌 Azure client connected to container %s", d.container)
	return &azureWriter{client: client, container: d.container}, nil
}

func (w *azureWriter) Put(ctx context.Context, name string, p *payload.Payload) error {
	if _, err := w.client.UploadBuffer(ctx, w.container, name, p.Bytes(), nil); err != nil {
		return fmt.Errorf("upload %s/%s: %w", w.container, name, err)
	}
	return nil
}

func (w *azureWriter) Close() error { return nil }
