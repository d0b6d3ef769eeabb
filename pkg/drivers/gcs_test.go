package drivers

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/cloud-bulldozer/writeperf/pkg/config"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeBucket = "bench-bucket"

func newFakeGCS(t *testing.T) (*fakestorage.Server, *gcsDriver) {
	t.Helper()
	server, err := fakestorage.NewServerWithOptions(fakestorage.Options{NoListener: true})
	require.NoError(t, err)
	t.Cleanup(server.Stop)
	server.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: fakeBucket})

	d := newGCS(config.Config{Bucket: fakeBucket, Checksum: true})
	d.newClient = func(context.Context) (*storage.Client, error) {
		return server.Client(), nil
	}
	return server, d
}

func TestGCSPut(t *testing.T) {
	server, d := newFakeGCS(t)
	assert.False(t, d.Buffered())

	w, err := d.Connect(context.Background())
	require.NoError(t, err)
	defer w.Close()

	p := payload.New(256, 8)
	name := "perf/test-256-8-2-1"
	require.NoError(t, w.Put(context.Background(), name, p))

	obj, err := server.GetObject(fakeBucket, name)
	require.NoError(t, err)
	assert.Equal(t, p.Bytes(), obj.Content)
}
