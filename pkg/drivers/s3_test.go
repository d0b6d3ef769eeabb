package drivers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPut struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func s3Endpoint(t *testing.T, status int) (*httptest.Server, func() []recordedPut) {
	t.Helper()
	var (
		mu   sync.Mutex
		puts []recordedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: body})
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func testS3Driver(endpoint string, checksum bool) *s3Driver {
	return &s3Driver{
		awsCfg: aws.Config{
			Region:           "us-east-1",
			Credentials:      credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
			BaseEndpoint:     aws.String(endpoint),
			RetryMaxAttempts: 1,
		},
		bucket:    "bench",
		pathStyle: true,
		checksum:  checksum,
	}
}

func TestS3Put(t *testing.T) {
	srv, puts := s3Endpoint(t, http.StatusOK)
	d := testS3Driver(srv.URL, true)
	assert.True(t, d.Buffered())

	w, err := d.Connect(context.Background())
	require.NoError(t, err)
	defer w.Close()

	p := payload.New(64, 4)
	require.NoError(t, w.Put(context.Background(), "perf/test-64-4-1-0", p))

	got := puts()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/bench/perf/test-64-4-1-0", got[0].path)
	assert.Equal(t, p.CRC32CBase64(), got[0].header.Get("X-Amz-Checksum-Crc32c"))
	assert.Contains(t, string(got[0].body), string(p.Block()))
}

func TestS3PutError(t *testing.T) {
	srv, _ := s3Endpoint(t, http.StatusForbidden)
	w, err := testS3Driver(srv.URL, false).Connect(context.Background())
	require.NoError(t, err)
	assert.Error(t, w.Put(context.Background(), "obj", payload.New(8, 1)))
}
