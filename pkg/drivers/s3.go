package drivers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cloud-bulldozer/writeperf/pkg/config"
	log "github.com/cloud-bulldozer/writeperf/pkg/logging"
	"github.com/cloud-bulldozer/writeperf/pkg/payload"
)

const s3DriverName = "s3"

type s3Driver struct {
	awsCfg    aws.Config
	bucket    string
	pathStyle bool
	checksum  bool
}

type s3Writer struct {
	client *s3.Client
	bucket string
	cksum  bool
}

// newS3 loads the default AWS configuration chain (env, shared profile,
// instance role); --region and --endpoint override it.
func newS3(ctx context.Context, cfg config.Config) (Driver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return &s3Driver{
		awsCfg:    awsCfg,
		bucket:    cfg.Bucket,
		pathStyle: cfg.PathStyle,
		checksum:  cfg.Checksum,
	}, nil
}

func (d *s3Driver) Name() string { return s3DriverName }

func (d *s3Driver) Buffered() bool { return true }

// Connect builds a client per worker so workers never contend on one
// connection pool.
func (d *s3Driver) Connect(_ context.Context) (Writer, error) {
	client := s3.NewFromConfig(d.awsCfg, func(o *s3.Options) {
		o.UsePathStyle = d.pathStyle
	})
	log.Debugf("🔌 S3 client connected to bucket %s (region %q)", d.bucket, d.awsCfg.Region)
	return &s3Writer{client: client, bucket: d.bucket, cksum: d.checksum}, nil
}

// Put sends the whole object in one PutObject carrying the precomputed CRC32C.
func (w *s3Writer) Put(ctx context.Context, name string, p *payload.Payload) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(p.Bytes()),
		ContentLength: aws.Int64(p.Size()),
	}
	if w.cksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
		input.ChecksumCRC32C = aws.String(p.CRC32CBase64())
	}
	if _, err := w.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", w.bucket, name, err)
	}
	return nil
}

func (w *s3Writer) Close() error { return nil }
