package patient

import (
	"context"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3SeedConfig points at a JSON seed object in S3 or an S3-compatible store.
type S3SeedConfig struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool

	// Static keys for S3-compatible stores. When empty the default AWS
	// credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Seed reads a JSON object in the bulk import format.
type S3Seed struct {
	client objectGetter
	bucket string
	key    string
}

func NewS3Seed(ctx context.Context, cfg S3SeedConfig) (*S3Seed, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3 seed bucket and key required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Seed{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (s *S3Seed) Load(ctx context.Context) ([]*Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &s.key})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	records, err := ParseRecords(data)
	if err != nil {
		return nil, fmt.Errorf("seed object s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return records, nil
}
