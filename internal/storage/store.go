package storage

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"txanomaly/internal/config"
)

// Store reads and writes objects in one bucket
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Close() error
}

// OpenStore connects to the bucket named by uri
func OpenStore(ctx context.Context, uri URI, cfg config.StorageConfig) (Store, error) {
	switch uri.Scheme {
	case SchemeGCS:
		return newGCSStore(ctx, uri.Bucket, cfg.CredentialsFile)
	case SchemeS3:
		return newS3Store(ctx, uri.Bucket, cfg.S3Region, cfg.S3Endpoint)
	default:
		return nil, fmt.Errorf("unsupported storage scheme %q", uri.Scheme)
	}
}

// gcsStore is a Store backed by Google Cloud Storage
type gcsStore struct {
	client *gcs.Client
	bucket string
}

func newGCSStore(ctx context.Context, bucket, credentialsFile string) (*gcsStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsStore{client: client, bucket: bucket}, nil
}

func (s *gcsStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *gcsStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, key, err)
	}
	return rc, nil
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}

// s3Store is a Store backed by Amazon S3 or a compatible endpoint
type s3Store struct {
	client *s3.Client
	bucket string
}

func newS3Store(ctx context.Context, bucket, region, endpoint string) (*s3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Store{client: client, bucket: bucket}, nil
}

func (s *s3Store) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *s3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

func (s *s3Store) Close() error { return nil }
