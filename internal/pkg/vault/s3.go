package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"
)

// S3Config configures the production vault content store. EndpointURL is set
// for S3-compatible stores (Cloudflare R2, Backblaze B2); leave it empty for
// AWS itself.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	EndpointURL     string
}

// S3Storage is the object-store binding for verification artifacts. Requests
// are SigV4-signed by the SDK with the scoped credential.
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage builds the client and verifies the bucket is reachable.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// Path-style URLs for S3-compatible endpoints.
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	storage := &S3Storage{client: client, bucket: cfg.Bucket}
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("vault bucket %s not accessible: %w", cfg.Bucket, err)
	}

	log.Infof("[Vault] initialized artifact store for bucket: %s", cfg.Bucket)
	return storage, nil
}

func (s *S3Storage) PutObject(ctx context.Context, key string, payload []byte, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/octet-stream"),
		ContentLength: aws.Int64(int64(len(payload))),
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact to s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Storage) GetObject(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get artifact from s3://%s/%s: %w", s.bucket, key, err)
	}
	defer result.Body.Close()

	payload, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact body: %w", err)
	}
	return payload, nil
}

func (s *S3Storage) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
