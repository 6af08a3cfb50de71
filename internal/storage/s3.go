package storage

import (
	"alcyxob/fitness-dashboard/internal/config"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps each key as one small object in an S3-compatible bucket.
type S3Store struct {
	watchers
	client     *s3.Client
	bucketName string
	prefix     string
}

// NewS3Store creates a store against the configured bucket. A custom
// endpoint (MinIO, Spaces, ...) is used when set.
func NewS3Store(ctx context.Context, cfg config.S3Config, prefix string) (*S3Store, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		// Fallback to default AWS endpoint resolution
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsCfg.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, err
	}

	// Path-style addressing is required by most S3-compatible services, and
	// not all of them accept the default CRC checksums.
	client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	slog.Info("S3 settings store initialized", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)

	return &S3Store{client: client, bucketName: cfg.BucketName, prefix: prefix}, nil
}

func (s *S3Store) objectKey(key string) string {
	return strings.TrimSuffix(s.prefix, "/") + "/" + key + ".json"
}

func (s *S3Store) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", false, nil
		}
		return "", false, err
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, err
	}
	return string(body), true, nil
}

func (s *S3Store) Set(ctx context.Context, key, value string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader([]byte(value)),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return err
	}
	s.notify(key, value, true)
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return err
	}
	s.notify(key, "", false)
	return nil
}

func (s *S3Store) Subscribe(key string, fn func(string, bool)) func() {
	return s.subscribe(key, fn)
}

func (s *S3Store) Close() error { return nil }
