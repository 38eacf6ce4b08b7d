package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/artgallerycloud/server/internal/config"
)

// S3Store keeps images in an S3 bucket, optionally fronted by a CDN.
type S3Store struct {
	client          *s3.Client
	uploader        *manager.Uploader
	presigner       *s3.PresignClient
	bucket          string
	region          string
	cdnDomain       string
	usePublicACL    bool
	presignDuration time.Duration
}

// NewS3Store creates an S3-backed store. Static credentials from the config
// take precedence; otherwise the default AWS credential chain applies.
func NewS3Store(cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:          client,
		uploader:        manager.NewUploader(client),
		presigner:       s3.NewPresignClient(client),
		bucket:          cfg.S3Bucket,
		region:          cfg.S3Region,
		cdnDomain:       cfg.CDNDomain,
		usePublicACL:    cfg.UsePublicACL,
		presignDuration: cfg.PresignDuration,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, contentType, folder, nameHint string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("%s/%s-%s.%s", folder, nameHint, uuid.New().String(), extFromContentType(contentType))

	input := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	}
	if s.usePublicACL {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}
	return key, nil
}

func (s *S3Store) PublicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	host := "s3.amazonaws.com"
	if s.region != "us-east-1" {
		host = fmt.Sprintf("s3.%s.amazonaws.com", s.region)
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, host, key)
}

// SignedURL returns a time-limited GET URL for a key, for buckets without
// public-read objects.
func (s *S3Store) SignedURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignDuration))
	if err != nil {
		return "", fmt.Errorf("failed to presign s3 url: %w", err)
	}
	return req.URL, nil
}

// Compile-time check that S3Store implements the Store interface
var _ Store = (*S3Store)(nil)
