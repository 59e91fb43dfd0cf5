package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/owenshapw/poemVerse/internal/config"
)

const s3Folder = "poemverse"

// ObjectAPI is the slice of the S3 client the bucket provider needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Bucket is the secondary provider: any S3-compatible bucket (Tencent COS in
// production).
type Bucket struct {
	api       ObjectAPI
	bucket    string
	publicURL string
	timeout   time.Duration
	available bool
}

// NewBucket builds the S3 client once. Missing credentials give an unavailable
// provider, not an error.
func NewBucket(ctx context.Context, cfg config.S3Config) (*Bucket, error) {
	b := &Bucket{
		bucket:    cfg.Bucket,
		publicURL: bucketPublicURL(cfg),
		timeout:   cfg.Timeout,
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return b, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	b.api = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	b.available = true
	return b, nil
}

// NewBucketWithAPI is used when the caller already owns an S3 client.
func NewBucketWithAPI(api ObjectAPI, cfg config.S3Config) *Bucket {
	return &Bucket{
		api:       api,
		bucket:    cfg.Bucket,
		publicURL: bucketPublicURL(cfg),
		timeout:   cfg.Timeout,
		available: api != nil && cfg.Bucket != "",
	}
}

func (b *Bucket) Name() string    { return "s3" }
func (b *Bucket) Available() bool { return b.available }

func (b *Bucket) Upload(ctx context.Context, obj Object) (string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	key := fmt.Sprintf("%s/%s", s3Folder, objectName(obj.ContentType))
	_, err := b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(obj.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return b.publicURL + "/" + key, nil
}

func (b *Bucket) Owns(url string) bool {
	return strings.HasPrefix(url, b.publicURL+"/")
}

func (b *Bucket) Delete(ctx context.Context, url string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	key := strings.TrimPrefix(url, b.publicURL+"/")
	_, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (b *Bucket) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func bucketPublicURL(cfg config.S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case strings.Contains(cfg.Endpoint, "myqcloud.com"):
		return fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}
