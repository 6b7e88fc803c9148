// ABOUTME: S3-backed object storage for published agent bundles.
// ABOUTME: Uploads bundle archives and issues presigned download URLs.

package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// DefaultPresignTTL bounds presigned URL lifetime when no TTL is configured.
const DefaultPresignTTL = time.Hour

// bundleContentType is the MIME type recorded for uploaded bundle archives.
const bundleContentType = "application/gzip"

// Config configures the bundle uploader.
type Config struct {
	Bucket          string
	Region          string // default: us-east-1
	Prefix          string // optional key prefix, e.g. "prod"
	AccessKeyID     string // optional: uses the default credential chain if empty
	SecretAccessKey string
	SessionToken    string
	Endpoint        string        // optional custom endpoint for S3-compatible storage
	PresignTTL      time.Duration // default: DefaultPresignTTL
}

// s3API is the subset of the S3 client the uploader needs.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// presignAPI is the subset of the S3 presign client the uploader needs.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Uploader publishes agent bundle archives to S3.
type Uploader struct {
	client     s3API
	presigner  presignAPI
	bucket     string
	prefix     string
	presignTTL time.Duration
	logger     *slog.Logger
}

// NewUploader creates an uploader against AWS S3 or an S3-compatible
// endpoint. Explicit credentials take precedence over the default chain.
func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // required for most S3-compatible storage
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}

	return &Uploader{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		presignTTL: ttl,
		logger:     slog.Default().With("component", "storage"),
	}, nil
}

// BundleKey builds the object key for a new bundle of the given agent.
// Keys are namespaced per agent and carry a random UUID so successive
// publishes never collide.
func (u *Uploader) BundleKey(agentKey string) string {
	name := fmt.Sprintf("%s.tar.gz", uuid.New())
	if u.prefix == "" {
		return path.Join("agents", agentKey, "bundles", name)
	}
	return path.Join(u.prefix, "agents", agentKey, "bundles", name)
}

// UploadBundle uploads the bundle archive at archivePath under a fresh
// bundle key and returns the key.
func (u *Uploader) UploadBundle(ctx context.Context, agentKey, archivePath string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening bundle archive: %w", err)
	}
	defer f.Close()

	key := u.BundleKey(agentKey)
	if err := u.Upload(ctx, key, f); err != nil {
		return "", err
	}

	u.logger.Info("bundle published", "agent", agentKey, "key", key)
	return key, nil
}

// Upload puts an object under the given key.
func (u *Uploader) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(bundleContentType),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// PresignURL issues a time-limited download URL for an uploaded object.
func (u *Uploader) PresignURL(ctx context.Context, key string) (string, error) {
	req, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return req.URL, nil
}

// BucketExists checks whether the configured bucket is reachable.
func (u *Uploader) BucketExists(ctx context.Context) (bool, error) {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, fmt.Errorf("checking bucket: %w", err)
	}
	return true, nil
}
