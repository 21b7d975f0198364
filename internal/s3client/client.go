// Package s3client is a thin S3 wrapper used to publish a built site to a
// bucket and to serve it back. Tests run it against gofakes3.
package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectNotFound is returned when a requested object does not exist.
var ErrObjectNotFound = errors.New("s3client: object not found")

// Client wraps an S3 client bound to one bucket.
type Client struct {
	s3Client   *s3.Client
	bucketName string
}

// Config holds the configuration for creating an S3 client.
type Config struct {
	// Endpoint is the S3 endpoint URL. Leave empty to use AWS S3.
	Endpoint string
	// Region is the AWS region ("auto" for most S3-compatible stores).
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	// UsePathStyle enables path-style addressing (gofakes3, MinIO).
	UsePathStyle bool
}

// ObjectInfo describes a stored object without its body.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// New creates a new S3 client with the given configuration.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewFromS3Client(s3Client, cfg.BucketName), nil
}

// NewFromS3Client creates a Client from an existing S3 client.
func NewFromS3Client(s3Client *s3.Client, bucketName string) *Client {
	return &Client{s3Client: s3Client, bucketName: bucketName}
}

// PutObject stores content under key with the given content type.
func (c *Client) PutObject(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3client: failed to put object %q: %w", key, err)
	}
	return nil
}

// GetObject retrieves the content stored under key.
// Returns ErrObjectNotFound if the key does not exist.
func (c *Client) GetObject(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("s3client: failed to get object %q: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("s3client: failed to read object body %q: %w", key, err)
	}
	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		LastModified: aws.ToTime(result.LastModified),
		ContentType:  aws.ToString(result.ContentType),
	}
	return data, info, nil
}

// ListObjects returns every object under prefix, following continuation tokens.
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3client: failed to list %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

// DeleteObject removes the object at key.
// Returns nil if the object was deleted or did not exist.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3client: failed to delete object %q: %w", key, err)
	}
	return nil
}

// BucketName returns the configured bucket name.
func (c *Client) BucketName() string {
	return c.bucketName
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
