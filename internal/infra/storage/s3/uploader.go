package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"travelbooking/internal/app/policies"
)

// Uploader stores binary content in an S3-compatible bucket and returns its location.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (location string, err error)
}

// Client wraps a MinIO/S3 client. Buckets stay private; receipts are served by the API, not the bucket.
type Client struct {
	bucket         string
	baseURL        string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

type Options struct {
	Endpoint  string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Bucket    string
	BaseURL   string
}

func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	cleanEndpoint := strings.TrimSpace(opts.Endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = cleanEndpoint
	}
	return &Client{
		bucket:  bucket,
		baseURL: strings.TrimRight(base, "/"),
		client:  minioClient,
		logger:  logger,
	}, nil
}

func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.client.PutObject(ctx, c.bucket, key, reader, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	location := ObjectURL(c.baseURL, c.bucket, key)
	if c.logger != nil {
		c.logger.InfoContext(ctx, "s3 upload completed", "bucket", c.bucket, "key", key)
	}
	return location, nil
}

// Ping reports whether the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	return err
}

func (c *Client) ensureBucket(ctx context.Context) error {
	c.bucketInitOnce.Do(func() {
		exists, err := c.client.BucketExists(ctx, c.bucket)
		if err != nil {
			c.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			c.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return c.bucketInitErr
}

// NoopUploader fails fast when S3 is unavailable.
type NoopUploader struct{}

func (NoopUploader) Upload(_ context.Context, _ string, _ io.Reader, _ string) (string, error) {
	return "", errors.New("s3 uploader is not configured")
}

// ReceiptArchiver writes receipt documents under receipts/<booking>/<digest>.json.
// Identical documents map to the same key, so redelivered events overwrite rather than duplicate.
type ReceiptArchiver struct {
	Uploader Uploader
}

func (a ReceiptArchiver) Archive(ctx context.Context, bookingID string, document []byte) (string, error) {
	if a.Uploader == nil {
		return "", errors.New("s3: receipt uploader is not configured")
	}
	key, err := ReceiptKey(bookingID, document)
	if err != nil {
		return "", err
	}
	return a.Uploader.Upload(ctx, key, bytes.NewReader(document), "application/json")
}

func ReceiptKey(bookingID string, document []byte) (string, error) {
	bookingID = strings.Trim(strings.TrimSpace(bookingID), "/")
	if bookingID == "" || strings.Contains(bookingID, "/") {
		return "", fmt.Errorf("s3: invalid booking id %q", bookingID)
	}
	sum := sha256.Sum256(document)
	return "receipts/" + bookingID + "/" + hex.EncodeToString(sum[:8]) + ".json", nil
}

func ObjectURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, strings.TrimLeft(key, "/"))
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var (
	_ Uploader                 = (*Client)(nil)
	_ Uploader                 = NoopUploader{}
	_ policies.ReceiptArchiver = ReceiptArchiver{}
)
