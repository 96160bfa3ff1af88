package carvestore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures an object-storage carve destination.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Minio carves into an S3-compatible bucket instead of local disk, for
// labs that want carved files landing directly in an evidence bucket.
type Minio struct {
	client *minio.Client
	bucket string
	region string

	initOnce sync.Once
	initErr  error
}

// NewMinio constructs a Minio carve store from cfg.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("carvestore: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("carvestore: new minio client: %w", err)
	}
	return &Minio{client: client, bucket: bucket, region: region}, nil
}

func (s *Minio) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Write uploads relPath as a single object, header bytes followed by data
// bytes. mtime has no effect: object storage has no utime primitive; the
// upload timestamp is whatever the backend records at PutObject time.
func (s *Minio) Write(relPath string, header, data []byte, mtime time.Time) error {
	ctx := context.Background()
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("carvestore: ensure bucket: %w", err)
	}
	body := make([]byte, 0, len(header)+len(data))
	body = append(body, header...)
	body = append(body, data...)
	_, err := s.client.PutObject(ctx, s.bucket, relPath, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("carvestore: put %s: %w", relPath, err)
	}
	return nil
}
