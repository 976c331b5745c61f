package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kiwimarket/backend-go/internal/config"
	"github.com/kiwimarket/backend-go/internal/interfaces"
)

// MinioArchiver 把上传的原始文件归档到MinIO，实现interfaces.FileArchiver
type MinioArchiver struct {
	client *minio.Client
	bucket string
	logger interfaces.LoggerInterface

	mu           sync.Mutex
	bucketExists bool
}

// NewMinioArchiver 创建归档器，bucket在首次写入时检查并创建
func NewMinioArchiver(cfg config.StorageConfig, logger interfaces.LoggerInterface) (*MinioArchiver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "knowledge-uploads"
	}

	// minio.New 不需要协议前缀
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioArchiver{client: client, bucket: bucket, logger: logger}, nil
}

// Archive 写入对象
func (a *MinioArchiver) Archive(ctx context.Context, objectName string, body io.Reader, size int64, contentType string) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	info, err := a.client.PutObject(ctx, a.bucket, objectName, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", objectName, err)
	}

	a.logger.Debug("Upload archived", "bucket", a.bucket, "object", objectName, "size", info.Size)
	return nil
}

func (a *MinioArchiver) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bucketExists {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
		if err != nil {
			// 并发创建时可能已被其他实例创建
			resp := minio.ToErrorResponse(err)
			if resp.Code != "BucketAlreadyOwnedByYou" && resp.Code != "BucketAlreadyExists" {
				return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
			}
		}
		a.logger.Info("MinIO bucket created", "bucket", a.bucket)
	}

	a.bucketExists = true
	return nil
}
