package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"mp4tomp3/config"
	"mp4tomp3/logger"
)

// Archive uploads converted MP3 files to a MinIO bucket and hands out
// presigned download URLs. It is optional; a nil *Archive disables archiving.
type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive connects to MinIO and ensures the bucket exists.
func NewArchive(cfg *config.Config) (*Archive, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &Archive{client: client, bucket: cfg.MinioBucket}, nil
}

// Store uploads localPath under converted/<jobID>/<basename> and returns a
// presigned GET URL valid for the given duration.
func (a *Archive) Store(ctx context.Context, jobID, localPath string, expiry time.Duration) (string, error) {
	objectName := fmt.Sprintf("converted/%s/%s", jobID, filepath.Base(localPath))

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	if _, err := a.client.PutObject(ctx, a.bucket, objectName, file, info.Size(), minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	}); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	params := url.Values{}
	params.Set("response-content-disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(localPath)))
	presigned, err := a.client.PresignedGetObject(ctx, a.bucket, objectName, expiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}

	logger.Info("archived conversion output",
		logger.String("jobId", jobID), logger.String("object", objectName))
	return presigned.String(), nil
}
