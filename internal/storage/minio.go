package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mldash/backend/internal/logger"
)

// ObjectStore keeps dataset artifacts in a MinIO bucket, one prefix per
// dataset id.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// Config holds MinIO connection configuration.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ConfigFromEnv reads the MinIO configuration from the environment. The
// returned config is zero-valued when MINIO_ENDPOINT is unset, which means
// artifact storage is disabled.
func ConfigFromEnv() Config {
	return Config{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    bucketOrDefault(os.Getenv("MINIO_BUCKET")),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}
}

func bucketOrDefault(bucket string) string {
	if bucket == "" {
		return "datasets"
	}
	return bucket
}

// NewObjectStore creates the object store and makes sure the bucket exists.
func NewObjectStore(ctx context.Context, config Config) (*ObjectStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	store := &ObjectStore{client: client, bucket: config.Bucket}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("Object store initialized", map[string]interface{}{
		"endpoint": config.Endpoint,
		"bucket":   config.Bucket,
	})

	return store, nil
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// UploadDatasetFile stores one artifact under the dataset's prefix and
// returns the object path.
func (s *ObjectStore) UploadDatasetFile(ctx context.Context, datasetID, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	objectPath := path.Join(datasetID, filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectPath, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}

	return objectPath, nil
}

// DownloadDatasetFile opens an artifact for reading. The caller closes the
// returned reader.
func (s *ObjectStore) DownloadDatasetFile(ctx context.Context, objectPath string) (io.ReadCloser, int64, string, error) {
	object, err := s.client.GetObject(ctx, s.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to open %s: %w", objectPath, err)
	}

	stat, err := object.Stat()
	if err != nil {
		object.Close()
		return nil, 0, "", fmt.Errorf("failed to stat %s: %w", objectPath, err)
	}

	return object, stat.Size, stat.ContentType, nil
}

// RemoveDatasetFiles deletes every artifact stored under the dataset's
// prefix.
func (s *ObjectStore) RemoveDatasetFiles(ctx context.Context, datasetID string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    datasetID + "/",
		Recursive: true,
	})

	for object := range objects {
		if object.Err != nil {
			return fmt.Errorf("failed to list artifacts for dataset %s: %w", datasetID, object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", object.Key, err)
		}
	}

	return nil
}
