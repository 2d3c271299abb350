package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"

	appconfig "github.com/nanobanana/nanobanana-api/internal/config"
)

// StorageService handles object storage for generated images
// (Tigris/S3-compatible).
type StorageService struct {
	client    *s3.Client
	bucket    string
	publicURL string
	enabled   bool
	logger    *slog.Logger
}

// NewStorageService creates a new storage service.
func NewStorageService(cfg *appconfig.Config, logger *slog.Logger) (*StorageService, error) {
	if !cfg.StorageEnabled {
		logger.Info("storage service disabled - no bucket configured")
		return &StorageService{
			enabled: false,
			logger:  logger,
		}, nil
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.StorageRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Custom endpoint for S3-compatible storage (Tigris, MinIO, etc.)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
		o.UsePathStyle = true
	})

	logger.Info("storage service initialized",
		"bucket", cfg.StorageBucket,
		"endpoint", cfg.StorageEndpoint,
	)

	return &StorageService{
		client:    client,
		bucket:    cfg.StorageBucket,
		publicURL: strings.TrimSuffix(cfg.StoragePublicURL, "/"),
		enabled:   true,
		logger:    logger,
	}, nil
}

// IsEnabled returns whether storage is configured and available.
func (s *StorageService) IsEnabled() bool {
	return s.enabled
}

// StoreImage decodes a data URL and writes it to the bucket under
// images/{user_id}/{id}.{ext}. Returns the object's public or
// presigned URL.
func (s *StorageService) StoreImage(ctx context.Context, userID, dataURL string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("storage is not enabled")
	}

	contentType, raw, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("images/%s/%s.%s", userID, ulid.Make().String(), extensionFor(contentType))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	s.logger.Info("stored generated image",
		"user_id", userID,
		"key", key,
		"size_bytes", len(raw),
	)

	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return s.PresignedURL(ctx, key, 0)
}

// PresignedURL returns a presigned GET URL for an object. The URL is
// valid for the given duration (default 1 hour).
func (s *StorageService) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("storage is not enabled")
	}

	if expiry == 0 {
		expiry = 1 * time.Hour
	}

	presignClient := s3.NewPresignClient(s.client)
	presignedReq, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedReq.URL, nil
}

// DeleteUserImages removes every stored image for a user. Returns the
// number of deleted objects.
func (s *StorageService) DeleteUserImages(ctx context.Context, userID string) (int, error) {
	if !s.enabled {
		return 0, nil
	}

	deleted := 0
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fmt.Sprintf("images/%s/", userID)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				s.logger.Warn("failed to delete object",
					"key", *obj.Key,
					"error", err,
				)
				continue
			}
			deleted++
		}
	}

	s.logger.Info("deleted user images",
		"user_id", userID,
		"deleted_count", deleted,
	)
	return deleted, nil
}

// decodeDataURL splits a data:{type};base64,{payload} URL into its
// content type and raw bytes.
func decodeDataURL(dataURL string) (string, []byte, error) {
	const prefix = "data:"
	if !strings.HasPrefix(dataURL, prefix) {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(dataURL[len(prefix):], ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return contentType, raw, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
