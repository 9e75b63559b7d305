package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Service stores task attachment bytes in remote object storage.
type Service interface {
	Upload(ctx context.Context, bucket, key string, contentType string, body io.Reader) (string, error)
	PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

// ParseLocation splits an "s3://bucket/key" location into its parts.
func ParseLocation(location string) (bucket, key string, err error) {
	if !strings.HasPrefix(location, "s3://") {
		return "", "", fmt.Errorf("invalid s3 location")
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid s3 location")
	}
	return parts[0], parts[1], nil
}
