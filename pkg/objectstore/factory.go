package objectstore

import (
	"context"
	"fmt"
)

// Config selects and configures one of the three Gateway backends.
type Config struct {
	Backend string // "local", "s3", or "cdn"

	LocalDir  string
	LocalBase string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3AccessKey string
	S3SecretKey string

	SigningKey string
	CDNBaseURL string
}

// New builds the Gateway selected by cfg.Backend.
func New(ctx context.Context, cfg Config) (Gateway, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalBackend(cfg.LocalDir, cfg.LocalBase, cfg.SigningKey), nil
	case "s3":
		return NewS3Backend(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "cdn":
		origin, err := NewS3Backend(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return NewCDNBackend(origin, cfg.CDNBaseURL, cfg.SigningKey), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
