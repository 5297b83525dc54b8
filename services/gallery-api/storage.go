package main

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/bitmark-inc/client-gallery/upload"
)

// newStorage builds the upload storage selected by storage.driver
func newStorage(cfg Config) (upload.Storage, error) {
	switch cfg.Storage.Driver {
	case StorageLocal:
		return upload.NewLocalStorage(cfg.Storage.Local.Dir, cfg.Server.UploadsRoute)
	case StorageS3:
		awsConfig := &aws.Config{
			Region:           aws.String(cfg.Storage.S3.Region),
			S3ForcePathStyle: aws.Bool(cfg.Storage.S3.ForcePathStyle),
		}
		if cfg.Storage.S3.Endpoint != "" {
			awsConfig.Endpoint = aws.String(cfg.Storage.S3.Endpoint)
		}

		awsSession, err := session.NewSession(awsConfig)
		if err != nil {
			return nil, fmt.Errorf("create aws session: %w", err)
		}

		return upload.NewS3Storage(awsSession, cfg.Storage.S3.Bucket, cfg.Storage.S3.PublicURL), nil
	case StorageCloudflare:
		return upload.NewCloudflareStorage(cfg.Cloudflare.AccountID, cfg.Cloudflare.AccountHash, cfg.Cloudflare.APIToken)
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
