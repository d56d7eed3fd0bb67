package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/adapters/blob"
	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
)

// BlobFactory creates backup stores based on configuration
type BlobFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBlobFactory creates a new blob factory
func NewBlobFactory(cfg *config.Config, logger *zap.Logger) *BlobFactory {
	return &BlobFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBlobStore creates the store selected by backup.type
func (f *BlobFactory) CreateBlobStore(ctx context.Context) (core.BlobStore, error) {
	backupCfg := f.cfg.GetBackup()

	switch backupCfg.Type {
	case "none", "":
		return nil, nil
	case "file":
		return blob.NewFileStore(backupCfg.Dir, f.logger)
	case "s3":
		s3Cfg := f.cfg.GetS3()
		return blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  s3Cfg.Endpoint,
			AccessKey: s3Cfg.AccessKey,
			SecretKey: s3Cfg.SecretKey,
			Bucket:    s3Cfg.Bucket,
			Prefix:    s3Cfg.Prefix,
			UseSSL:    s3Cfg.UseSSL,
		}, f.logger)
	default:
		return nil, fmt.Errorf("unsupported backup type: %s", backupCfg.Type)
	}
}
