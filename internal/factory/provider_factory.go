package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/adapters/gmail"
	"github.com/mikey/mail-sorter/internal/adapters/imap"
	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
)

// ProviderFactory creates mailbox providers based on configuration
type ProviderFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config, logger *zap.Logger) *ProviderFactory {
	return &ProviderFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateProvider creates the provider selected by provider.type. The type
// "none" yields a nil provider.
func (f *ProviderFactory) CreateProvider(ctx context.Context) (core.MessageProvider, error) {
	switch providerType := f.cfg.GetProvider().Type; providerType {
	case "none", "":
		return nil, nil
	case "gmail":
		svc, err := gmail.NewService(ctx, f.cfg.GetGmail().ConfigDir)
		if err != nil {
			return nil, err
		}
		return gmail.NewProvider(svc, f.logger), nil
	case "imap":
		imapCfg := f.cfg.GetIMAP()
		if imapCfg.Address == "" {
			return nil, fmt.Errorf("imap.address is required")
		}
		return imap.NewProvider(imap.Config{
			Address:  imapCfg.Address,
			Username: imapCfg.Username,
			Password: imapCfg.Password,
			Inbox:    imapCfg.Inbox,
			Insecure: imapCfg.Insecure,
		}, f.logger)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
