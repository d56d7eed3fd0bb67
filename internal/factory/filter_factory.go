package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/adapters/filter"
	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
	"github.com/mikey/mail-sorter/internal/ports"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.RuleService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.RuleService) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailFilter creates an email filter based on the configuration. The
// type "none" yields a nil filter.
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.FilterType {
	case "none", "":
		return nil, nil
	case "postfix":
		return filter.NewPostfixFilter(
			f.service,
			f.logger,
			serverCfg.ListenAddress,
			filter.HeaderNames{
				Category:  serverCfg.CategoryHeader,
				Rule:      serverCfg.RuleHeader,
				Suggested: serverCfg.SuggestedHeader,
			},
			serverCfg.PostfixAddress,
			serverCfg.PostfixPort,
			serverCfg.PostfixEnabled,
		), nil
	case "cli":
		return filter.NewCliFilter(
			f.service,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", serverCfg.FilterType)
	}
}
