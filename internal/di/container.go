package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/adapters/scheduler"
	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
	"github.com/mikey/mail-sorter/internal/factory"
	"github.com/mikey/mail-sorter/internal/logging"
	"github.com/mikey/mail-sorter/internal/ports"
	"github.com/mikey/mail-sorter/internal/utils"
)

// BuildContainer creates and configures the daemon's dependency injection container
func BuildContainer(ctx context.Context, cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register in-process scheduler
	if err := container.Provide(func(logger *zap.Logger) *scheduler.TickerScheduler {
		return scheduler.NewTickerScheduler(ctx, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *scheduler.TickerScheduler) core.Scheduler {
		return s
	}); err != nil {
		return nil, err
	}

	if err := provideCore(container, ctx, true); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCore registers the factories, adapters and rule service shared by
// the daemon and the CLI. Without withProvider no mailbox is connected.
func provideCore(container *dig.Container, ctx context.Context, withProvider bool) error {
	// Register factories
	constructors := []interface{}{
		utils.NewTextProcessor,
		factory.NewStoreFactory,
		factory.NewProviderFactory,
		factory.NewBlobFactory,
		factory.NewLLMFactory,
		factory.NewFilterFactory,
		factory.ServiceConfig,
	}
	for _, c := range constructors {
		if err := container.Provide(c); err != nil {
			return err
		}
	}

	// Register durable store
	if err := container.Provide(func(f *factory.StoreFactory) (factory.KVStore, error) {
		return f.CreateKVStore(ctx)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(kv factory.KVStore, logger *zap.Logger) *core.RuleStore {
		return core.NewRuleStore(kv, logger)
	}); err != nil {
		return err
	}

	// Register mailbox provider
	if err := container.Provide(func(f *factory.ProviderFactory) (core.MessageProvider, error) {
		if !withProvider {
			return nil, nil
		}
		return f.CreateProvider(ctx)
	}); err != nil {
		return err
	}

	// Register backup store
	if err := container.Provide(func(f *factory.BlobFactory) (core.BlobStore, error) {
		return f.CreateBlobStore(ctx)
	}); err != nil {
		return err
	}

	// Register category suggester
	if err := container.Provide(func(f *factory.LLMFactory) (core.CategorySuggester, error) {
		return f.CreateSuggester(ctx)
	}); err != nil {
		return err
	}

	// Register rule service
	return container.Provide(core.NewRuleService)
}
