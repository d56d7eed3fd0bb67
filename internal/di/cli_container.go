package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
	"github.com/mikey/mail-sorter/internal/factory"
	"github.com/mikey/mail-sorter/internal/logging"
	"github.com/mikey/mail-sorter/internal/ports"
)

// CLIOptions contains the global flags of the operator CLI
type CLIOptions struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool
	// WithProvider connects the mailbox provider; commands that only touch
	// the rule store leave it off
	WithProvider bool
	// Overrides are applied on top of the loaded configuration
	Overrides map[string]interface{}
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(ctx context.Context, opts CLIOptions) (*dig.Container, error) {
	container := dig.New()

	// Register logger
	if err := container.Provide(func() (*zap.Logger, error) {
		return logging.InitConsoleLogger(opts.Verbose, opts.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		cfg.Set("server.filter_type", "cli")
		cfg.Set("cli.verbose", opts.Verbose)
		for key, value := range opts.Overrides {
			cfg.Set(key, value)
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// The CLI never owns triggers
	if err := container.Provide(func() core.Scheduler { return nil }); err != nil {
		return nil, err
	}

	if err := provideCore(container, ctx, opts.WithProvider); err != nil {
		return nil, err
	}

	// Register classifier front-end
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
