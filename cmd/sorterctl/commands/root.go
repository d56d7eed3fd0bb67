package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/cli"
	"github.com/mikey/mail-sorter/internal/core"
	"github.com/mikey/mail-sorter/internal/di"
	"github.com/mikey/mail-sorter/internal/factory"
	"github.com/mikey/mail-sorter/internal/ports"
)

var (
	// Global flags
	configFile string
	format     string
	scope      string
	verbose    bool
	jsonLog    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sorterctl",
	Short: "Manage mail sorting rules",
	Long: `sorterctl manages the sender, domain and keyword rules that decide which
category a message is filed under, and runs sweeps, discovery and
consolidation against the configured mailbox.

Examples:
  sorterctl rules add @example.com Work
  sorterctl rules list example
  sorterctl exclusions add boss@example.com
  sorterctl sweep --dry-run
  sorterctl consolidate --apply
  sorterctl export`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&scope, "scope", "", "Rule store scope (overrides store.scope)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Output logs in JSON format")
}

// env is what a command body works with
type env struct {
	ctx     context.Context
	service *core.RuleService
	filter  ports.EmailFilter
	printer *cli.Printer
	logger  *zap.Logger
}

type envDeps struct {
	dig.In

	Service     *core.RuleService
	EmailFilter ports.EmailFilter
	Logger      *zap.Logger
	Store       factory.KVStore
	Provider    core.MessageProvider
	Suggester   core.CategorySuggester
}

// withService builds the container and runs fn. withProvider connects the
// mailbox; commands that only touch stored rules leave it off.
func withService(cmd *cobra.Command, withProvider bool, fn func(e *env) error) error {
	outputFormat, err := cli.ParseFormat(format)
	if err != nil {
		return err
	}

	overrides := map[string]interface{}{}
	if scope != "" {
		overrides["store.scope"] = scope
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	container, err := di.BuildCLIContainer(ctx, di.CLIOptions{
		ConfigFile:   configFile,
		Verbose:      verbose,
		JSONLog:      jsonLog,
		WithProvider: withProvider,
		Overrides:    overrides,
	})
	if err != nil {
		return err
	}

	return container.Invoke(func(deps envDeps) error {
		defer deps.Logger.Sync()
		defer deps.Store.Stop()
		defer closeAll(deps.Logger, deps.Provider, deps.Suggester)

		return fn(&env{
			ctx:     ctx,
			service: deps.Service,
			filter:  deps.EmailFilter,
			printer: cli.NewPrinter(os.Stdout, outputFormat),
			logger:  deps.Logger,
		})
	})
}

func closeAll(logger *zap.Logger, resources ...interface{}) {
	for _, res := range resources {
		if closer, ok := res.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close resource", zap.Error(err))
			}
		}
	}
}
