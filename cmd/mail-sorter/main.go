package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/adapters/scheduler"
	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
	"github.com/mikey/mail-sorter/internal/di"
	"github.com/mikey/mail-sorter/internal/factory"
	"github.com/mikey/mail-sorter/internal/metrics"
	"github.com/mikey/mail-sorter/internal/ports"
)

var configFile = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildContainer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(func(deps daemonDeps) error { return run(ctx, deps) }); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

type daemonDeps struct {
	dig.In

	Config      *config.Config
	Logger      *zap.Logger
	Service     *core.RuleService
	Scheduler   *scheduler.TickerScheduler
	Store       factory.KVStore
	Provider    core.MessageProvider
	Suggester   core.CategorySuggester
	EmailFilter ports.EmailFilter
}

// run is the main application function that gets all dependencies injected
func run(ctx context.Context, deps daemonDeps) error {
	logger := deps.Logger
	defer logger.Sync()

	var metricsServer *http.Server
	if metricsCfg := deps.Config.GetMetrics(); metricsCfg.Enabled {
		metrics.Init()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:              metricsCfg.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", zap.Error(err))
			}
		}()
		logger.Info("Metrics endpoint listening", zap.String("address", metricsCfg.ListenAddress))
	}

	deps.Scheduler.Register(core.SweepHandlerName, deps.Service.SweepHandler())
	if sweepCfg := deps.Config.GetSweep(); sweepCfg.Enabled {
		if deps.Provider == nil {
			logger.Warn("Sweep enabled but no mailbox provider configured")
		} else {
			interval, err := deps.Config.GetDuration("sweep.interval")
			if err != nil {
				return err
			}
			if _, err := deps.Service.EnsureSweepTrigger(ctx, interval); err != nil {
				return fmt.Errorf("failed to install sweep trigger: %w", err)
			}
		}
	}

	if deps.EmailFilter != nil {
		if err := deps.EmailFilter.Start(); err != nil {
			logger.Error("Failed to start filter", zap.Error(err))
			return err
		}
	}

	logger.Info("Mail sorter running")
	<-ctx.Done()
	logger.Info("Shutting down...")

	if deps.EmailFilter != nil {
		if err := deps.EmailFilter.Stop(); err != nil {
			logger.Error("Failed to stop filter", zap.Error(err))
		}
	}
	if err := deps.Service.RemoveSweepTrigger(context.Background()); err != nil {
		logger.Error("Failed to remove sweep trigger", zap.Error(err))
	}
	deps.Scheduler.Stop()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
	}

	// Close any resources that need closing
	for name, res := range map[string]interface{}{"provider": deps.Provider, "suggester": deps.Suggester} {
		if closer, ok := res.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close resource", zap.String("resource", name), zap.Error(err))
			}
		}
	}
	deps.Store.Stop()

	logger.Info("Shutdown complete")
	return nil
}
