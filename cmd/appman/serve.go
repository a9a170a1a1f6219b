package main

import (
	"fmt"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/appman/internal/catalog/factory"
	"github.com/loykin/appman/internal/config"
	chsink "github.com/loykin/appman/internal/history/clickhouse"
	"github.com/loykin/appman/internal/logger"
	"github.com/loykin/appman/internal/metrics"
	"github.com/loykin/appman/internal/server"
	"github.com/loykin/appman/internal/state"
	"github.com/loykin/appman/internal/supervisor"
)

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	ConfigPath string
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the appman daemon",
		Long: `Start the appman daemon serving the catalog and lifecycle API.
Configuration is loaded from a TOML file; built-in defaults apply when
no file is given.

Examples:
  appman serve                      # Built-in defaults
  appman serve appman.toml          # Specific config file
  appman serve --config=appman.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServe(serveFlags, args)
		},
	}

	return cmd
}

func runServe(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
	}

	log := logger.NewServerLogger(slog.LevelInfo)
	slog.SetDefault(log)

	store, err := factory.NewFromDSN(cfg.CatalogDSN)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.EnsureSchema(context.Background()); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}

	var hints *state.Store
	if cfg.StatePath != "" {
		hints, err = state.New(cfg.StatePath)
		if err != nil {
			return fmt.Errorf("open state store: %w", err)
		}
	}

	opts := supervisor.Options{
		Runner:         cfg.Runner,
		StartupTimeout: cfg.StartupTimeout,
		StopWait:       cfg.StopWait,
		LogCapacity:    cfg.LogLines,
		Logger:         log,
	}
	if cfg.Log != nil {
		opts.WorkerLogs = logger.Config{
			Dir:        cfg.Log.Dir,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
	}
	sup := supervisor.New(opts)

	if cfg.History != nil && cfg.History.ClickHouseAddr != "" {
		sink, err := chsink.New(cfg.History.ClickHouseAddr, cfg.History.Table)
		if err != nil {
			log.Warn("history sink unavailable", "addr", cfg.History.ClickHouseAddr, "error", err)
		} else {
			defer func() { _ = sink.Close() }()
			if err := sink.EnsureSchema(context.Background()); err != nil {
				log.Warn("history schema", "error", err)
			}
			sup.SetHistorySinks(sink)
		}
	}

	if cfg.Metrics {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			log.Warn("metrics registration", "error", err)
		}
	}

	router := server.NewRouter(store, sup, hints, cfg.BasePath, cfg.Metrics)
	srv := server.NewServer(cfg.Listen, router)
	log.Info("daemon listening", "addr", cfg.Listen, "base_path", cfg.BasePath, "catalog", cfg.CatalogDSN)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	return srv.Close()
}
