package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spaguard/spaguard/internal/beacon"
	"github.com/spaguard/spaguard/internal/config"
	"github.com/spaguard/spaguard/internal/diagnostics"
	"github.com/spaguard/spaguard/internal/eventbus"
	"github.com/spaguard/spaguard/internal/fallback"
	"github.com/spaguard/spaguard/internal/htmlcache"
	"github.com/spaguard/spaguard/internal/httpserver"
	"github.com/spaguard/spaguard/internal/i18n"
	"github.com/spaguard/spaguard/internal/lazyretry"
	"github.com/spaguard/spaguard/internal/listeners"
	"github.com/spaguard/spaguard/internal/logger"
	"github.com/spaguard/spaguard/internal/options"
	"github.com/spaguard/spaguard/internal/orchestrator"
	"github.com/spaguard/spaguard/pkg/safego"
)

const (
	appName    = "spaguard"
	appVersion = "0.1.0"
)

func main() {
	root := &cobra.Command{
		Use:   appName,
		Short: "Server-side runtime for resilient single-page-app deploys",
	}
	root.AddCommand(newServeCmd(), newBuildCacheCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", appName, appVersion)
		},
	}
}

func newBuildCacheCmd() *cobra.Command {
	var indexPath, outPath, version, overridesPath string
	cmd := &cobra.Command{
		Use:   "build-cache",
		Short: "Precompute the compressed index document cache from a built index.html",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(indexPath)
			if err != nil {
				return fmt.Errorf("read index file: %w", err)
			}
			var translations i18n.Table
			if overridesPath != "" {
				translations, err = i18n.LoadTableFile(overridesPath)
				if err != nil {
					return fmt.Errorf("load i18n overrides: %w", err)
				}
			}
			cache, err := htmlcache.Build(htmlcache.BuildInput{
				HTML:         string(content),
				Translations: translations,
				Version:      version,
			})
			if err != nil {
				return fmt.Errorf("build cache: %w", err)
			}
			for _, lang := range cache.Languages() {
				fmt.Printf("built cache lang=%s etag=%s\n", lang, cache.ETag(lang))
			}
			_ = outPath // reserved: a future on-disk cache format would serialize here
			return nil
		},
	}
	cmd.Flags().StringVar(&indexPath, "index", "./dist/index.html", "path to the compiled index.html")
	cmd.Flags().StringVar(&outPath, "out", "", "optional path to persist the precomputed cache")
	cmd.Flags().StringVar(&version, "version", "", "deploy version, used as the ETag")
	cmd.Flags().StringVar(&overridesPath, "i18n-overrides", "", "optional path to a YAML i18n overrides table")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: "stdout",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	diagnostics.SetLogger(log)

	log.Info("starting spaguard",
		zap.String("name", appName),
		zap.String("version", appVersion),
	)

	opts := cfg.Retry.ToOptions()
	options.Init(opts)

	var i18nOverrides i18n.Table
	if cfg.I18n.OverridesPath != "" {
		i18nOverrides, err = i18n.LoadTableFile(cfg.I18n.OverridesPath)
		if err != nil {
			log.Warn("failed to load i18n overrides, using built-in strings only",
				zap.String("path", cfg.I18n.OverridesPath), zap.Error(err))
		}
	}

	bus := eventbus.Default()
	fb := fallback.New(opts.HTML, i18nOverrides)

	bootTime := time.Now()
	orch := orchestrator.New(opts, bus, orchestrator.NopNavigator{}, nil, fb, bootTime)

	ls, shutdownListeners := listeners.Install(bus, orch, opts)
	defer shutdownListeners()

	srv := httpserver.NewServer(
		httpserver.Config{Host: cfg.Server.Host, Port: cfg.Server.Port},
		log, orch, fb, ls, bus,
	)

	// A fresh deploy's compiled index.html can land on a slow or
	// eventually-consistent volume right as this process starts, so the
	// initial cache build gets the same bounded-delay retry treatment
	// as a lazily-imported chunk rather than a single best-effort read.
	cache, err := lazyretry.Retry(context.Background(), bus, nil, func(context.Context) (*htmlcache.Cache, error) {
		content, err := os.ReadFile(cfg.Cache.IndexPath)
		if err != nil {
			return nil, err
		}
		return htmlcache.Build(htmlcache.BuildInput{
			HTML:         string(content),
			Translations: i18nOverrides,
			Version:      cfg.Cache.Version,
		})
	}, lazyretry.Options{Delays: opts.LazyRetry.RetryDelays})
	if err != nil {
		log.Warn("index document not found after retrying, / will 503 until a cache is built",
			zap.String("path", cfg.Cache.IndexPath), zap.Error(err))
	} else {
		srv.SetCache(cache)
	}

	beaconClient := beacon.New(cfg.Beacon.Endpoint, cfg.Beacon.Timeout)
	unsubscribeBeacon := wireBeacon(bus, beaconClient, log)
	defer unsubscribeBeacon()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		return <-errCh
	case err := <-errCh:
		if err != nil {
			log.Error("server exited with error", zap.Error(err))
		}
		return err
	}
}

// wireBeacon forwards a handful of retry-lifecycle events to the
// configured beacon endpoint, best-effort. Each send runs on its own
// recovered goroutine so a slow or unreachable beacon endpoint never
// blocks the synchronous event bus dispatch other subscribers depend
// on (the orchestrator and the HTTP metrics counters among them).
func wireBeacon(bus *eventbus.Bus, client *beacon.Client, log *zap.Logger) func() {
	return bus.Subscribe(func(ev eventbus.Event) {
		payload := beacon.Payload{
			Event:           ev.Name(),
			TimestampMillis: time.Now().UnixMilli(),
		}
		switch e := ev.(type) {
		case eventbus.RetryAttempt:
			payload.Attempt = e.Attempt
			payload.RetryID = e.RetryID
		case eventbus.RetryExhausted:
			payload.Attempt = e.FinalAttempt
			payload.RetryID = e.RetryID
		}
		safego.Go(log, "beacon-send", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Send(ctx, payload); err != nil {
				log.Debug("beacon send failed", zap.Error(err))
			}
		})
	})
}
