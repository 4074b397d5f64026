package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/inventory/internal/blob"
	"github.com/JonMunkholm/inventory/internal/config"
	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/events"
	"github.com/JonMunkholm/inventory/internal/logging"
	"github.com/JonMunkholm/inventory/internal/lookup"
	"github.com/JonMunkholm/inventory/internal/store/boltstore"
	"github.com/JonMunkholm/inventory/internal/store/dynamostore"
	"github.com/JonMunkholm/inventory/internal/store/pgstore"
	"github.com/JonMunkholm/inventory/internal/urlcache"
	"github.com/JonMunkholm/inventory/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logFile := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, logging.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logFile.Close()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"cache", cfg.Cache.Driver,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"events_enabled", len(cfg.Events.Brokers) > 0,
	)

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		logFile.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, err := blob.Open(ctx, cfg.S3)
	if err != nil {
		return err
	}

	// Background jobs stop with jobCtx.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	cache, closeCache, err := openCache(jobCtx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	opts := core.Options{
		URLCache:             cache,
		URLExpiry:            cfg.S3.URLExpiry,
		CacheTTL:             cfg.Cache.TTL,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportWait:           cfg.Import.MaxWaitTime,
	}
	if len(cfg.Events.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Events)
		defer publisher.Close()
		opts.Events = publisher
		slog.Info("product events enabled", "topic", cfg.Events.Topic, "brokers", cfg.Events.Brokers)
	}

	service := core.NewService(store, blobs, opts)

	server := web.NewServer(cfg, service, web.Proxies{
		Barcodes: lookup.NewBarcodeClient(cfg.Lookup),
		Images:   lookup.NewImageFetcher(cfg.Lookup),
	})

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	<-stopped
	slog.Info("server stopped")
	return nil
}

// openStore connects the product store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case config.DriverPostgres:
		pool, err := pgstore.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}

		// Log which database we connected to
		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		}

		store := pgstore.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.DriverDynamo:
		client, err := dynamostore.NewClient(ctx, cfg.Dynamo, cfg.S3.Region)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using dynamodb store", "table", cfg.Dynamo.Table, "barcode_table", cfg.Dynamo.BarcodeTable)
		return dynamostore.New(client, cfg.Dynamo.Table, cfg.Dynamo.BarcodeTable), func() {}, nil

	default:
		store, err := boltstore.Open(cfg.Bolt.Path, cfg.Bolt.Timeout)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using bolt store", "path", cfg.Bolt.Path)
		return store, closeLogged("bolt store", store), nil
	}
}

// openCache builds the signed-URL cache selected by URL_CACHE_DRIVER. The
// memory sweeper runs until ctx ends.
func openCache(ctx context.Context, cfg config.CacheConfig) (core.URLCache, func(), error) {
	if strings.ToLower(cfg.Driver) == config.CacheRedis {
		cache, err := urlcache.OpenRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using redis url cache", "addr", cfg.RedisAddr)
		return cache, closeLogged("redis url cache", cache), nil
	}

	cache := urlcache.NewMemory()
	go cache.RunSweeper(ctx, cfg.SweepInterval)
	return cache, func() {}, nil
}

func closeLogged(name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("close failed", "resource", name, "error", err)
		}
	}
}
