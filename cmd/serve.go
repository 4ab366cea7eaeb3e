package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tripleminds/intentd/pkg/config"
	"github.com/tripleminds/intentd/pkg/intent"
	"github.com/tripleminds/intentd/pkg/ratelimit"
	"github.com/tripleminds/intentd/pkg/server"
	"github.com/tripleminds/intentd/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the intent engine over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runServe(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cfg *config.Config) error {
	source := intent.FileSource{
		ModelPath:   cfg.ModelPath,
		CatalogPath: cfg.CatalogPath,
	}

	registry := intent.NewRegistry()
	bundle, err := registry.Load(source)
	if err != nil {
		return fmt.Errorf("startup artifact load failed (run `intentd train` first): %w", err)
	}
	log.Printf("[Serve] loaded bundle v%d: %d intents, %d features",
		bundle.Version, len(bundle.Catalog.Intents()), bundle.Vectorizer.NumFeatures())

	policy := intent.Policy{
		Threshold:     cfg.ConfidenceThreshold,
		AcceptUnknown: cfg.ConfidenceAcceptUnknown,
	}
	engine := intent.NewEngine(registry, intent.NewBlocklistGate(cfg.Blocklist), policy)

	chatLog, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = chatLog.Close() }()

	limiter := buildLimiter(cfg)

	srv, err := server.New(cfg, engine, source, chatLog, limiter)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[Serve] received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreNone:
		return store.Noop{}, nil
	case config.StoreSQLite:
		s, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := store.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func buildLimiter(cfg *config.Config) ratelimit.Limiter {
	if !cfg.RateLimitEnabled {
		return ratelimit.Unlimited{}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return ratelimit.NewRedisLimiter(client, cfg.RateLimitPerMin, time.Minute)
}
