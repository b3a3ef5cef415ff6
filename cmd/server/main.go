package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/pollregistry/config"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/cache"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/events/kafka"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/handler/graph"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/handler/http"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
	"github.com/vncsmyrnk/pollregistry/internal/core/services"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up registry store", "store", cfg.Server.Store, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		repo = cache.NewCachedRegistry(repo, client, cfg.Redis.TTL, logger)
	}

	var publisher ports.EventPublisher = kafka.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	defer publisher.Close()

	registry := services.NewRegistryService(repo,
		services.WithPublisher(publisher),
		services.WithLogger(logger),
	)

	var auth ports.AuthService
	if cfg.Auth.Secret != "" {
		auth = services.NewAuthService(cfg.Auth.Secret)
	} else {
		slog.Warn("JWT_SECRET is not set, every request is anonymous")
	}

	routerCfg := http.RouterConfig{
		Auth:           auth,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		GraphQLPath:    cfg.GraphQL.Path,
	}
	if cfg.GraphQL.Enabled {
		routerCfg.GraphQL = graph.NewHandler(registry)
	}

	handler := http.NewHandler(
		http.NewPollHandler(registry),
		http.NewVoteHandler(registry),
		http.NewEventHandler(registry),
		http.NewAuthHandler(cfg.Server.CookieDomain, stdhttp.SameSiteLaxMode),
		routerCfg,
	)
	server := &stdhttp.Server{Addr: cfg.Server.Addr, Handler: handler}

	go func() {
		slog.Info("poll registry listening", "addr", cfg.Server.Addr, "store", cfg.Server.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

func newRepository(ctx context.Context, cfg *config.Config) (ports.RegistryRepository, func(), error) {
	if cfg.Server.Store == config.StoreMemory {
		return memory.NewRegistryRepository(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := postgres.ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewRegistryRepository(db), func() { db.Close() }, nil
}
