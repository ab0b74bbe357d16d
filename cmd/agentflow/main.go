package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soochol/agentflow/internal/agentflow/ports"
	"github.com/soochol/agentflow/internal/api"
	"github.com/soochol/agentflow/internal/auth"
	"github.com/soochol/agentflow/internal/config"
	"github.com/soochol/agentflow/internal/db"
	"github.com/soochol/agentflow/internal/events"
	"github.com/soochol/agentflow/internal/remote"
	"github.com/soochol/agentflow/internal/repository"
	"github.com/soochol/agentflow/internal/services"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		if err := serve(); err != nil {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println("agentflow v0.1.0")
	fmt.Println("Usage: agentflow serve")
}

func serve() error {
	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executor := services.NewConcurrencyLimiter(
		services.NewRetryExecutor(
			remote.NewClient(cfg.Execution.URL, &http.Client{Timeout: cfg.Execution.Timeout}),
			services.RetryPolicy{
				MaxRetries:   cfg.Execution.MaxRetries,
				InitialDelay: cfg.Execution.RetryDelay,
				MaxDelay:     10 * cfg.Execution.RetryDelay,
			},
		),
		cfg.Execution.MaxConcurrent,
	)
	docs, closeDocs, err := openDocumentStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDocs()

	spaces := services.NewWorkspaceManager(executor, docs)
	if cfg.NATS.URL != "" {
		nc, err := events.ConnectNATS(cfg.NATS.URL, cfg.NATS.MaxReconnects)
		if err != nil {
			return err
		}
		defer nc.Drain()
		fwd := events.NewNATSForwarder(nc, cfg.NATS.Subject)
		spaces.OnCreate(func(key string, ws *services.Workspace) { fwd.Attach(ws.Bus, key) })
		slog.Info("forwarding canvas events to nats", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	}

	srv := api.NewServer(spaces)
	srv.SetTokenVerifier(auth.NewTokenVerifier(cfg.Auth.JWTSecret))
	srv.SetRemote(remote.NewClient(cfg.RemoteURL(), nil))

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting agentflow server", "addr", httpSrv.Addr, "persistence", cfg.Persistence.Backend)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openDocumentStore builds the workflow store for the configured backend.
// The returned close func is always non-nil.
func openDocumentStore(ctx context.Context, cfg *config.Config) (ports.DocumentStore, func(), error) {
	noop := func() {}
	switch cfg.Persistence.Backend {
	case config.BackendRemote:
		return remote.NewClient(cfg.RemoteURL(), nil), noop, nil
	case config.BackendPostgres:
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, noop, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, noop, err
		}
		slog.Info("connected to database")
		return repository.NewPersistent(repository.NewMemory(), database), func() { database.Close() }, nil
	case config.BackendRedis:
		repo, err := repository.NewRedis(repository.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, noop, err
		}
		slog.Info("connected to redis", "addr", cfg.Redis.Addr)
		return repo, func() { repo.Close() }, nil
	default:
		return repository.NewMemory(), noop, nil
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		slog.Warn("unknown log level, using info", "level", level)
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
