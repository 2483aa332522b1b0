package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/campushub/concierge/activeindex"
	"github.com/campushub/concierge/api"
	audithook "github.com/campushub/concierge/audit_hook"
	"github.com/campushub/concierge/campus"
	"github.com/campushub/concierge/chains"
	"github.com/campushub/concierge/config"
	"github.com/campushub/concierge/ext"
	"github.com/campushub/concierge/intent"
	"github.com/campushub/concierge/janitor"
	"github.com/campushub/concierge/middleware"
	"github.com/campushub/concierge/observability"
	"github.com/campushub/concierge/router"
	"github.com/campushub/concierge/store/memory"
	"github.com/campushub/concierge/store/mongo"
	"github.com/campushub/concierge/store/postgres"
	"github.com/campushub/concierge/store/sqlite"
	"github.com/campushub/concierge/workflow"
)

// migratingStore is implemented by backends that manage their own schema.
type migratingStore interface {
	workflow.Store
	Migrate(ctx context.Context) error
	Close() error
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting concierged",
		slog.String("version", version),
		slog.String("store", cfg.Store.Driver),
		slog.String("addr", cfg.Server.Addr),
	)

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	extRegistry := ext.NewRegistry(logger)
	extRegistry.Register(observability.NewMetricsExtension())
	if cfg.Audit.Enabled {
		extRegistry.Register(audithook.New(
			slogRecorder(logger),
			audithook.WithLogger(logger),
		))
	}

	engineOpts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithEmitter(extRegistry),
		workflow.WithExecuteTimeout(cfg.Engine.ExecuteTimeout),
		workflow.WithActiveIndex(newActiveIndex(cfg, logger)),
		workflow.WithMiddleware(
			middleware.Recover(logger),
			middleware.Logging(logger),
			middleware.Tracing(),
			middleware.Metrics(),
		),
	}

	eng := workflow.NewEngine(newRegistry(cfg, logger), store, engineOpts...)

	classifier := newClassifier(cfg.Intent)
	rt := router.New(eng, classifier,
		router.WithMinConfidence(cfg.Intent.MinConfidence),
		router.WithLogger(logger),
	)

	if cfg.Janitor.Enabled {
		jan := janitor.New(eng, store,
			janitor.WithAbandonAfter(cfg.Janitor.AbandonAfter),
			janitor.WithSchedule(cfg.Janitor.Schedule),
			janitor.WithLogger(logger),
		)
		if err := jan.Start(); err != nil {
			return fmt.Errorf("start janitor: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := jan.Stop(stopCtx); err != nil {
				logger.Warn("janitor stop", slog.String("error", err.Error()))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handlers := api.New(eng, api.WithRouter(rt), api.WithLogger(logger))
	handlers.RegisterRoutes(e.Group("/v1"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", slog.String("error", err.Error()))
	}
	extRegistry.EmitShutdown(shutdownCtx)
	return nil
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func openStore(ctx context.Context, cfg config.Store, logger *slog.Logger) (workflow.Store, func(), error) {
	var st migratingStore
	var err error

	switch cfg.Driver {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		st, err = postgres.New(ctx, cfg.PostgresURL, postgres.WithLogger(logger))
	case "sqlite":
		st, err = sqlite.New(cfg.SQLitePath, sqlite.WithLogger(logger))
	case "mongo":
		st, err = mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase, mongo.WithLogger(logger))
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return st, func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close", slog.String("error", err.Error()))
		}
	}, nil
}

// newRegistry wires every workflow chain against the campus gateway.
func newRegistry(cfg *config.Config, logger *slog.Logger) *workflow.Registry {
	base := cfg.Campus.BaseURL

	registry := workflow.NewRegistry()
	registry.MustRegister(chains.NewBookMentor(
		campus.NewMentorService(base),
		campus.NewNotifyService(base),
		chains.WithLogger(logger),
	))
	registry.MustRegister(chains.NewTrackSubmission(
		campus.NewSubmissionService(base),
		chains.WithLogger(logger),
	))
	registry.MustRegister(chains.NewDiscoverResources(
		campus.NewInventoryService(base),
		chains.WithLogger(logger),
	))
	registry.MustRegister(chains.NewApprovalStatus(
		campus.NewApprovalService(base),
		chains.WithLogger(logger),
	))
	return registry
}

func newActiveIndex(cfg *config.Config, logger *slog.Logger) workflow.ActiveIndex {
	if cfg.Redis.Addr == "" {
		return activeindex.NewMemory(cfg.Engine.ActiveIndexTTL)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("active index on redis", slog.String("addr", cfg.Redis.Addr))
	return activeindex.NewRedis(client, cfg.Engine.ActiveIndexTTL)
}

func newClassifier(cfg config.Intent) intent.Classifier {
	if cfg.URL == "" {
		return intent.NewKeyword()
	}
	return intent.NewHTTPClient(cfg.URL)
}

// slogRecorder writes audit events to the structured log.
func slogRecorder(logger *slog.Logger) audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, event *audithook.AuditEvent) error {
		logger.Info("audit",
			slog.String("action", event.Action),
			slog.String("resource_id", event.ResourceID),
			slog.String("outcome", event.Outcome),
			slog.Any("metadata", event.Metadata),
		)
		return nil
	})
}
