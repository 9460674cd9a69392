package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/config"
	dbRedis "github.com/kailas-cloud/docchat/internal/db/redis"
	"github.com/kailas-cloud/docchat/internal/domain/dialog"
	domsearch "github.com/kailas-cloud/docchat/internal/domain/search"
	logpkg "github.com/kailas-cloud/docchat/internal/logger"
	"github.com/kailas-cloud/docchat/internal/metrics"
	sessionrepo "github.com/kailas-cloud/docchat/internal/repository/session"
	"github.com/kailas-cloud/docchat/internal/transport/assistant"
	chiTransport "github.com/kailas-cloud/docchat/internal/transport/chi"
	"github.com/kailas-cloud/docchat/internal/transport/discovery"
	"github.com/kailas-cloud/docchat/internal/transport/upstream"
	chatuc "github.com/kailas-cloud/docchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/docchat/internal/usecase/health"
	messageuc "github.com/kailas-cloud/docchat/internal/usecase/message"
	searchuc "github.com/kailas-cloud/docchat/internal/usecase/search"
	"github.com/kailas-cloud/docchat/internal/version"
)

// sessionStore is what the chat and health services need from a session repository.
type sessionStore interface {
	chatuc.Repository
	healthuc.Pinger
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docchat API server",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("session_driver", cfg.Session.Driver),
		zap.String("workspace_id", cfg.Assistant.WorkspaceID),
		zap.String("environment_id", cfg.Discovery.EnvironmentID),
		zap.String("collection_id", cfg.Discovery.CollectionID),
	)

	metrics.Register()

	ctx := context.Background()

	sessions, closeSessions := buildSessionStore(ctx, cfg, logger)
	defer closeSessions()

	timeout := time.Duration(cfg.Upstream.TimeoutSec) * time.Second
	assistantClient, err := assistant.New(upstream.Config{
		BaseURL:  cfg.Assistant.BaseURL,
		APIKey:   cfg.Assistant.APIKey,
		Version:  cfg.Assistant.Version,
		RetryMax: cfg.Upstream.RetryMax,
		Timeout:  timeout,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Failed to create dialog service client", zap.Error(err))
	}
	discoveryClient, err := discovery.New(discovery.Config{
		Config: upstream.Config{
			BaseURL:  cfg.Discovery.BaseURL,
			APIKey:   cfg.Discovery.APIKey,
			Version:  cfg.Discovery.Version,
			RetryMax: cfg.Upstream.RetryMax,
			Timeout:  timeout,
			Logger:   logger,
		},
		RatePerSec: cfg.Discovery.RatePerSec,
	})
	if err != nil {
		logger.Fatal("Failed to create search service client", zap.Error(err))
	}

	// Credentials sanity check, as the dialog workspace must be reachable before serving.
	if err := assistantClient.HealthCheck(ctx); err != nil {
		logger.Fatal("Dialog service not reachable", zap.Error(err))
	}
	logger.Info("Connected to dialog service")

	identity := domsearch.Identity{
		EnvironmentID: cfg.Discovery.EnvironmentID,
		CollectionID:  cfg.Discovery.CollectionID,
	}
	messages := dialog.NewMessageBuilder(cfg.Assistant.WorkspaceID)

	searchSvc := searchuc.New(domsearch.NewBuilder(identity, cfg.Search.PageSize), discoveryClient, logger)
	chatSearchSvc := searchuc.New(domsearch.NewBuilder(identity, cfg.Chat.SearchPageSize), discoveryClient, logger)
	messageSvc := messageuc.New(messages, assistantClient, logger)
	chatSvc := chatuc.New(sessions, messages, assistantClient, chatSearchSvc, chatuc.Config{
		Welcome:      cfg.Chat.Welcome,
		SearchHeader: cfg.Chat.SearchHeader,
	}, logger)
	healthSvc := healthuc.New(logger,
		healthuc.Check{Name: "sessions", Checker: healthuc.PingChecker(sessions), Critical: true},
		healthuc.Check{Name: "assistant", Checker: assistantClient},
		healthuc.Check{Name: "discovery", Checker: healthuc.CheckerFunc(func(ctx context.Context) error {
			return discoveryClient.HealthCheck(ctx, cfg.Discovery.EnvironmentID)
		})},
	)

	server := chiTransport.NewServer(searchSvc, messageSvc, chatSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.Recoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(chiTransport.CORS(cfg.HTTP.AllowedOrigins))
	r.Use(chiTransport.APIKeyMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildSessionStore picks the session repository for the configured driver.
func buildSessionStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (sessionStore, func()) {
	ttl := time.Duration(cfg.Session.TTLSec) * time.Second

	switch cfg.Session.Driver {
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Session.Addrs,
			Username: cfg.Session.Username,
			Password: cfg.Session.Password,
			DB:       cfg.Session.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create session store", zap.Error(err))
		}
		readiness := time.Duration(cfg.Session.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			logger.Fatal("Session store not ready", zap.Error(err))
		}
		logger.Info("Connected to session store", zap.Strings("addrs", cfg.Session.Addrs))
		return sessionrepo.New(store, cfg.Session.KeyPrefix, ttl), store.Close
	default:
		logger.Info("Using in-memory session store")
		return sessionrepo.NewMemory(ttl), func() {}
	}
}
