package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	feature "github.com/tjfontaine/chat-assistant/internal/adapters/feature/static"
	permission "github.com/tjfontaine/chat-assistant/internal/adapters/permission/static"
	"github.com/tjfontaine/chat-assistant/internal/adapters/quota/window"
	"github.com/tjfontaine/chat-assistant/internal/auth"
	"github.com/tjfontaine/chat-assistant/internal/chat"
	"github.com/tjfontaine/chat-assistant/internal/config"
	"github.com/tjfontaine/chat-assistant/internal/core/ports"
	"github.com/tjfontaine/chat-assistant/internal/guard"
	"github.com/tjfontaine/chat-assistant/internal/model/mock"
	"github.com/tjfontaine/chat-assistant/internal/model/openai"
	"github.com/tjfontaine/chat-assistant/internal/server"
	"github.com/tjfontaine/chat-assistant/internal/storage/memory"
	"github.com/tjfontaine/chat-assistant/internal/storage/sqlite"
	"github.com/tjfontaine/chat-assistant/internal/telemetry"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("ASSISTANT_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	shutdown, err := telemetry.InitTracer("chat-assistant", logger)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Error("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	quotaLimits := make(map[string]window.Limit, len(cfg.Quotas))
	for action, q := range cfg.Quotas {
		quotaLimits[action] = window.Limit{Count: q.Count, Window: q.Window}
	}
	chain := guard.NewChain(
		feature.New(cfg.Features),
		permission.New(cfg.Permissions),
		window.New(quotaLimits),
	)

	registry := chat.NewRegistry(store, logger)
	service := chat.NewService(store, newModel(cfg, logger), chain, registry, logger)

	keys := make([]auth.Key, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keys = append(keys, auth.Key{KeyHash: k.KeyHash, Principal: k.Principal})
	}
	authenticator := auth.NewAuthenticator(keys)

	srv := server.New(cfg.Server.Port, logger, authenticator, server.NewHandlers(service, logger))
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newStore(cfg *config.Config) (ports.ChatStore, error) {
	if cfg.Storage.Type == "memory" {
		return memory.New(), nil
	}
	return sqlite.New(cfg.Storage.SQLite.Path)
}

func newModel(cfg *config.Config, logger *slog.Logger) ports.ModelInvoker {
	if cfg.Model.Type == "mock" {
		return mock.New()
	}
	return openai.New(openai.Config{
		APIKey:  cfg.Model.APIKey,
		Model:   cfg.Model.Name,
		BaseURL: cfg.Model.BaseURL,
	}, logger)
}
