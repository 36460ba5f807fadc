package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-admin-agent/internal/agent"
	"github.com/noah-isme/campus-admin-agent/internal/config"
	"github.com/noah-isme/campus-admin-agent/internal/database"
	"github.com/noah-isme/campus-admin-agent/internal/repository"
	"github.com/noah-isme/campus-admin-agent/internal/service"
	"github.com/noah-isme/campus-admin-agent/internal/tools"
	"github.com/noah-isme/campus-admin-agent/pkg/ai"
)

// App holds the wired dependencies shared by the CLI and the API server.
type App struct {
	Config   config.Config
	Logger   zerolog.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	NATS     *nats.Conn
	Store    repository.Store
	Services tools.Services
	Activity service.ActivityService
	Registry *tools.Registry
	Runner   *agent.Runner
}

// NewLogger builds the process logger at the configured level.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(parsed).With().Timestamp().Logger()
}

// Build connects storage, optional Redis and NATS, and wires services, tools
// and the agent runner. Redis and NATS failures are logged and skipped.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	application := &App{Config: cfg, Logger: logger, DB: db}

	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without it")
		} else {
			application.Redis = client
		}
	}

	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, continuing without it")
		} else {
			application.NATS = conn
		}
	}

	model, err := ai.NewChatModel(ai.ProviderConfig{
		Provider:  cfg.AIProvider,
		APIKey:    cfg.AIAPIKey,
		Model:     cfg.AIModel,
		BaseURL:   cfg.AIBaseURL,
		MaxTokens: cfg.AIMaxTokens,
		Logger:    logger,
	})
	if err != nil {
		application.Close()
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	knowledge, err := buildKnowledge(cfg, logger)
	if err != nil {
		application.Close()
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	if err := application.wire(model, knowledge); err != nil {
		application.Close()
		return nil, err
	}
	return application, nil
}

// buildKnowledge loads the retrieval knowledge file when one is configured.
// Passages are embedded with the chat provider's key, or with the OpenAI key
// when the chat provider has no embeddings endpoint.
func buildKnowledge(cfg config.Config, logger zerolog.Logger) (service.KnowledgeService, error) {
	if cfg.KnowledgeFile == "" {
		return nil, nil
	}

	embedCfg := ai.ProviderConfig{Provider: cfg.AIProvider, APIKey: cfg.AIAPIKey, Model: cfg.EmbeddingModel, BaseURL: cfg.AIBaseURL}
	if cfg.AIProvider == ai.ProviderAnthropic && cfg.OpenAIAPIKey != "" {
		embedCfg = ai.ProviderConfig{Provider: ai.ProviderOpenAI, APIKey: cfg.OpenAIAPIKey, Model: cfg.EmbeddingModel}
	}
	embedder, err := ai.NewEmbedder(embedCfg)
	if err != nil {
		return nil, err
	}

	var ranker service.Embedder
	if embedder != nil {
		ranker = embedder
	}
	return service.NewKnowledgeService(cfg.KnowledgeFile, ranker, logger)
}

func (a *App) wire(model ai.ChatModel, knowledge service.KnowledgeService) error {
	a.Store = repository.NewStore(a.DB)
	validate := service.NewValidator()
	a.Activity = service.NewActivityService(a.Store, a.Logger)

	var publisher service.ActivityPublisher
	if a.Redis != nil || a.NATS != nil {
		publisher = service.NewActivityPublisher(a.Redis, a.NATS, a.Config.EventChannel, a.Logger)
	}

	a.Services = tools.Services{
		Students:      service.NewStudentService(a.Store, validate, a.Activity, publisher, a.Logger),
		Analytics:     service.NewAnalyticsService(a.Store, a.Logger),
		FAQ:           service.NewFAQService(),
		Knowledge:     knowledge,
		Notifications: service.NewNotificationService(a.Store, validate, a.Activity, publisher, a.Logger),
	}

	registry, err := tools.NewCampusRegistry(a.Services, a.Logger)
	if err != nil {
		return fmt.Errorf("register tools: %w", err)
	}
	a.Registry = registry
	a.Runner = agent.NewRunner(model, registry, a.Config.AIMaxSteps, a.Logger)
	return nil
}

// Memory returns the conversation store for the API: Redis when connected,
// otherwise an in-process store.
func (a *App) Memory() agent.Memory {
	if a.Redis != nil {
		return agent.NewRedisMemory(a.Redis, a.Config.EventChannel+":memory", a.Config.MemoryWindow, a.Config.MemoryTTL)
	}
	return agent.NewInMemory(a.Config.MemoryWindow)
}

// Close releases every connection held by the app.
func (a *App) Close() {
	if a.NATS != nil {
		a.NATS.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		closeDB(a.DB)
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
