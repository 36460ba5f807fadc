package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration marks a missing or invalid setting. It is fatal at startup.
var ErrConfiguration = errors.New("configuration error")

// Config holds runtime configuration values for the CLI and the API service.
type Config struct {
	AppName      string
	AppEnv       string
	AppPort      string
	LogLevel     string
	DatabaseURL  string
	RedisURL     string
	NATSURL      string
	EventChannel string
	JWTSecret    string

	AIProvider  string
	AIModel     string
	AIBaseURL   string
	AIAPIKey    string
	AIMaxTokens int
	AIMaxSteps  int

	AgentProfile string

	KnowledgeFile  string
	EmbeddingModel string

	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string

	MemoryWindow int
	MemoryTTL    time.Duration

	ChatRateLimit int
	CORSOrigins   string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CAMPUS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Campus Admin Agent")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("event.channel", "campus")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.max_steps", 8)
	v.SetDefault("agent.profile", "admin")
	v.SetDefault("memory.window", 20)
	v.SetDefault("memory.ttl", "24h")
	v.SetDefault("chat.rate_limit", 30)

	ttl, err := time.ParseDuration(v.GetString("memory.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: invalid memory ttl: %w", ErrConfiguration, err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		LogLevel:        strings.ToLower(v.GetString("log.level")),
		DatabaseURL:     strings.TrimSpace(v.GetString("database.url")),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		EventChannel:    v.GetString("event.channel"),
		JWTSecret:       v.GetString("jwt.secret"),
		AIProvider:      strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		AIModel:         v.GetString("ai.model"),
		AIBaseURL:       v.GetString("ai.base_url"),
		AIMaxTokens:     v.GetInt("ai.max_tokens"),
		AIMaxSteps:      v.GetInt("ai.max_steps"),
		AgentProfile:    v.GetString("agent.profile"),
		KnowledgeFile:   strings.TrimSpace(v.GetString("knowledge.file")),
		EmbeddingModel:  v.GetString("ai.embedding_model"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		AnthropicAPIKey: v.GetString("anthropic_api_key"),
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		MemoryWindow:    v.GetInt("memory.window"),
		MemoryTTL:       ttl,
		ChatRateLimit:   v.GetInt("chat.rate_limit"),
		CORSOrigins:     v.GetString("cors.origins"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("%w: CAMPUS_DATABASE_URL must be provided", ErrConfiguration)
	}

	switch cfg.AIProvider {
	case "openai":
		cfg.AIAPIKey = cfg.OpenAIAPIKey
	case "anthropic":
		cfg.AIAPIKey = cfg.AnthropicAPIKey
	case "gemini":
		cfg.AIAPIKey = cfg.GeminiAPIKey
	default:
		return Config{}, fmt.Errorf("%w: unsupported ai provider %q", ErrConfiguration, cfg.AIProvider)
	}

	if strings.TrimSpace(cfg.AIAPIKey) == "" {
		return Config{}, fmt.Errorf("%w: CAMPUS_%s_API_KEY must be provided for provider %s", ErrConfiguration, strings.ToUpper(cfg.AIProvider), cfg.AIProvider)
	}

	if cfg.AIMaxTokens <= 0 {
		cfg.AIMaxTokens = 1024
	}

	if cfg.AIMaxSteps <= 0 {
		cfg.AIMaxSteps = 8
	}

	return cfg, nil
}
