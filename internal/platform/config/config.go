// Package config loads application configuration from environment variables.
// All variables use the TUTOR_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	AI          AIConfig
	Quiz        QuizConfig
	Tutor       TutorConfig
	Progress    ProgressConfig
	Session     SessionConfig
	Log         LogConfig
	ContentPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL runs the
// service on in-memory stores.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// progress cache and keeps token budgets in memory.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for the AI providers.
type AIConfig struct {
	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
	Model   string
}

// QuizConfig controls challenge quiz generation.
type QuizConfig struct {
	QuestionCount     int
	GenerationTimeout time.Duration
	DailyTokenBudget  int64
}

// TutorConfig controls tutor chat history compaction.
type TutorConfig struct {
	CompactThreshold      int // messages
	CompactTokenThreshold int // estimated tokens
	KeepRecent            int
}

// ProgressConfig controls background progress persistence.
type ProgressConfig struct {
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// SessionConfig controls live lesson sessions.
type SessionConfig struct {
	IdleTimeout time.Duration // sessions untouched this long are closed
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with TUTOR_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("TUTOR_SERVER_PORT", 8080),
			Host:            envStr("TUTOR_SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     envDuration("TUTOR_SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    envDuration("TUTOR_SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: envDuration("TUTOR_SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:      envStr("TUTOR_DATABASE_URL", ""),
			MaxConns: envInt("TUTOR_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("TUTOR_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("TUTOR_CACHE_URL", ""),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey: envStr("TUTOR_AI_OPENAI_API_KEY", ""),
				Model:  envStr("TUTOR_AI_OPENAI_MODEL", "gpt-4o-mini"),
			},
			Anthropic: AnthropicConfig{
				APIKey: envStr("TUTOR_AI_ANTHROPIC_API_KEY", ""),
				Model:  envStr("TUTOR_AI_ANTHROPIC_MODEL", "claude-sonnet-4-5"),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("TUTOR_AI_OPENROUTER_API_KEY", ""),
				Model:  envStr("TUTOR_AI_OPENROUTER_MODEL", "openai/gpt-4o-mini"),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("TUTOR_AI_OLLAMA_ENABLED", false),
				URL:     envStr("TUTOR_AI_OLLAMA_URL", "http://localhost:11434"),
				Model:   envStr("TUTOR_AI_OLLAMA_MODEL", "llama3.1"),
			},
		},
		Quiz: QuizConfig{
			QuestionCount:     envInt("TUTOR_QUIZ_QUESTION_COUNT", 5),
			GenerationTimeout: envDuration("TUTOR_QUIZ_GENERATION_TIMEOUT", 45*time.Second),
			DailyTokenBudget:  int64(envInt("TUTOR_QUIZ_DAILY_TOKEN_BUDGET", 200000)),
		},
		Tutor: TutorConfig{
			CompactThreshold:      envInt("TUTOR_CHAT_COMPACT_THRESHOLD", 30),
			CompactTokenThreshold: envInt("TUTOR_CHAT_COMPACT_TOKEN_THRESHOLD", 6000),
			KeepRecent:            envInt("TUTOR_CHAT_KEEP_RECENT", 10),
		},
		Progress: ProgressConfig{
			WriteTimeout: envDuration("TUTOR_PROGRESS_WRITE_TIMEOUT", 5*time.Second),
			CacheTTL:     envDuration("TUTOR_PROGRESS_CACHE_TTL", 10*time.Minute),
		},
		Session: SessionConfig{
			IdleTimeout: envDuration("TUTOR_SESSION_IDLE_TIMEOUT", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  envStr("TUTOR_LOG_LEVEL", "info"),
			Format: envStr("TUTOR_LOG_FORMAT", "json"),
		},
		ContentPath: envStr("TUTOR_CONTENT_PATH", "./content/lessons"),
	}

	return cfg, nil
}

// Validate checks that configured values are in range.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("TUTOR_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("TUTOR_DATABASE_MIN_CONNS (%d) exceeds TUTOR_DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Quiz.QuestionCount < 1 {
		return fmt.Errorf("TUTOR_QUIZ_QUESTION_COUNT must be positive, got %d", c.Quiz.QuestionCount)
	}
	if c.Quiz.DailyTokenBudget < 0 {
		return fmt.Errorf("TUTOR_QUIZ_DAILY_TOKEN_BUDGET must not be negative")
	}
	if c.Tutor.KeepRecent < 0 || c.Tutor.KeepRecent >= c.Tutor.CompactThreshold {
		return fmt.Errorf("TUTOR_CHAT_KEEP_RECENT must be below TUTOR_CHAT_COMPACT_THRESHOLD")
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("TUTOR_SESSION_IDLE_TIMEOUT must be positive, got %v", c.Session.IdleTimeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("TUTOR_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.ContentPath == "" {
		return fmt.Errorf("TUTOR_CONTENT_PATH is required")
	}
	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
// Without one the service still runs; challenge quizzes fall back to the
// built-in set and the tutor answers with a fallback message.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenAI.APIKey != "" ||
		c.AI.Anthropic.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.Ollama.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envDuration accepts Go duration strings ("30s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
