package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the course RAG system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Search    SearchConfig    `mapstructure:"search"`
	Session   SessionConfig   `mapstructure:"session"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the completion provider configuration
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig contains the embedding provider configuration
type EmbeddingConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// IngestConfig controls document parsing and chunking
type IngestConfig struct {
	DocsDir      string `mapstructure:"docs_dir"`
	IndexPath    string `mapstructure:"index_path"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

// SearchConfig controls retrieval behaviour
type SearchConfig struct {
	MaxResults      int     `mapstructure:"max_results"`
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`
}

// SessionConfig controls conversation history storage
type SessionConfig struct {
	Backend    string      `mapstructure:"backend"` // inmemory or redis
	MaxHistory int         `mapstructure:"max_history"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings for the session backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogFile string `mapstructure:"log_file"`
}

func (s SessionConfig) Validate() error {
	switch s.Backend {
	case "", "inmemory":
	case "redis":
		if s.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required when session.backend is redis")
		}
	default:
		return fmt.Errorf("unsupported session backend: %s", s.Backend)
	}
	if s.MaxHistory < 0 {
		return fmt.Errorf("session.max_history must be >= 0")
	}
	return nil
}

func (i IngestConfig) Validate() error {
	if i.ChunkOverlap >= i.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)", i.ChunkOverlap, i.ChunkSize)
	}
	return nil
}

// LoadConfig reads configuration from the given file, or from the default
// search paths when path is empty. Environment variables with the COURSERAG_
// prefix override file values; ANTHROPIC_API_KEY and OPENAI_API_KEY are
// honored as fallbacks for the provider keys.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("COURSERAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env vars are enough to run.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Ingest.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", 30*time.Second)
	v.SetDefault("server.address", ":8000")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.temperature", 0)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("ingest.docs_dir", "./docs")
	v.SetDefault("ingest.chunk_size", 800)
	v.SetDefault("ingest.chunk_overlap", 100)
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.confidence_floor", 0.3)
	v.SetDefault("session.backend", "inmemory")
	v.SetDefault("session.max_history", 2)
	v.SetDefault("session.redis.addr", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("telemetry.enabled", true)
}
