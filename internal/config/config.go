// Package config loads the insights engine's YAML configuration into a
// struct-of-structs tree, mirroring the layout used throughout the wider
// telemetry stack this engine was extracted from.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig controls the HTTP surface the trigger plane binds to.
type ServiceConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig configures the Postgres-backed telemetry store adapter.
type DatabaseConfig struct {
	ConnectionString string `yaml:"connection_string"`
	MaxConns         int32  `yaml:"max_conns"`
	MinConns         int32  `yaml:"min_conns"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider string         `yaml:"provider"` // "anthropic" | "openai"
	Model    string         `yaml:"model"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty"`
	MaxTokens int    `yaml:"max_tokens"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// RunnerConfig supplies the Conversation Runner's bounds. Zero values are
// replaced with the spec's defaults by ApplyDefaults.
type RunnerConfig struct {
	MaxIterations          int           `yaml:"max_iterations"`
	IterationTimeout       time.Duration `yaml:"iteration_timeout"`
	TotalTimeout           time.Duration `yaml:"total_timeout"`
	ConversationTokenLimit int           `yaml:"conversation_token_limit"`
	TokensPerChar          float64       `yaml:"tokens_per_char"`
}

// AssemblerConfig supplies the Context Assembler's time budgets.
type AssemblerConfig struct {
	SyncBudget       time.Duration `yaml:"sync_budget"`
	BackgroundBudget time.Duration `yaml:"background_budget"`
}

// WeatherConfig configures the external weather/irradiance collaborator.
type WeatherConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// TelemetryConfig controls OpenTelemetry tracing/metrics export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// LoggingConfig controls the zerolog sink.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Runner    RunnerConfig    `yaml:"runner"`
	Assembler AssemblerConfig `yaml:"assembler"`
	Weather   WeatherConfig   `yaml:"weather"`
	OTel      TelemetryConfig `yaml:"otel"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoadConfig reads the configuration from a YAML file and applies defaults
// for any unset budget fields.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in the runner/assembler/database defaults named in
// the component design: 10 iterations, 25s per-iteration, 58s total, a
// 60k-token conversation budget, and the 5s/45s assembler budgets.
func (c *Config) ApplyDefaults() {
	if c.Runner.MaxIterations <= 0 {
		c.Runner.MaxIterations = 10
	}
	if c.Runner.IterationTimeout <= 0 {
		c.Runner.IterationTimeout = 25 * time.Second
	}
	if c.Runner.TotalTimeout <= 0 {
		c.Runner.TotalTimeout = 58 * time.Second
	}
	if c.Runner.ConversationTokenLimit <= 0 {
		c.Runner.ConversationTokenLimit = 60_000
	}
	if c.Runner.TokensPerChar <= 0 {
		c.Runner.TokensPerChar = 0.25
	}
	if c.Assembler.SyncBudget <= 0 {
		c.Assembler.SyncBudget = 5 * time.Second
	}
	if c.Assembler.BackgroundBudget <= 0 {
		c.Assembler.BackgroundBudget = 45 * time.Second
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 5
	}
	if c.Database.MaxConnIdleTime <= 0 {
		c.Database.MaxConnIdleTime = 5 * time.Minute
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = "wattwise"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
