package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// SandboxConfig holds the code-execution engine configuration
type SandboxConfig struct {
	Engine          string `mapstructure:"engine"`
	TimeoutSec      int    `mapstructure:"timeout_sec"`
	MaxTraceFrames  int    `mapstructure:"max_trace_frames"`
	MaxCollectDepth int    `mapstructure:"max_collect_depth"`
}

// LLMConfig holds the model-client configuration. The API key is read from
// the environment variable named by APIKeyEnv, never from the config file.
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	APIKeyEnv   string  `mapstructure:"api_key_env"`
	Temperature float64 `mapstructure:"temperature"`
}

// DatasetConfig holds dataset ingestion limits
type DatasetConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("sandbox.engine", "js")
	viper.SetDefault("sandbox.timeout_sec", 10)
	viper.SetDefault("sandbox.max_trace_frames", 4)
	viper.SetDefault("sandbox.max_collect_depth", 32)
	viper.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	viper.SetDefault("llm.model", "gemini-2.0-flash-exp")
	viper.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("dataset.max_rows", 100000)
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Sandbox.Engine != "js" {
		return fmt.Errorf("unsupported sandbox.engine: %s", c.Sandbox.Engine)
	}

	if c.Sandbox.TimeoutSec < 0 {
		return fmt.Errorf("sandbox.timeout_sec must not be negative, got: %d", c.Sandbox.TimeoutSec)
	}

	if c.Sandbox.MaxTraceFrames <= 0 {
		return fmt.Errorf("sandbox.max_trace_frames must be positive, got: %d", c.Sandbox.MaxTraceFrames)
	}

	if c.Sandbox.MaxCollectDepth <= 0 {
		return fmt.Errorf("sandbox.max_collect_depth must be positive, got: %d", c.Sandbox.MaxCollectDepth)
	}

	if c.Dataset.MaxRows <= 0 {
		return fmt.Errorf("dataset.max_rows must be positive, got: %d", c.Dataset.MaxRows)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got: %g", c.LLM.Temperature)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}
