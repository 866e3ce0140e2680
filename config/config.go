package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Environments EnvironmentsConfig `mapstructure:"environments"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// WorkerConfig holds worker subprocess configuration
type WorkerConfig struct {
	// Binary is the worker executable path. Defaults to a replbox-worker
	// binary next to the server executable.
	Binary string `mapstructure:"binary"`

	// Project is an optional project directory applied to the first worker
	// as if it had been activated.
	Project string `mapstructure:"project"`

	// ReadyTimeoutSec bounds the post-spawn ready handshake.
	ReadyTimeoutSec int `mapstructure:"ready_timeout_sec"`

	// MaxTraceFrames bounds stack traces attached to evaluation errors.
	MaxTraceFrames int `mapstructure:"max_trace_frames"`
}

// EnvironmentsConfig holds named shared environment configuration
type EnvironmentsConfig struct {
	// Root overrides the directory holding named environments. Empty selects
	// the per-user default.
	Root string `mapstructure:"root"`
}

// New loads and validates the application configuration. Configuration is
// read exactly once at startup; nothing in the core re-reads environment
// state mid-session.
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("replbox")
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("worker.binary", defaultWorkerBinary())
	viper.SetDefault("worker.project", "")
	viper.SetDefault("worker.ready_timeout_sec", 10)
	viper.SetDefault("worker.max_trace_frames", 8)
	viper.SetDefault("environments.root", "")

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

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// defaultWorkerBinary resolves the worker binary expected to sit next to the
// server executable.
func defaultWorkerBinary() string {
	exe, err := os.Executable()
	if err != nil {
		return "replbox-worker"
	}
	return filepath.Join(filepath.Dir(exe), "replbox-worker")
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if c.Worker.Binary == "" {
		return fmt.Errorf("worker.binary must not be empty")
	}

	if c.Worker.ReadyTimeoutSec <= 0 {
		return fmt.Errorf("worker.ready_timeout_sec must be positive, got: %d", c.Worker.ReadyTimeoutSec)
	}

	if c.Worker.MaxTraceFrames <= 0 {
		return fmt.Errorf("worker.max_trace_frames must be positive, got: %d", c.Worker.MaxTraceFrames)
	}

	return nil
}

// ReadyTimeout returns the ready handshake bound as a duration
func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Worker.ReadyTimeoutSec) * time.Second
}
