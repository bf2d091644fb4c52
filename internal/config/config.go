package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Dataset DatasetConfig
	AWS     AWSConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// DatasetConfig describes the sales source and how strictly it is checked.
type DatasetConfig struct {
	Source    string
	Strict    bool
	ChunkSize int
}

// AWSConfig is used for s3:// sources only.
type AWSConfig struct {
	Region  string
	Profile string
}

type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when the environment is set directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Dataset: DatasetConfig{
			Source:    getenvWithDefault("FMCG_SOURCE", "FMCG_2022_2024.csv"),
			Strict:    cast.ToBool(os.Getenv("FMCG_STRICT")),
			ChunkSize: cast.ToInt(getenvWithDefault("FMCG_CHUNK_SIZE", "8192")),
		},
		AWS: AWSConfig{
			Region:  os.Getenv("AWS_REGION"),
			Profile: os.Getenv("AWS_PROFILE"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Dataset.Source == "" {
		return errors.New("FMCG_SOURCE must be provided")
	}
	if c.Dataset.ChunkSize <= 0 {
		return errors.New("FMCG_CHUNK_SIZE must be a positive integer")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
