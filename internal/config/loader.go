package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"fsgraph/src/model"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FSGRAPH_SQLITE_PATH.
const EnvPrefix = "FSGRAPH"

// Config is the full runtime configuration of fsgraph
type Config struct {
	Server model.ServerConfig `yaml:"server" envconfig:"SERVER"`
	Walk   model.WalkConfig   `yaml:"walk" envconfig:"WALK"`
	SQLite model.SQLiteConfig `yaml:"sqlite" envconfig:"SQLITE"`
	Cache  model.CacheConfig  `yaml:"cache" envconfig:"CACHE"`
	Log    model.LogConfig    `yaml:"log" envconfig:"LOG"`
}

// Default returns the configuration used when nothing else is provided:
// igraph.db in the working directory and a redis host named "redis".
func Default() Config {
	return Config{
		Server: model.ServerConfig{
			Addr: ":5000",
			Mode: "release",
		},
		Walk: model.WalkConfig{
			Root: ".",
		},
		SQLite: model.SQLiteConfig{
			Path:         "igraph.db",
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 4,
			RegexCache:   128,
		},
		Cache: model.CacheConfig{
			URL:  "redis://redis:6379/0",
			Mode: "string",
		},
		Log: model.LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			TimeFormat: "rfc3339",
		},
	}
}

// LoadConfig builds a Config from defaults, an optional YAML file, a .env file
// and FSGRAPH_* environment variables, in that order of precedence.
func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	if filepath != "" {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("error parsing YAML: %w", err)
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks field constraints declared on the config structs
func Validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
