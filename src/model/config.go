package model

import "time"

// ----------------------------------------------------
// ================ Config ================

// LogConfig holds configuration for the global zerolog logger
type LogConfig struct {
	Level      string `yaml:"level" split_words:"true" validate:"required,oneof=trace debug info warn error fatal panic disabled"`
	Format     string `yaml:"format" split_words:"true" validate:"oneof=json console"`
	Output     string `yaml:"output" split_words:"true" validate:"oneof=stdout stderr file"`
	FilePath   string `yaml:"file_path" split_words:"true" validate:"required_if=Output file"`
	TimeFormat string `yaml:"time_format" split_words:"true" validate:"omitempty,oneof=rfc3339 unix iso8601"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr string `yaml:"addr" split_words:"true" validate:"required"`
	Mode string `yaml:"mode" split_words:"true" validate:"oneof=debug release test"`
}

// WalkConfig holds the filesystem walk settings
type WalkConfig struct {
	Root string `yaml:"root" split_words:"true" validate:"required"`
}

// SQLiteConfig holds the relational store settings
type SQLiteConfig struct {
	Path         string        `yaml:"path" split_words:"true" validate:"required"`
	BusyTimeout  time.Duration `yaml:"busy_timeout" split_words:"true" validate:"gte=0"`
	MaxOpenConns int           `yaml:"max_open_conns" split_words:"true" validate:"gte=1"`
	RegexCache   int           `yaml:"regex_cache" split_words:"true" validate:"gte=1"`
}

// CacheConfig holds the Redis document cache settings
type CacheConfig struct {
	URL       string `yaml:"url" split_words:"true" validate:"required"`
	Mode      string `yaml:"mode" split_words:"true" validate:"oneof=string json"`
	KeyPrefix string `yaml:"key_prefix" split_words:"true"`
}
