// Package config loads the server TOML configuration and imports app
// definitions from YAML catalogs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LogConfig controls per-worker combined output files.
type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// HistoryConfig configures the optional launch/stop event sink.
type HistoryConfig struct {
	ClickHouseAddr string `toml:"clickhouse_addr" mapstructure:"clickhouse_addr"`
	Table          string `toml:"table" mapstructure:"table"`
}

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Listen         string         `toml:"listen" mapstructure:"listen"`
	BasePath       string         `toml:"base_path" mapstructure:"base_path"`
	CatalogDSN     string         `toml:"catalog_dsn" mapstructure:"catalog_dsn"`
	StatePath      string         `toml:"state_path" mapstructure:"state_path"`
	Runner         []string       `toml:"runner" mapstructure:"runner"`
	StartupTimeout time.Duration  `toml:"startup_timeout" mapstructure:"startup_timeout"`
	StopWait       time.Duration  `toml:"stop_wait" mapstructure:"stop_wait"`
	LogLines       int            `toml:"log_lines" mapstructure:"log_lines"`
	Metrics        bool           `toml:"metrics" mapstructure:"metrics"`
	Log            *LogConfig     `toml:"log" mapstructure:"log"`
	History        *HistoryConfig `toml:"history" mapstructure:"history"`
}

// Default returns the configuration used when no file is given.
func Default() FileConfig {
	return FileConfig{
		Listen:     "127.0.0.1:8090",
		CatalogDSN: "data/apps.db",
		StatePath:  "state/running.json",
		Metrics:    true,
	}
}

// Load reads a TOML file into FileConfig. Missing optional fields keep
// their defaults.
func Load(path string) (FileConfig, error) {
	fc := Default()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.Listen == "" {
		return fc, fmt.Errorf("config %s: listen must not be empty", path)
	}
	if fc.CatalogDSN == "" {
		return fc, fmt.Errorf("config %s: catalog_dsn must not be empty", path)
	}
	return fc, nil
}
