package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/backpack/internal/timex"
)

// fileConfig is the on-disk shape of Config. Absent keys leave the current
// value untouched.
type fileConfig struct {
	ServerRoot          *string         `json:"server_root" yaml:"server_root"`
	ClientID            *string         `json:"client_id" yaml:"client_id"`
	RedirectURI         *string         `json:"redirect_uri" yaml:"redirect_uri"`
	DataDir             *string         `json:"data_dir" yaml:"data_dir"`
	CacheBackend        *string         `json:"cache_backend" yaml:"cache_backend"`
	RedisURL            *string         `json:"redis_url" yaml:"redis_url"`
	LogLevel            *string         `json:"log_level" yaml:"log_level"`
	LogFormat           *string         `json:"log_format" yaml:"log_format"`
	LogBackend          *string         `json:"log_backend" yaml:"log_backend"`
	RequestTimeout      *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	RequestsPerSecond   *float64        `json:"requests_per_second" yaml:"requests_per_second"`
	SyncConcurrency     *int            `json:"sync_concurrency" yaml:"sync_concurrency"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	MetricsAddr         *string         `json:"metrics_addr" yaml:"metrics_addr"`
}

// parseFile overlays cfg with the values found in path. Files ending in
// .yaml or .yml are read as YAML, everything else as JSON.
func parseFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc fileConfig) apply(cfg *Config) {
	set(&cfg.ServerRoot, fc.ServerRoot)
	set(&cfg.ClientID, fc.ClientID)
	set(&cfg.RedirectURI, fc.RedirectURI)
	set(&cfg.DataDir, fc.DataDir)
	set(&cfg.CacheBackend, fc.CacheBackend)
	set(&cfg.RedisURL, fc.RedisURL)
	set(&cfg.LogLevel, fc.LogLevel)
	set(&cfg.LogFormat, fc.LogFormat)
	set(&cfg.LogBackend, fc.LogBackend)
	set(&cfg.RequestsPerSecond, fc.RequestsPerSecond)
	set(&cfg.SyncConcurrency, fc.SyncConcurrency)
	set(&cfg.MetricsAddr, fc.MetricsAddr)
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
