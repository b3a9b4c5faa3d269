package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Overrides carries command-line values. Only flags the user actually set
// are applied.
type Overrides struct {
	fs *pflag.FlagSet

	serverRoot          string
	dataDir             string
	cacheBackend        string
	redisURL            string
	logLevel            string
	syncConcurrency     int
	onlineCheckInterval time.Duration
	metricsAddr         string
}

// RegisterFlags adds the configuration flags to fs.
//
//	--server string          server root URL
//	--data-dir string        directory of the local cache
//	--cache string           cache backend (sqlite|redis)
//	--redis-url string       redis URL for the redis backend
//	--log-level string       debug, info, warn or error
//	--sync-concurrency int   requests in flight during sync
//	--online-check duration  connectivity probe interval
//	--metrics-addr string    host:port for /metrics in watch mode
func RegisterFlags(fs *pflag.FlagSet) *Overrides {
	o := &Overrides{fs: fs}
	fs.StringVar(&o.serverRoot, "server", "", "server root URL")
	fs.StringVar(&o.dataDir, "data-dir", "", "directory of the local cache")
	fs.StringVar(&o.cacheBackend, "cache", "", "cache backend (sqlite|redis)")
	fs.StringVar(&o.redisURL, "redis-url", "", "redis URL for the redis cache backend")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	fs.IntVar(&o.syncConcurrency, "sync-concurrency", 0, "requests in flight during sync")
	fs.DurationVar(&o.onlineCheckInterval, "online-check", 0, "connectivity probe interval")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "host:port serving /metrics in watch mode")
	return o
}

func (o *Overrides) apply(cfg *Config) {
	if o == nil || o.fs == nil {
		return
	}
	changed := o.fs.Changed

	if changed("server") {
		cfg.ServerRoot = o.serverRoot
	}
	if changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if changed("cache") {
		cfg.CacheBackend = o.cacheBackend
	}
	if changed("redis-url") {
		cfg.RedisURL = o.redisURL
	}
	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if changed("sync-concurrency") {
		cfg.SyncConcurrency = o.syncConcurrency
	}
	if changed("online-check") {
		cfg.OnlineCheckInterval = o.onlineCheckInterval
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
}
