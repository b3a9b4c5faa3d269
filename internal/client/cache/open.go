package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/backpack/internal/client/cache/migrations"
	"github.com/dmitrijs2005/backpack/internal/dbx"
)

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// FileName is the sqlite database file inside the data directory.
const FileName = "cache.db"

// Options selects a cache backend.
type Options struct {
	Backend  string
	DataDir  string // sqlite: directory of the database file; ":memory:" for tests
	RedisURL string // redis: redis://[:password@]host:port/db

	// Passphrase, when set, encrypts every stored value.
	Passphrase string
}

// Open returns the configured backend, ready to use.
func Open(ctx context.Context, opts Options) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch opts.Backend {
	case BackendSQLite, "":
		c, err = OpenSQLite(ctx, opts.DataDir)
	case BackendRedis:
		c, err = OpenRedis(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
	if err != nil || opts.Passphrase == "" {
		return c, err
	}

	enc, err := NewEncrypted(ctx, c, opts.Passphrase)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return enc, nil
}

// OpenSQLite opens and migrates <dir>/cache.db. dir ":memory:" yields a
// private in-memory database.
func OpenSQLite(ctx context.Context, dir string) (*SQLiteCache, error) {
	dsn := dir
	if dir != ":memory:" {
		dsn = filepath.Join(dir, FileName)
	}

	db, err := dbx.Open(ctx, dsn, migrations.Migrations)
	if err != nil {
		return nil, err
	}

	c := NewSQLiteCache(db)
	c.closer = db.Close
	return c, nil
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisCache(client, DefaultRedisPrefix), nil
}
