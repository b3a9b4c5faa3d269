// Package cache is the persistent key-value store behind the client: the
// bearer token, the login nonce, the route hint and the state snapshot.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/backpack/internal/common"
)

// Cache stores opaque blobs by key. Get returns common.ErrCacheMiss for
// absent keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// Atomic is implemented by caches that can apply a group of writes as one.
// fn must only use the Cache it is given.
type Atomic interface {
	Atomically(ctx context.Context, fn func(ctx context.Context, c Cache) error) error
}

// atomically runs fn in one unit when c supports it, and directly otherwise.
func atomically(ctx context.Context, c Cache, fn func(ctx context.Context, c Cache) error) error {
	if a, ok := c.(Atomic); ok {
		return a.Atomically(ctx, fn)
	}
	return fn(ctx, c)
}

// GetJSON loads key into dest.
func GetJSON(ctx context.Context, c Cache, key string, dest any) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// SetJSON stores value under key.
func SetJSON(ctx context.Context, c Cache, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	return c.Set(ctx, key, payload)
}

// GetString returns the string under key, or "" when it is absent.
func GetString(ctx context.Context, c Cache, key string) (string, error) {
	raw, err := c.Get(ctx, key)
	if errors.Is(err, common.ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Tokens exposes the bearer token stored in a Cache.
type Tokens struct {
	Cache Cache
}

func (t Tokens) LoadToken(ctx context.Context) (string, error) {
	return GetString(ctx, t.Cache, common.KeyToken)
}

func (t Tokens) SaveToken(ctx context.Context, token string) error {
	return t.Cache.Set(ctx, common.KeyToken, []byte(token))
}
