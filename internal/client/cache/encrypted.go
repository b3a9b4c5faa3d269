package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/backpack/internal/common"
	"github.com/dmitrijs2005/backpack/internal/cryptox"
)

// Encrypted seals every value before handing it to the wrapped cache. The
// salt and the key digest are stored in clear text next to the values.
type Encrypted struct {
	inner Cache
	key   []byte
	salt  []byte
}

var _ Cache = (*Encrypted)(nil)

// NewEncrypted derives the key from passphrase. A fresh cache gets a new
// salt; an existing one must have been created with the same passphrase,
// otherwise common.ErrCacheKey is returned.
func NewEncrypted(ctx context.Context, inner Cache, passphrase string) (*Encrypted, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("cache passphrase: %w", common.ErrInvalidInput)
	}

	salt, err := inner.Get(ctx, common.KeyCacheSalt)
	switch {
	case errors.Is(err, common.ErrCacheMiss):
		if salt, err = cryptox.NewSalt(); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
	case err != nil:
		return nil, err
	}

	e := &Encrypted{inner: inner, salt: salt, key: cryptox.DeriveKey([]byte(passphrase), salt)}

	check, err := inner.Get(ctx, common.KeyCacheCheck)
	switch {
	case errors.Is(err, common.ErrCacheMiss):
		if err := atomically(ctx, inner, e.writeHeader); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !bytes.Equal(check, cryptox.MakeVerifier(e.key)):
		return nil, common.ErrCacheKey
	}
	return e, nil
}

func (e *Encrypted) writeHeader(ctx context.Context, c Cache) error {
	if err := c.Set(ctx, common.KeyCacheSalt, e.salt); err != nil {
		return fmt.Errorf("store salt: %w", err)
	}
	if err := c.Set(ctx, common.KeyCacheCheck, cryptox.MakeVerifier(e.key)); err != nil {
		return fmt.Errorf("store key check: %w", err)
	}
	return nil
}

func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := e.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := cryptox.Open(sealed, e.key)
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return plain, nil
}

func (e *Encrypted) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(value, e.key)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return e.inner.Set(ctx, key, sealed)
}

func (e *Encrypted) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

// Clear removes every value and keeps the cache usable with the same
// passphrase. On sqlite the wipe and the new header commit together.
func (e *Encrypted) Clear(ctx context.Context) error {
	return atomically(ctx, e.inner, func(ctx context.Context, c Cache) error {
		if err := c.Clear(ctx); err != nil {
			return err
		}
		return e.writeHeader(ctx, c)
	})
}

func (e *Encrypted) Close() error {
	return e.inner.Close()
}
