package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/cache"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/logging"
)

// LoadResult describes how the state was obtained.
type LoadResult struct {
	FromCache  bool
	Refreshing bool
}

// Loader brings the store up at startup: cached state first, network
// second.
type Loader struct {
	api     api.Client
	cache   cache.Cache
	store   *store.Store
	session *Session
	logger  logging.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

func NewLoader(client api.Client, c cache.Cache, st *store.Store, session *Session, logger logging.Logger) *Loader {
	return &Loader{
		api:     client,
		cache:   c,
		store:   st,
		session: session,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Load presents a loaded cache right away and, unless the cache says the
// client is offline or has unsynced changes, refreshes it in the
// background; Wait blocks until that refresh ends. Without a usable cache
// all resources are fetched and any failure is returned. An authorization
// failure in either path wipes the session and returns
// common.ErrReauthorize.
func (l *Loader) Load(ctx context.Context) (LoadResult, error) {
	cached, ok, err := store.LoadSnapshot(ctx, l.cache)
	if err != nil {
		l.logger.Error(ctx, "error loading state", "error", err)
		l.store.Dispatch(store.LoadStateError{Err: "Error loading state: " + err.Error()})
	}

	if ok {
		l.store.Dispatch(store.SetState{State: cached})

		if cached.Loaded {
			switch {
			case cached.IsOffline:
				return LoadResult{FromCache: true}, nil
			case cached.ToSync > 0:
				l.logger.Info(ctx, "unsynced changes, skipping refresh", "dirty", cached.ToSync)
				return LoadResult{FromCache: true}, nil
			}

			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				l.refresh(ctx)
			}()
			return LoadResult{FromCache: true, Refreshing: true}, nil
		}
	}

	if err := l.fetchAll(ctx, true); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return LoadResult{}, l.session.Reauthorize(ctx)
		}
		l.store.Dispatch(store.LoadStateError{Err: err.Error()})
		return LoadResult{}, err
	}

	l.store.Dispatch(store.LoadStateSuccess{LastSync: l.now().UTC()})
	return LoadResult{}, nil
}

// Refresh fetches every resource again. Failures are returned, not stored.
func (l *Loader) Refresh(ctx context.Context) error {
	if err := l.fetchAll(ctx, false); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return l.session.Reauthorize(ctx)
		}
		return err
	}
	l.store.Dispatch(store.LoadStateSuccess{LastSync: l.now().UTC()})
	return nil
}

// Wait blocks until a background refresh started by Load has finished.
func (l *Loader) Wait() { l.wg.Wait() }

func (l *Loader) refresh(ctx context.Context) {
	if err := l.Refresh(ctx); err != nil {
		l.logger.Warn(ctx, "background refresh failed", "error", err)
		return
	}
	l.logger.Debug(ctx, "background refresh finished")
}

// fetchAll fetches every resource concurrently and waits for all of them.
// With surface set each resource reports its own progress and failure in
// the state.
func (l *Loader) fetchAll(ctx context.Context, surface bool) error {
	errs := make([]error, len(store.Resources))

	var g errgroup.Group
	for i, r := range store.Resources {
		g.Go(func() error {
			errs[i] = l.fetch(ctx, r, surface)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (l *Loader) fetch(ctx context.Context, r store.Resource, surface bool) error {
	if surface {
		l.store.Dispatch(store.FetchStart{Resource: r})
	}

	var action store.Action
	var err error

	switch r {
	case store.ResourceUser:
		user, e := l.api.FetchAccount(ctx)
		action, err = store.FetchUserSuccess{User: user}, e
	case store.ResourceTags:
		tags, e := l.api.FetchTags(ctx)
		action, err = store.FetchTagsSuccess{Tags: tags}, e
	case store.ResourceAwards:
		awards, e := l.api.FetchAwards(ctx)
		action, err = store.FetchAwardsSuccess{Awards: awards}, e
	case store.ResourceEntries:
		entries, e := l.api.FetchEntries(ctx)
		action, err = store.FetchEntriesSuccess{Entries: entries}, e
	case store.ResourceShares:
		shares, e := l.api.FetchShares(ctx)
		action, err = store.FetchSharesSuccess{Shares: shares}, e
	default:
		return fmt.Errorf("unknown resource %q", r)
	}

	if err != nil {
		if surface {
			l.store.Dispatch(store.FetchError{Resource: r, Err: err})
		}
		return fmt.Errorf("fetch %s: %w", r, err)
	}

	l.store.Dispatch(action)
	return nil
}
