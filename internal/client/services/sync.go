package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// Sync item kinds.
const (
	KindEntry = "entry"
	KindAward = "award"
)

// ItemError is the failure of a single record during reconciliation.
type ItemError struct {
	Kind string
	ID   models.ID
	Err  error
}

func (e *ItemError) Error() string { return fmt.Sprintf("sync %s %s: %v", e.Kind, e.ID, e.Err) }
func (e *ItemError) Unwrap() error { return e.Err }

// SyncResult summarises a reconciliation run.
type SyncResult struct {
	EntriesSynced int
	AwardsSynced  int
	Failed        []*ItemError
}

// Reconcile replays every dirty entry and then every dirty award against
// the server. Items of a phase run concurrently; a failed item does not
// stop its siblings. A connectivity failure ends the run after the entry
// phase with common.ErrSyncInterrupted and leaves awards untouched. Other
// failures are joined into the returned error. On full success the last
// sync time is stamped and offline mode ends.
func (o *Orchestrator) Reconcile(ctx context.Context) (SyncResult, error) {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()

	var res SyncResult

	entries := o.store.State().DirtyEntries()
	o.logger.Info(ctx, "sync started", "entries", len(entries))

	n, failed := o.runPhase(ctx, KindEntry, len(entries), func(ctx context.Context, i int) (models.ID, error) {
		_, err := o.syncEntry(ctx, entries[i])
		return entries[i].ID, err
	})
	res.EntriesSynced = n
	res.Failed = append(res.Failed, failed...)

	if err := interrupted(ctx, failed); err != nil {
		o.metrics.ObserveSync("interrupted")
		o.logger.Warn(ctx, "sync interrupted", "error", err)
		return res, err
	}

	awards := o.store.State().DirtyAwards()
	n, failed = o.runPhase(ctx, KindAward, len(awards), func(ctx context.Context, i int) (models.ID, error) {
		return awards[i].ID, o.syncAward(ctx, awards[i])
	})
	res.AwardsSynced = n
	res.Failed = append(res.Failed, failed...)

	if err := interrupted(ctx, failed); err != nil {
		o.metrics.ObserveSync("interrupted")
		o.logger.Warn(ctx, "sync interrupted", "error", err)
		return res, err
	}

	if len(res.Failed) > 0 {
		errs := make([]error, len(res.Failed))
		for i, f := range res.Failed {
			errs[i] = f
		}
		o.metrics.ObserveSync("partial")
		return res, errors.Join(errs...)
	}

	o.store.Dispatch(store.SyncSuccess{LastSync: o.now().UTC()})
	o.SetOffline(false)
	o.metrics.ObserveSync("ok")
	o.logger.Info(ctx, "sync finished", "entries", res.EntriesSynced, "awards", res.AwardsSynced)
	return res, nil
}

// runPhase syncs n items with bounded concurrency and waits for all of
// them. It returns the number of successes and the failures.
func (o *Orchestrator) runPhase(ctx context.Context, kind string, n int, sync func(context.Context, int) (models.ID, error)) (int, []*ItemError) {
	outcomes := make([]*ItemError, n)

	var g errgroup.Group
	g.SetLimit(o.syncConcurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			id, err := sync(ctx, i)
			if err != nil {
				o.metrics.ObserveSyncItem(kind, "error")
				o.logger.Error(ctx, "sync item failed", "kind", kind, "id", id, "error", err)
				outcomes[i] = &ItemError{Kind: kind, ID: id, Err: err}
				return nil
			}
			o.metrics.ObserveSyncItem(kind, "ok")
			return nil
		})
	}
	_ = g.Wait()

	var failed []*ItemError
	for _, f := range outcomes {
		if f != nil {
			failed = append(failed, f)
		}
	}
	return n - len(failed), failed
}

func interrupted(ctx context.Context, failed []*ItemError) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, f := range failed {
		if api.IsConnectivity(f.Err) {
			return fmt.Errorf("%w: %w", common.ErrSyncInterrupted, f)
		}
	}
	return nil
}

// syncEntry pushes one dirty entry and returns the confirmed record.
func (o *Orchestrator) syncEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	switch {
	case e.IsDeleted && !e.IsSynced():
		o.store.Dispatch(store.SyncedEntry{Entry: e})
		return e, nil

	case e.IsDeleted:
		if err := o.api.DeleteEntry(ctx, e.ID); err != nil && !errors.Is(err, api.ErrNotFound) {
			return e, err
		}
		o.store.Dispatch(store.SyncedEntry{Entry: e})
		return e, nil

	case !e.IsSynced():
		created, err := o.api.CreateEntry(ctx, e.Shell())
		if err != nil {
			return e, err
		}

		// Move to the server id right away, keeping the staged attachments
		// and tags, so that a retry continues as an update.
		pending := withStaged(created, e)
		o.store.Dispatch(store.SyncedEntry{Entry: pending, PrevID: e.ID, KeepDirty: true})
		return o.syncExistingEntry(ctx, pending)

	default:
		return o.syncExistingEntry(ctx, e)
	}
}

// syncExistingEntry uploads staged attachments one at a time, recording
// each confirmed upload, then patches sections and tags.
func (o *Orchestrator) syncExistingEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	cur := e.Clone()
	if err := o.uploadStaged(ctx, &cur); err != nil {
		return cur, err
	}

	out, err := o.api.UpdateEntry(ctx, cur)
	if err != nil {
		return cur, err
	}
	tagged, err := o.api.SetEntryTags(ctx, cur.ID, cur.Tags)
	if err != nil {
		return cur, err
	}
	out.Tags = tagged.Tags
	if out.ID.IsZero() {
		out.ID = cur.ID
	}

	o.store.Dispatch(store.SyncedEntry{Entry: out})
	return out, nil
}

func stagedOnly(list []models.Attachment) []models.Attachment {
	var out []models.Attachment
	for _, a := range list {
		if a.IsStaged() {
			out = append(out, a)
		}
	}
	return out
}

// syncAward pushes one dirty award: a delete, or its tag set.
func (o *Orchestrator) syncAward(ctx context.Context, a models.Award) error {
	if a.IsDeleted {
		if err := o.api.DeleteAward(ctx, a.ID); err != nil && !errors.Is(err, api.ErrNotFound) {
			return err
		}
		o.store.Dispatch(store.SyncedAward{Award: a})
		return nil
	}

	saved, err := o.api.SetAwardTags(ctx, a.ID, a.Tags)
	if err != nil {
		return err
	}
	a.Tags = saved.Tags
	o.store.Dispatch(store.SyncedAward{Award: a})
	return nil
}
