package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// ShareAward publishes an award. The award is re-verified first; revoked
// and expired awards cannot be shared. If verification fails for another
// reason the share is still allowed when the award was verified before.
func (o *Orchestrator) ShareAward(ctx context.Context, id models.ID, t models.ShareType) (models.Share, error) {
	if !t.Valid() {
		return models.Share{}, fmt.Errorf("share type %q: %w", t, common.ErrInvalidInput)
	}
	a, err := o.award(id)
	if err != nil {
		return models.Share{}, err
	}
	if a.Revoked {
		return models.Share{}, ErrAwardRevoked
	}
	if a.ExpirationDate != nil && *a.ExpirationDate != "" && *a.ExpirationDate < o.today() {
		return models.Share{}, ErrAwardExpired
	}

	var share models.Share
	err = o.onlineOnly(ctx, "share badge", func(ctx context.Context) error {
		status, err := o.api.VerifyAward(ctx, id)
		switch {
		case err == nil:
			o.store.Dispatch(store.UpdateAwardStatus{ID: id, Status: status})
			if status.Revoked {
				return ErrAwardRevoked
			}
		case a.VerifiedDT == nil:
			o.logger.Warn(ctx, "award verification failed", "id", id, "error", err)
			return fmt.Errorf("%w: %w", ErrUnverified, err)
		}

		share, err = o.api.CreateShare(ctx, models.ContentTypeAward, id, t)
		if err != nil {
			return err
		}
		o.store.Dispatch(store.AddShare{Share: share})
		return nil
	})
	return share, err
}

// ShareEntry publishes an entry.
func (o *Orchestrator) ShareEntry(ctx context.Context, id models.ID, t models.ShareType) (models.Share, error) {
	if !t.Valid() {
		return models.Share{}, fmt.Errorf("share type %q: %w", t, common.ErrInvalidInput)
	}
	e, err := o.entry(id)
	if err != nil {
		return models.Share{}, err
	}
	if !e.IsSynced() {
		return models.Share{}, fmt.Errorf("entry %s is not synced yet: %w", id, common.ErrOnlineOnly)
	}

	var share models.Share
	err = o.onlineOnly(ctx, "share entry", func(ctx context.Context) error {
		var err error
		share, err = o.api.CreateShare(ctx, models.ContentTypeEntry, id, t)
		if err != nil {
			return err
		}
		o.store.Dispatch(store.AddShare{Share: share})
		return nil
	})
	return share, err
}

// DeleteShare unpublishes a share. The share stays listed with its view
// count.
func (o *Orchestrator) DeleteShare(ctx context.Context, id models.ID) error {
	if _, ok := o.store.State().Share(id); !ok {
		return fmt.Errorf("share %s: %w", id, common.ErrorNotFound)
	}
	return o.onlineOnly(ctx, "delete share", func(ctx context.Context) error {
		if err := o.api.DeleteShare(ctx, id); err != nil {
			return err
		}
		o.store.Dispatch(store.DeleteShare{ID: id})
		return nil
	})
}
