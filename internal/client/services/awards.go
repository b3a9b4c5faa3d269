package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// normalizeTags trims, drops empties and duplicates, and sorts.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

func (o *Orchestrator) award(id models.ID) (models.Award, error) {
	a, ok := o.store.State().Award(id)
	if !ok || a.IsDeleted {
		return models.Award{}, fmt.Errorf("award %s: %w", id, common.ErrorNotFound)
	}
	return a, nil
}

// SetAwardTags replaces the tag set of an award.
func (o *Orchestrator) SetAwardTags(ctx context.Context, id models.ID, tags []string) error {
	if _, err := o.award(id); err != nil {
		return err
	}
	tags = normalizeTags(tags)

	return o.mutate(ctx, "update tags",
		func(ctx context.Context) error {
			saved, err := o.api.SetAwardTags(ctx, id, tags)
			if err != nil {
				return err
			}
			o.store.Dispatch(store.UpdateAwardTags{ID: id, Tags: saved.Tags})
			return nil
		},
		func() error {
			o.store.Dispatch(store.UpdateAwardTags{ID: id, Tags: tags})
			return nil
		})
}

// DeleteAward removes an award, and its pledge entry if it has one.
func (o *Orchestrator) DeleteAward(ctx context.Context, id models.ID) error {
	if _, err := o.award(id); err != nil {
		return err
	}

	return o.mutate(ctx, "delete badge",
		func(ctx context.Context) error {
			if err := o.api.DeleteAward(ctx, id); err != nil {
				return err
			}
			o.store.Dispatch(store.DeleteAward{ID: id})
			return nil
		},
		func() error {
			o.store.Dispatch(store.DeleteAward{ID: id})
			return nil
		})
}

// VerifyAward asks the server to re-verify an award and stores the result.
func (o *Orchestrator) VerifyAward(ctx context.Context, id models.ID) (models.AwardStatus, error) {
	var status models.AwardStatus
	err := o.onlineOnly(ctx, "verify badge", func(ctx context.Context) error {
		var err error
		status, err = o.api.VerifyAward(ctx, id)
		if err != nil {
			return err
		}
		o.store.Dispatch(store.UpdateAwardStatus{ID: id, Status: status})
		return nil
	})
	return status, err
}

// ClaimBadge claims an award by its claim code.
func (o *Orchestrator) ClaimBadge(ctx context.Context, code string) (models.Award, error) {
	code = strings.TrimSpace(code)
	if err := o.validate.Var(code, "required,max=128,printascii"); err != nil {
		return models.Award{}, fmt.Errorf("claim code: %w", common.ErrInvalidInput)
	}

	var award models.Award
	err := o.onlineOnly(ctx, "claim badge", func(ctx context.Context) error {
		var err error
		award, err = o.api.ClaimBadge(ctx, code)
		if err != nil {
			return err
		}
		o.store.Dispatch(store.AddAward{Award: award})
		return nil
	})
	return award, err
}

// ClaimEvent claims the award of the event linked to the account. It
// returns ErrNothingToClaim when the server had nothing pending.
func (o *Orchestrator) ClaimEvent(ctx context.Context) (models.Award, error) {
	var award models.Award
	err := o.onlineOnly(ctx, "claim event", func(ctx context.Context) error {
		var err error
		award, err = o.api.ClaimEvent(ctx)
		if err != nil {
			return err
		}
		if award.ID.IsZero() {
			return ErrNothingToClaim
		}
		o.store.Dispatch(store.AddAward{Award: award})
		return nil
	})
	return award, err
}

// UploadAward adds an award from a baked badge image or assertion file.
func (o *Orchestrator) UploadAward(ctx context.Context, fileName string, data []byte) (models.Award, error) {
	if len(data) == 0 {
		return models.Award{}, fmt.Errorf("badge file: %w", common.ErrInvalidInput)
	}

	var award models.Award
	err := o.onlineOnly(ctx, "upload badge", func(ctx context.Context) error {
		var err error
		award, err = o.api.UploadAward(ctx, fileName, data)
		if err != nil {
			return err
		}
		o.store.Dispatch(store.AddAward{Award: award})
		return nil
	})
	return award, err
}

// ExportAward copies an award to a cloud drive. When the drive has not
// been authorized yet it returns the URL that starts authorization and a
// nil error.
func (o *Orchestrator) ExportAward(ctx context.Context, id models.ID, service api.ExportService) (string, error) {
	if !service.Valid() {
		return "", fmt.Errorf("export service %q: %w", service, common.ErrInvalidInput)
	}
	if _, err := o.award(id); err != nil {
		return "", err
	}

	authURL := ""
	err := o.onlineOnly(ctx, "export badge", func(ctx context.Context) error {
		err := o.api.ExportAward(ctx, id, service)
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
			authURL = o.api.ExportAuthURL(service)
			return nil
		}
		return err
	})
	return authURL, err
}
