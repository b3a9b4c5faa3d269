package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// ProfileUpdate holds the profile fields a user may change. Nil fields are
// left as they are.
type ProfileUpdate struct {
	FirstName   *string            `validate:"omitempty,max=30"`
	LastName    *string            `validate:"omitempty,max=30"`
	PhoneNumber *string            `validate:"omitempty,e164"`
	NotifyType  *models.NotifyType `validate:"omitempty,min=0,max=2"`
	IsNew       *bool
}

func (p ProfileUpdate) fields() map[string]any {
	out := map[string]any{}
	if p.FirstName != nil {
		out["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		out["last_name"] = *p.LastName
	}
	if p.PhoneNumber != nil {
		out["phone_number"] = *p.PhoneNumber
	}
	if p.NotifyType != nil {
		out["notify_type"] = *p.NotifyType
	}
	if p.IsNew != nil {
		out["is_new"] = *p.IsNew
	}
	return out
}

// UpdateProfile sends a partial profile update.
func (o *Orchestrator) UpdateProfile(ctx context.Context, p ProfileUpdate) (models.UserProfile, error) {
	if err := o.validate.Struct(p); err != nil {
		return models.UserProfile{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	fields := p.fields()
	if len(fields) == 0 {
		return o.store.State().User, nil
	}

	var user models.UserProfile
	err := o.onlineOnly(ctx, "update account", func(ctx context.Context) error {
		var err error
		user, err = o.api.UpdateAccount(ctx, fields)
		if err != nil {
			return err
		}
		o.store.Dispatch(store.FetchUserSuccess{User: user})
		return nil
	})
	return user, err
}

// AddEmail registers another address. The server sends a verification
// message to it.
func (o *Orchestrator) AddEmail(ctx context.Context, email string) (models.UserEmail, error) {
	email = strings.TrimSpace(email)
	if err := o.validate.Var(email, "required,email"); err != nil {
		return models.UserEmail{}, fmt.Errorf("email %q: %w", email, common.ErrInvalidInput)
	}

	var out models.UserEmail
	err := o.onlineOnly(ctx, "add email", func(ctx context.Context) error {
		var err error
		out, err = o.api.AddEmail(ctx, email)
		if err != nil {
			return err
		}
		o.store.Dispatch(store.AddEmail{Email: out})
		return nil
	})
	return out, err
}

func (o *Orchestrator) email(id models.ID) (models.UserEmail, error) {
	for _, e := range o.store.State().User.Emails {
		if e.ID == id {
			return e, nil
		}
	}
	return models.UserEmail{}, fmt.Errorf("email %s: %w", id, common.ErrorNotFound)
}

// SetPrimaryEmail makes a validated address the primary one.
func (o *Orchestrator) SetPrimaryEmail(ctx context.Context, id models.ID) error {
	if _, err := o.email(id); err != nil {
		return err
	}
	return o.onlineOnly(ctx, "set primary email", func(ctx context.Context) error {
		if _, err := o.api.UpdateEmail(ctx, id, map[string]any{"is_primary": true}); err != nil {
			return err
		}
		o.store.Dispatch(store.SetPrimaryEmail{ID: id})
		return nil
	})
}

// ArchiveEmail hides an address without deleting the badges sent to it.
func (o *Orchestrator) ArchiveEmail(ctx context.Context, id models.ID, archived bool) error {
	if _, err := o.email(id); err != nil {
		return err
	}
	return o.onlineOnly(ctx, "archive email", func(ctx context.Context) error {
		out, err := o.api.UpdateEmail(ctx, id, map[string]any{"is_archived": archived})
		if err != nil {
			return err
		}
		if out.ID.IsZero() {
			out, _ = o.email(id)
			out.IsArchived = archived
		}
		o.store.Dispatch(store.UpdateEmail{Email: out})
		return nil
	})
}

// DeleteEmail removes an address from the account.
func (o *Orchestrator) DeleteEmail(ctx context.Context, id models.ID) error {
	if _, err := o.email(id); err != nil {
		return err
	}
	return o.onlineOnly(ctx, "delete email", func(ctx context.Context) error {
		if err := o.api.DeleteEmail(ctx, id); err != nil {
			return err
		}
		o.store.Dispatch(store.DeleteEmail{ID: id})
		return nil
	})
}

// ResendVerification asks the server to send the verification message
// again.
func (o *Orchestrator) ResendVerification(ctx context.Context, id models.ID) error {
	if _, err := o.email(id); err != nil {
		return err
	}
	return o.onlineOnly(ctx, "send verification", func(ctx context.Context) error {
		return o.api.SendVerification(ctx, id)
	})
}

// LinkApp records an app the user connected through its redirect flow.
func (o *Orchestrator) LinkApp(app models.LinkedApp) {
	o.store.Dispatch(store.AddApp{App: app})
}
