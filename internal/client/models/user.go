package models

import "slices"

// NotifyType selects how the user is notified.
type NotifyType int

const (
	NotifyEmail NotifyType = iota
	NotifySMS
	NotifyEmailSMS
)

// UserProfile is the account returned by me/account/.
type UserProfile struct {
	ID          ID          `json:"id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	PhoneNumber string      `json:"phone_number"`
	Emails      []UserEmail `json:"emails"`
	Apps        []LinkedApp `json:"apps"`
	IsNew       bool        `json:"is_new"`
	IsClaimFS   bool        `json:"is_claimfs"`
	NotifyType  NotifyType  `json:"notify_type"`
}

// Clone returns a copy that shares no slices with u.
func (u UserProfile) Clone() UserProfile {
	u.Emails = slices.Clone(u.Emails)
	u.Apps = slices.Clone(u.Apps)
	return u
}

// PrimaryEmail returns the primary address, or "" if none is marked.
func (u UserProfile) PrimaryEmail() string {
	for _, e := range u.Emails {
		if e.IsPrimary {
			return e.Email
		}
	}
	return ""
}

// UserEmail is one address attached to the account.
type UserEmail struct {
	ID          ID     `json:"id"`
	Email       string `json:"email"`
	IsValidated bool   `json:"is_validated"`
	IsPrimary   bool   `json:"is_primary"`
	IsArchived  bool   `json:"is_archived"`
	BadgeCount  int    `json:"badge_count,omitempty"`
}

// LinkedApp is an external application connected to the account.
type LinkedApp struct {
	ID      ID     `json:"id"`
	AppName string `json:"app_name"`
	AppURL  string `json:"app_url"`
}
