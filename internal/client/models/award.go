package models

import (
	"encoding/json"
	"slices"
)

// Award is a claimed or issued badge instance.
type Award struct {
	ID                ID              `json:"id"`
	IssuedDate        *string         `json:"issued_date"` // nil while the pledge is pending
	ExpirationDate    *string         `json:"expiration_date"`
	VerifiedDT        *string         `json:"verified_dt"`
	Revoked           bool            `json:"revoked"`
	RevokedReason     string          `json:"revoked_reason"`
	StudentName       string          `json:"student_name"`
	BadgeName         string          `json:"badge_name"`
	BadgeVersion      string          `json:"badge_version"`
	BadgeDescription  string          `json:"badge_description"`
	BadgeCriteria     string          `json:"badge_criteria"`
	BadgeImage        string          `json:"badge_image"`
	BakedImageURL     string          `json:"baked_image_url"`
	BadgeImageDataURI string          `json:"badge_image_data_uri,omitempty"`
	AssertionURL      string          `json:"assertion_url"`
	IssuerOrgURL      string          `json:"issuer_org_url"`
	IssuerOrgName     string          `json:"issuer_org_name"`
	Tags              []string        `json:"tags"`
	Shares            []ID            `json:"shares"`
	Evidence          json.RawMessage `json:"evidence,omitempty"`
	Endorsements      json.RawMessage `json:"endorsements,omitempty"`
	Entry             ID              `json:"entry,omitempty"`
	IsDeleted         bool            `json:"is_deleted"`
	Dirty             bool            `json:"dirty,omitempty"`
}

// IsPending reports whether the award has not been issued yet.
func (a Award) IsPending() bool {
	return a.IssuedDate == nil || *a.IssuedDate == ""
}

// Clone returns a copy that shares no slices with a.
func (a Award) Clone() Award {
	a.Tags = slices.Clone(a.Tags)
	a.Shares = slices.Clone(a.Shares)
	return a
}

// AwardStatus is the verification outcome returned by award/{id}/verify/.
type AwardStatus struct {
	VerifiedDT    *string `json:"verified_dt"`
	Revoked       bool    `json:"revoked"`
	RevokedReason string  `json:"revoked_reason"`
}
