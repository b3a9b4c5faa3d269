package models

import "slices"

// Filter narrows the award or entry list. Dates are YYYY-MM-DD; empty
// fields do not constrain.
type Filter struct {
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Issuers     []string `json:"issuers,omitempty"`
	Tags        []string `json:"tags"`
	IsShared    bool     `json:"isShared"`
	WasShared   bool     `json:"wasShared"`
	NeverShared bool     `json:"neverShared"`
	IsValid     bool     `json:"isValid,omitempty"`
	IsRevoked   bool     `json:"isRevoked,omitempty"`
	IsExpired   bool     `json:"isExpired,omitempty"`
}

// ShareLookup resolves share ids to shares.
type ShareLookup func(ID) (Share, bool)

// MatchAward reports whether a passes f. today is YYYY-MM-DD and is used for
// the expiry checks.
func (f Filter) MatchAward(a Award, shares ShareLookup, today string) bool {
	if a.IsDeleted {
		return false
	}

	issued := ""
	if a.IssuedDate != nil {
		issued = *a.IssuedDate
	}
	if !f.inRange(issued) {
		return false
	}
	if len(f.Issuers) > 0 && !slices.Contains(f.Issuers, a.IssuerOrgName) {
		return false
	}
	if !hasAllTags(a.Tags, f.Tags) {
		return false
	}

	expired := a.ExpirationDate != nil && *a.ExpirationDate != "" && *a.ExpirationDate < today
	if f.IsRevoked && !a.Revoked {
		return false
	}
	if f.IsExpired && !expired {
		return false
	}
	if f.IsValid && (a.Revoked || expired) {
		return false
	}

	return f.matchShared(a.Shares, shares)
}

// MatchEntry reports whether e passes f.
func (f Filter) MatchEntry(e Entry, shares ShareLookup) bool {
	if e.IsDeleted {
		return false
	}

	created := e.CreatedDT
	if len(created) > len("2006-01-02") {
		created = created[:len("2006-01-02")]
	}
	if !f.inRange(created) {
		return false
	}
	if !hasAllTags(e.Tags, f.Tags) {
		return false
	}
	return f.matchShared(e.Shares, shares)
}

func (f Filter) inRange(date string) bool {
	if f.StartDate != "" && date < f.StartDate {
		return false
	}
	if f.EndDate != "" && date > f.EndDate {
		return false
	}
	return true
}

func (f Filter) matchShared(ids []ID, shares ShareLookup) bool {
	if !f.IsShared && !f.WasShared && !f.NeverShared {
		return true
	}

	if f.NeverShared && len(ids) == 0 {
		return true
	}

	live := false
	for _, id := range ids {
		if s, ok := shares(id); !ok || !s.IsDeleted {
			live = true
			break
		}
	}

	if f.IsShared && live {
		return true
	}
	if f.WasShared && !live && len(ids) > 0 {
		return true
	}
	return false
}

func hasAllTags(have, want []string) bool {
	for _, t := range want {
		if !slices.Contains(have, t) {
			return false
		}
	}
	return true
}
