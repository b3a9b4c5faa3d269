// Package store holds the client state tree. State only changes through
// Reduce; Store serializes dispatches and mirrors every snapshot to the
// persistent cache.
package store

import (
	"slices"
	"time"

	"github.com/dmitrijs2005/backpack/internal/client/models"
)

// Resource names a collection fetched at load time.
type Resource string

const (
	ResourceUser    Resource = "user"
	ResourceTags    Resource = "tags"
	ResourceAwards  Resource = "awards"
	ResourceEntries Resource = "entries"
	ResourceShares  Resource = "shares"
)

// Resources lists every resource fetched by the loader.
var Resources = []Resource{ResourceUser, ResourceTags, ResourceAwards, ResourceEntries, ResourceShares}

// Collection is an ordered set of records keyed by id. Items holds the
// visible ordering; ItemsByID may also hold tombstones that are no longer
// listed in Items.
type Collection[T any] struct {
	Loading   bool            `json:"loading"`
	Error     string          `json:"error,omitempty"`
	Items     []models.ID     `json:"items"`
	ItemsByID map[models.ID]T `json:"itemsById"`
}

func newCollection[T any]() Collection[T] {
	return Collection[T]{Items: []models.ID{}, ItemsByID: map[models.ID]T{}}
}

// clone copies the ordering and the map so that the result can be
// modified without touching the receiver. Records are copied by value.
func (c Collection[T]) clone() Collection[T] {
	out := c
	out.Items = slices.Clone(c.Items)
	if out.Items == nil {
		out.Items = []models.ID{}
	}
	out.ItemsByID = make(map[models.ID]T, len(c.ItemsByID))
	for k, v := range c.ItemsByID {
		out.ItemsByID[k] = v
	}
	return out
}

// Get returns the record with the given id, tombstones included.
func (c Collection[T]) Get(id models.ID) (T, bool) {
	v, ok := c.ItemsByID[id]
	return v, ok
}

// State is an immutable snapshot of the client. Reduce never modifies the
// State it receives.
type State struct {
	IsOffline bool       `json:"isOffline"`
	ToSync    int        `json:"toSync"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
	Loaded    bool       `json:"loaded"`
	Error     string     `json:"error,omitempty"`

	User    models.UserProfile                 `json:"user"`
	Issuers []string                           `json:"issuers"`
	Tags    [models.TagTypeCount][]string      `json:"tags"`
	Filters [models.TagTypeCount]models.Filter `json:"filter"`

	Awards  Collection[models.Award] `json:"awards"`
	Entries Collection[models.Entry] `json:"entries"`
	Shares  Collection[models.Share] `json:"shares"`
}

// NewState returns the empty state of a fresh session.
func NewState() State {
	return State{
		User:    models.UserProfile{Emails: []models.UserEmail{}, Apps: []models.LinkedApp{}},
		Issuers: []string{},
		Tags:    [models.TagTypeCount][]string{{}, {}},
		Awards:  newCollection[models.Award](),
		Entries: newCollection[models.Entry](),
		Shares:  newCollection[models.Share](),
	}
}

// normalize fills nil maps and slices left by a decoded snapshot.
func (s State) normalize() State {
	if s.Awards.ItemsByID == nil {
		s.Awards.ItemsByID = map[models.ID]models.Award{}
	}
	if s.Entries.ItemsByID == nil {
		s.Entries.ItemsByID = map[models.ID]models.Entry{}
	}
	if s.Shares.ItemsByID == nil {
		s.Shares.ItemsByID = map[models.ID]models.Share{}
	}
	if s.Awards.Items == nil {
		s.Awards.Items = []models.ID{}
	}
	if s.Entries.Items == nil {
		s.Entries.Items = []models.ID{}
	}
	if s.Shares.Items == nil {
		s.Shares.Items = []models.ID{}
	}
	if s.Issuers == nil {
		s.Issuers = []string{}
	}
	for i := range s.Tags {
		if s.Tags[i] == nil {
			s.Tags[i] = []string{}
		}
	}
	return s
}

// Award returns an award by id, tombstones included.
func (s State) Award(id models.ID) (models.Award, bool) { return s.Awards.Get(id) }

// Entry returns an entry by id, tombstones included.
func (s State) Entry(id models.ID) (models.Entry, bool) { return s.Entries.Get(id) }

// Share returns a share by id.
func (s State) Share(id models.ID) (models.Share, bool) { return s.Shares.Get(id) }

// VisibleAwards returns the listed, non-deleted awards in display order.
func (s State) VisibleAwards() []models.Award {
	out := make([]models.Award, 0, len(s.Awards.Items))
	for _, id := range s.Awards.Items {
		if a, ok := s.Awards.ItemsByID[id]; ok && !a.IsDeleted {
			out = append(out, a)
		}
	}
	return out
}

// VisibleEntries returns the listed, non-deleted entries in display order.
func (s State) VisibleEntries() []models.Entry {
	out := make([]models.Entry, 0, len(s.Entries.Items))
	for _, id := range s.Entries.Items {
		if e, ok := s.Entries.ItemsByID[id]; ok && !e.IsDeleted {
			out = append(out, e)
		}
	}
	return out
}

// FilteredAwards applies the award filter. today is YYYY-MM-DD.
func (s State) FilteredAwards(today string) []models.Award {
	f := s.Filters[models.TagTypeAward]
	var out []models.Award
	for _, a := range s.VisibleAwards() {
		if f.MatchAward(a, s.Share, today) {
			out = append(out, a)
		}
	}
	return out
}

// FilteredEntries applies the entry filter.
func (s State) FilteredEntries() []models.Entry {
	f := s.Filters[models.TagTypeEntry]
	var out []models.Entry
	for _, e := range s.VisibleEntries() {
		if f.MatchEntry(e, s.Share) {
			out = append(out, e)
		}
	}
	return out
}

// SharesOf returns the shares attached to an award or entry, newest first.
func (s State) SharesOf(ids []models.ID) []models.Share {
	out := make([]models.Share, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if sh, ok := s.Shares.ItemsByID[ids[i]]; ok {
			out = append(out, sh)
		}
	}
	return out
}

// DirtyAwards returns every award awaiting sync, ordered by id.
func (s State) DirtyAwards() []models.Award {
	var out []models.Award
	for _, a := range s.Awards.ItemsByID {
		if a.Dirty {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.Award) int { return compareIDs(a.ID, b.ID) })
	return out
}

// DirtyEntries returns every entry awaiting sync, ordered by id.
func (s State) DirtyEntries() []models.Entry {
	var out []models.Entry
	for _, e := range s.Entries.ItemsByID {
		if e.Dirty {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b models.Entry) int { return compareIDs(a.ID, b.ID) })
	return out
}

func compareIDs(a, b models.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
