package store

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/dmitrijs2005/backpack/internal/client/models"
)

// Reduce returns the state that results from applying a to s. It is pure:
// s is never modified and the same inputs always give the same output.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetState:
		s = a.State.normalize()

	case SetError:
		s.Error = a.Err

	case LoadStateSuccess:
		t := a.LastSync
		s.Error = ""
		s.Loaded = true
		s.LastSync = &t

	case LoadStateError:
		s.Error = a.Err

	case SetOffline:
		s.IsOffline = a.Offline

	case Reset:
		return NewState()

	case SetFilter:
		if a.Type.Valid() {
			s.Filters[a.Type] = a.Filter
		}

	case FetchStart:
		s = fetchStart(s, a.Resource)

	case FetchError:
		s = fetchError(s, a.Resource, a.Err)

	case FetchUserSuccess:
		s.User = a.User.Clone()

	case FetchTagsSuccess:
		s.Tags = bucketTags(a.Tags)

	case FetchAwardsSuccess:
		c := newCollection[models.Award]()
		for _, award := range a.Awards {
			if _, seen := c.ItemsByID[award.ID]; !seen {
				c.Items = append(c.Items, award.ID)
			}
			c.ItemsByID[award.ID] = award.Clone()
		}
		sortAwards(c)
		s.Awards = c
		s.Issuers = compileIssuers(c.ItemsByID)
		s.Tags[models.TagTypeAward] = compileTags(c.ItemsByID, awardTags)

	case FetchEntriesSuccess:
		c := newCollection[models.Entry]()
		for _, entry := range a.Entries {
			if _, seen := c.ItemsByID[entry.ID]; !seen {
				c.Items = append(c.Items, entry.ID)
			}
			c.ItemsByID[entry.ID] = entry.Clone()
		}
		s.Entries = c
		s.Tags[models.TagTypeEntry] = compileTags(c.ItemsByID, entryTags)

	case FetchSharesSuccess:
		c := newCollection[models.Share]()
		for _, share := range a.Shares {
			if _, seen := c.ItemsByID[share.ID]; !seen {
				c.Items = append(c.Items, share.ID)
			}
			c.ItemsByID[share.ID] = share
		}
		s.Shares = c

	case AddApp:
		if !slices.ContainsFunc(s.User.Apps, func(app models.LinkedApp) bool { return app.ID == a.App.ID }) {
			s.User = s.User.Clone()
			s.User.Apps = append(s.User.Apps, a.App)
		}

	case AddEmail:
		s.User = s.User.Clone()
		s.User.Emails = append(s.User.Emails, a.Email)

	case SetPrimaryEmail:
		s.User = s.User.Clone()
		for i := range s.User.Emails {
			s.User.Emails[i].IsPrimary = s.User.Emails[i].ID == a.ID
		}
		slices.SortStableFunc(s.User.Emails, func(x, y models.UserEmail) int {
			switch {
			case x.IsPrimary && !y.IsPrimary:
				return -1
			case !x.IsPrimary && y.IsPrimary:
				return 1
			}
			return 0
		})

	case UpdateEmail:
		s.User = s.User.Clone()
		for i, e := range s.User.Emails {
			if e.ID == a.Email.ID {
				s.User.Emails[i] = a.Email
			}
		}

	case DeleteEmail:
		s.User = s.User.Clone()
		s.User.Emails = slices.DeleteFunc(s.User.Emails, func(e models.UserEmail) bool { return e.ID == a.ID })

	case AddAward:
		s = addAward(s, a.Award)

	case UpdateAwardTags:
		s = updateAwardTags(s, a.ID, a.Tags)

	case UpdateAwardStatus:
		if award, ok := s.Awards.ItemsByID[a.ID]; ok {
			s.Awards = s.Awards.clone()
			award = award.Clone()
			award.VerifiedDT = a.Status.VerifiedDT
			award.Revoked = a.Status.Revoked
			award.RevokedReason = a.Status.RevokedReason
			s.Awards.ItemsByID[a.ID] = award
		}

	case DeleteAward:
		s = deleteAward(s, a.ID)

	case AddEntry:
		s = addEntry(s, a.Entry)

	case UpdateEntry:
		s = updateEntry(s, a.Entry)

	case UpdateEntryTags:
		s = updateEntryTags(s, a.ID, a.Tags)

	case DeleteEntry:
		s = deleteEntry(s, a.ID)

	case AddShare:
		s = addShare(s, a.Share)

	case DeleteShare:
		if share, ok := s.Shares.ItemsByID[a.ID]; ok {
			s.Shares = s.Shares.clone()
			share.IsDeleted = true
			s.Shares.ItemsByID[a.ID] = share
		}

	case SyncedAward:
		s = syncedAward(s, a.Award)

	case SyncedEntry:
		s = syncedEntry(s, a)

	case SyncSuccess:
		t := a.LastSync
		s.LastSync = &t
	}

	s.ToSync = countDirty(s)
	return s
}

func fetchStart(s State, r Resource) State {
	switch r {
	case ResourceAwards:
		s.Awards.Loading, s.Awards.Error = true, ""
	case ResourceEntries:
		s.Entries.Loading, s.Entries.Error = true, ""
	case ResourceShares:
		s.Shares.Loading, s.Shares.Error = true, ""
	}
	return s
}

func fetchError(s State, r Resource, err error) State {
	msg := fmt.Sprintf("Error fetching %s", r)
	if err != nil {
		msg += ": " + err.Error()
	}

	switch r {
	case ResourceAwards:
		s.Awards.Loading, s.Awards.Error = false, msg
	case ResourceEntries:
		s.Entries.Loading, s.Entries.Error = false, msg
	case ResourceShares:
		s.Shares.Loading, s.Shares.Error = false, msg
	default:
		s.Error = msg
	}
	return s
}

func addAward(s State, award models.Award) State {
	s.Awards = s.Awards.clone()
	if _, ok := s.Awards.ItemsByID[award.ID]; !ok || !slices.Contains(s.Awards.Items, award.ID) {
		s.Awards.Items = append(s.Awards.Items, award.ID)
	}
	s.Awards.ItemsByID[award.ID] = award.Clone()
	sortAwards(s.Awards)

	s.Issuers = compileIssuers(s.Awards.ItemsByID)
	s.Tags[models.TagTypeAward] = compileTags(s.Awards.ItemsByID, awardTags)
	return s
}

func updateAwardTags(s State, id models.ID, tags []string) State {
	award, ok := s.Awards.ItemsByID[id]
	if !ok {
		return s
	}

	s.Awards = s.Awards.clone()
	award = award.Clone()
	award.Tags = slices.Clone(tags)
	if award.Tags == nil {
		award.Tags = []string{}
	}
	if s.IsOffline {
		award.Dirty = true
	}
	s.Awards.ItemsByID[id] = award

	s.Tags[models.TagTypeAward] = compileTags(s.Awards.ItemsByID, awardTags)
	return s
}

// deleteAward tombstones the award. A linked pledge entry is dropped from
// the entry listing and tombstoned as well. Both links are cleared.
func deleteAward(s State, id models.ID) State {
	award, ok := s.Awards.ItemsByID[id]
	if !ok {
		return s
	}

	s.Awards = s.Awards.clone()
	award = award.Clone()
	entryID := award.Entry
	award.IsDeleted = true
	award.Entry = ""
	award.Dirty = s.IsOffline
	s.Awards.ItemsByID[id] = award

	s.Issuers = compileIssuers(s.Awards.ItemsByID)
	s.Tags[models.TagTypeAward] = compileTags(s.Awards.ItemsByID, awardTags)

	if entryID.IsZero() {
		return s
	}

	s.Entries = s.Entries.clone()
	s.Entries.Items = slices.DeleteFunc(s.Entries.Items, func(v models.ID) bool { return v == entryID })
	if entry, ok := s.Entries.ItemsByID[entryID]; ok {
		entry = entry.Clone()
		entry.IsDeleted = true
		entry.Award = ""
		entry.Dirty = s.IsOffline
		s.Entries.ItemsByID[entryID] = entry
	}
	s.Tags[models.TagTypeEntry] = compileTags(s.Entries.ItemsByID, entryTags)
	return s
}

func addEntry(s State, entry models.Entry) State {
	entry = entry.Clone()
	entry.Dirty = s.IsOffline

	s.Entries = s.Entries.clone()
	s.Entries.Items = slices.DeleteFunc(s.Entries.Items, func(v models.ID) bool { return v == entry.ID })
	s.Entries.Items = slices.Insert(s.Entries.Items, 0, entry.ID)
	s.Entries.ItemsByID[entry.ID] = entry
	s.Tags[models.TagTypeEntry] = compileTags(s.Entries.ItemsByID, entryTags)

	if !entry.Award.IsZero() {
		s = linkAward(s, entry.Award, entry.ID)
	}
	return s
}

// updateEntry merges a changed entry into the existing record. Zero-valued
// links and timestamps in the update keep their current values.
func updateEntry(s State, entry models.Entry) State {
	prev, ok := s.Entries.ItemsByID[entry.ID]
	if !ok {
		return s
	}

	entry = entry.Clone()
	if entry.CreatedDT == "" {
		entry.CreatedDT = prev.CreatedDT
	}
	if entry.Award.IsZero() {
		entry.Award = prev.Award
	}
	if entry.Shares == nil {
		entry.Shares = slices.Clone(prev.Shares)
	}
	if entry.Tags == nil {
		entry.Tags = slices.Clone(prev.Tags)
	}
	entry.Dirty = s.IsOffline || (prev.Dirty && (!entry.IsSynced() || entry.HasStagedAttachments()))

	s.Entries = s.Entries.clone()
	s.Entries.ItemsByID[entry.ID] = entry
	s.Tags[models.TagTypeEntry] = compileTags(s.Entries.ItemsByID, entryTags)
	return s
}

func updateEntryTags(s State, id models.ID, tags []string) State {
	entry, ok := s.Entries.ItemsByID[id]
	if !ok {
		return s
	}

	s.Entries = s.Entries.clone()
	entry = entry.Clone()
	entry.Tags = slices.Clone(tags)
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	if s.IsOffline {
		entry.Dirty = true
	}
	s.Entries.ItemsByID[id] = entry

	s.Tags[models.TagTypeEntry] = compileTags(s.Entries.ItemsByID, entryTags)
	return s
}

// deleteEntry drops the entry from the listing and keeps it as a tombstone.
// Offline, the tombstone stays queued until reconciliation has deleted it on
// the server or finalized it locally.
func deleteEntry(s State, id models.ID) State {
	entry, ok := s.Entries.ItemsByID[id]
	if !ok {
		return s
	}

	s.Entries = s.Entries.clone()
	s.Entries.Items = slices.DeleteFunc(s.Entries.Items, func(v models.ID) bool { return v == id })

	awardID := entry.Award
	entry = entry.Clone()
	entry.IsDeleted = true
	entry.Award = ""
	entry.Dirty = s.IsOffline
	s.Entries.ItemsByID[id] = entry
	s.Tags[models.TagTypeEntry] = compileTags(s.Entries.ItemsByID, entryTags)

	if !awardID.IsZero() {
		s = linkAward(s, awardID, "")
	}
	return s
}

// linkAward points the award's pledge reference at entryID. An empty
// entryID clears it.
func linkAward(s State, awardID, entryID models.ID) State {
	award, ok := s.Awards.ItemsByID[awardID]
	if !ok {
		return s
	}
	s.Awards = s.Awards.clone()
	award = award.Clone()
	award.Entry = entryID
	s.Awards.ItemsByID[awardID] = award
	return s
}

func addShare(s State, share models.Share) State {
	s.Shares = s.Shares.clone()
	s.Shares.Items = slices.DeleteFunc(s.Shares.Items, func(v models.ID) bool { return v == share.ID })
	s.Shares.Items = slices.Insert(s.Shares.Items, 0, share.ID)
	s.Shares.ItemsByID[share.ID] = share

	if share.ContentType == models.ContentTypeAward {
		if award, ok := s.Awards.ItemsByID[share.ObjectID]; ok && !models.ContainsID(award.Shares, share.ID) {
			s.Awards = s.Awards.clone()
			award = award.Clone()
			award.Shares = append(award.Shares, share.ID)
			s.Awards.ItemsByID[award.ID] = award
		}
		return s
	}

	if entry, ok := s.Entries.ItemsByID[share.ObjectID]; ok && !models.ContainsID(entry.Shares, share.ID) {
		s.Entries = s.Entries.clone()
		entry = entry.Clone()
		entry.Shares = append(entry.Shares, share.ID)
		s.Entries.ItemsByID[entry.ID] = entry
	}
	return s
}

func syncedAward(s State, award models.Award) State {
	prev, ok := s.Awards.ItemsByID[award.ID]

	s.Awards = s.Awards.clone()
	award = award.Clone()
	award.Dirty = false
	if ok {
		if award.Entry.IsZero() && !prev.IsDeleted {
			award.Entry = prev.Entry
		}
		award.IsDeleted = award.IsDeleted || prev.IsDeleted
	}
	s.Awards.ItemsByID[award.ID] = award

	s.Tags[models.TagTypeAward] = compileTags(s.Awards.ItemsByID, awardTags)
	return s
}

// syncedEntry stores the confirmed entry and, for entries created offline,
// moves every reference from the local id to the server id.
func syncedEntry(s State, a SyncedEntry) State {
	entry := a.Entry.Clone()
	prevID := a.PrevID
	if prevID.IsZero() {
		prevID = entry.ID
	}
	prev, hadPrev := s.Entries.ItemsByID[prevID]

	if hadPrev {
		if entry.Award.IsZero() && !prev.IsDeleted {
			entry.Award = prev.Award
		}
		if entry.CreatedDT == "" {
			entry.CreatedDT = prev.CreatedDT
		}
		if entry.Shares == nil {
			entry.Shares = slices.Clone(prev.Shares)
		}
		entry.IsDeleted = entry.IsDeleted || prev.IsDeleted
	}
	entry.Dirty = a.KeepDirty && !entry.IsDeleted

	s.Entries = s.Entries.clone()
	if prevID != entry.ID {
		delete(s.Entries.ItemsByID, prevID)
		for i, id := range s.Entries.Items {
			if id == prevID {
				s.Entries.Items[i] = entry.ID
			}
		}
		s = remapEntryRefs(s, prevID, entry.ID)
	}
	s.Entries.ItemsByID[entry.ID] = entry
	s.Tags[models.TagTypeEntry] = compileTags(s.Entries.ItemsByID, entryTags)
	return s
}

func remapEntryRefs(s State, from, to models.ID) State {
	awards := s.Awards.clone()
	for id, award := range awards.ItemsByID {
		if award.Entry == from {
			award.Entry = to
			awards.ItemsByID[id] = award
		}
	}
	s.Awards = awards

	shares := s.Shares.clone()
	for id, share := range shares.ItemsByID {
		if share.ContentType == models.ContentTypeEntry && share.ObjectID == from {
			share.ObjectID = to
			shares.ItemsByID[id] = share
		}
	}
	s.Shares = shares
	return s
}

func countDirty(s State) int {
	n := 0
	for _, a := range s.Awards.ItemsByID {
		if a.Dirty {
			n++
		}
	}
	for _, e := range s.Entries.ItemsByID {
		if e.Dirty {
			n++
		}
	}
	return n
}

func bucketTags(tags []models.Tag) [models.TagTypeCount][]string {
	var out [models.TagTypeCount][]string
	for i := range out {
		out[i] = []string{}
	}
	for _, t := range tags {
		if t.Type.Valid() && !slices.Contains(out[t.Type], t.Name) {
			out[t.Type] = append(out[t.Type], t.Name)
		}
	}
	for i := range out {
		sortFolded(out[i])
	}
	return out
}

func awardTags(a models.Award) ([]string, bool) { return a.Tags, a.IsDeleted }
func entryTags(e models.Entry) ([]string, bool) { return e.Tags, e.IsDeleted }

// compileTags returns the union of tags over all non-deleted records,
// sorted case-insensitively.
func compileTags[T any](items map[models.ID]T, tagsOf func(T) ([]string, bool)) []string {
	set := map[string]struct{}{}
	for _, item := range items {
		tags, deleted := tagsOf(item)
		if deleted {
			continue
		}
		for _, t := range tags {
			set[t] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func compileIssuers(items map[models.ID]models.Award) []string {
	set := map[string]struct{}{}
	for _, a := range items {
		if !a.IsDeleted && a.IssuerOrgName != "" {
			set[a.IssuerOrgName] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sortFolded(out)
	return out
}

// sortFolded orders names case-insensitively. Names that fold to the same
// key are ordered by their raw bytes so the result is deterministic.
func sortFolded(names []string) {
	fold := cases.Fold()
	keys := make(map[string]string, len(names))
	for _, n := range names {
		keys[n] = fold.String(n)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := strings.Compare(keys[a], keys[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}

// sortAwards orders awards by issued date, newest first, with pending
// (undated) awards ahead of all dated ones. Equal dates keep their order.
func sortAwards(c Collection[models.Award]) {
	slices.SortStableFunc(c.Items, func(x, y models.ID) int {
		return compareIssued(c.ItemsByID[x].IssuedDate, c.ItemsByID[y].IssuedDate)
	})
}

func compareIssued(a, b *string) int {
	aPending := a == nil || *a == ""
	bPending := b == nil || *b == ""
	switch {
	case aPending && bPending:
		return 0
	case aPending:
		return -1
	case bPending:
		return 1
	}
	return strings.Compare(*b, *a)
}
