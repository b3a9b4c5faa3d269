package store

import (
	"time"

	"github.com/dmitrijs2005/backpack/internal/client/models"
)

// Action is a state transition message. The set of actions is closed:
// only types declared in this package implement it.
type Action interface {
	action()
}

type (
	// SetState replaces the state with a cached snapshot.
	SetState struct{ State State }
	// SetError records a session-level error message.
	SetError struct{ Err string }
	// LoadStateSuccess marks the state as loaded and stamps the last sync.
	LoadStateSuccess struct{ LastSync time.Time }
	// LoadStateError records a failed load.
	LoadStateError struct{ Err string }
	// SetOffline switches between online and offline mode.
	SetOffline struct{ Offline bool }
	// Reset discards the whole state, e.g. on logout.
	Reset struct{}

	SetFilter struct {
		Type   models.TagType
		Filter models.Filter
	}

	FetchStart struct{ Resource Resource }
	FetchError struct {
		Resource Resource
		Err      error
	}

	FetchUserSuccess    struct{ User models.UserProfile }
	FetchTagsSuccess    struct{ Tags []models.Tag }
	FetchAwardsSuccess  struct{ Awards []models.Award }
	FetchEntriesSuccess struct{ Entries []models.Entry }
	FetchSharesSuccess  struct{ Shares []models.Share }

	AddApp          struct{ App models.LinkedApp }
	AddEmail        struct{ Email models.UserEmail }
	UpdateEmail     struct{ Email models.UserEmail }
	SetPrimaryEmail struct{ ID models.ID }
	DeleteEmail     struct{ ID models.ID }

	AddAward        struct{ Award models.Award }
	UpdateAwardTags struct {
		ID   models.ID
		Tags []string
	}
	UpdateAwardStatus struct {
		ID     models.ID
		Status models.AwardStatus
	}
	DeleteAward struct{ ID models.ID }

	AddEntry        struct{ Entry models.Entry }
	UpdateEntry     struct{ Entry models.Entry }
	UpdateEntryTags struct {
		ID   models.ID
		Tags []string
	}
	DeleteEntry struct{ ID models.ID }

	AddShare    struct{ Share models.Share }
	DeleteShare struct{ ID models.ID }

	// SyncedAward stores the server's copy of an award and clears its
	// dirty flag.
	SyncedAward struct{ Award models.Award }
	// SyncedEntry stores the server's copy of an entry. When PrevID differs
	// from Entry.ID every reference to PrevID is moved to the new id.
	// KeepDirty leaves the entry queued, e.g. while attachments are still
	// pending upload.
	SyncedEntry struct {
		Entry     models.Entry
		PrevID    models.ID
		KeepDirty bool
	}
	// SyncSuccess stamps a completed reconciliation.
	SyncSuccess struct{ LastSync time.Time }
)

func (SetState) action()            {}
func (SetError) action()            {}
func (LoadStateSuccess) action()    {}
func (LoadStateError) action()      {}
func (SetOffline) action()          {}
func (Reset) action()               {}
func (SetFilter) action()           {}
func (FetchStart) action()          {}
func (FetchError) action()          {}
func (FetchUserSuccess) action()    {}
func (FetchTagsSuccess) action()    {}
func (FetchAwardsSuccess) action()  {}
func (FetchEntriesSuccess) action() {}
func (FetchSharesSuccess) action()  {}
func (AddApp) action()              {}
func (AddEmail) action()            {}
func (UpdateEmail) action()         {}
func (SetPrimaryEmail) action()     {}
func (DeleteEmail) action()         {}
func (AddAward) action()            {}
func (UpdateAwardTags) action()     {}
func (UpdateAwardStatus) action()   {}
func (DeleteAward) action()         {}
func (AddEntry) action()            {}
func (UpdateEntry) action()         {}
func (UpdateEntryTags) action()     {}
func (DeleteEntry) action()         {}
func (AddShare) action()            {}
func (DeleteShare) action()         {}
func (SyncedAward) action()         {}
func (SyncedEntry) action()         {}
func (SyncSuccess) action()         {}
