package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/cache"
	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
)

var errDown = fmt.Errorf("dial tcp: %w", api.ErrUnavailable)

// fakeAPI records calls and answers like a well-behaved server. failOn
// returns an error to inject for a method and record id.
type fakeAPI struct {
	api.Client

	mu     sync.Mutex
	calls  []string
	nextID int
	failOn func(method string, id models.ID) error

	user    models.UserProfile
	tags    []models.Tag
	awards  []models.Award
	entries []models.Entry
	shares  []models.Share
	status  models.AwardStatus
}

func newFakeAPI() *fakeAPI { return &fakeAPI{nextID: 100} }

func (f *fakeAPI) call(method string, id models.ID) error {
	f.mu.Lock()
	f.calls = append(f.calls, method+" "+id.String())
	hook := f.failOn
	f.mu.Unlock()
	if hook != nil {
		return hook(method, id)
	}
	return nil
}

func (f *fakeAPI) id() models.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return models.ID(strconv.Itoa(f.nextID))
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, method+" ") {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Ping(context.Context) error { return f.call("Ping", "") }

func (f *fakeAPI) FetchAccount(context.Context) (models.UserProfile, error) {
	return f.user, f.call("FetchAccount", "")
}

func (f *fakeAPI) FetchTags(context.Context) ([]models.Tag, error) {
	return f.tags, f.call("FetchTags", "")
}

func (f *fakeAPI) FetchAwards(context.Context) ([]models.Award, error) {
	return f.awards, f.call("FetchAwards", "")
}

func (f *fakeAPI) FetchEntries(context.Context) ([]models.Entry, error) {
	return f.entries, f.call("FetchEntries", "")
}

func (f *fakeAPI) FetchShares(context.Context) ([]models.Share, error) {
	return f.shares, f.call("FetchShares", "")
}

func (f *fakeAPI) SetAwardTags(_ context.Context, id models.ID, tags []string) (models.Award, error) {
	if err := f.call("SetAwardTags", id); err != nil {
		return models.Award{}, err
	}
	return models.Award{ID: id, Tags: tags}, nil
}

func (f *fakeAPI) DeleteAward(_ context.Context, id models.ID) error {
	return f.call("DeleteAward", id)
}

func (f *fakeAPI) VerifyAward(_ context.Context, id models.ID) (models.AwardStatus, error) {
	return f.status, f.call("VerifyAward", id)
}

func (f *fakeAPI) ClaimBadge(_ context.Context, code string) (models.Award, error) {
	if err := f.call("ClaimBadge", models.ID(code)); err != nil {
		return models.Award{}, err
	}
	return models.Award{ID: f.id(), BadgeName: code}, nil
}

func (f *fakeAPI) ExportAward(_ context.Context, id models.ID, _ api.ExportService) error {
	return f.call("ExportAward", id)
}

func (f *fakeAPI) ExportAuthURL(service api.ExportService) string {
	return "https://backpack.test/export/" + string(service) + "/authorize/"
}

func (f *fakeAPI) CreateEntry(_ context.Context, e models.Entry) (models.Entry, error) {
	if err := f.call("CreateEntry", e.ID); err != nil {
		return models.Entry{}, err
	}
	out := e.Clone()
	out.ID = f.id()
	out.CreatedDT = "2026-01-02T03:04:05Z"
	for i := range out.Sections {
		out.Sections[i].ID = f.id()
		out.Sections[i].Attachments = []models.Attachment{}
	}
	out.Dirty = false
	return out, nil
}

func (f *fakeAPI) UpdateEntry(_ context.Context, e models.Entry) (models.Entry, error) {
	if err := f.call("UpdateEntry", e.ID); err != nil {
		return models.Entry{}, err
	}
	out := e.Clone()
	out.Dirty = false
	return out, nil
}

func (f *fakeAPI) SetEntryTags(_ context.Context, id models.ID, tags []string) (models.Entry, error) {
	if err := f.call("SetEntryTags", id); err != nil {
		return models.Entry{}, err
	}
	return models.Entry{ID: id, Tags: tags}, nil
}

func (f *fakeAPI) DeleteEntry(_ context.Context, id models.ID) error {
	return f.call("DeleteEntry", id)
}

func (f *fakeAPI) CopyEntry(_ context.Context, id models.ID) (models.Entry, error) {
	if err := f.call("CopyEntry", id); err != nil {
		return models.Entry{}, err
	}
	return models.Entry{ID: f.id(), Sections: []models.Section{{ID: f.id(), Title: "copy"}}}, nil
}

func (f *fakeAPI) CreateAttachment(_ context.Context, a api.NewAttachment) (models.Attachment, error) {
	if err := f.call("CreateAttachment", a.Section); err != nil {
		return models.Attachment{}, err
	}
	return models.Attachment{ID: f.id(), Section: a.Section, Label: a.Label, Hyperlink: a.Hyperlink, Award: a.Award}, nil
}

func (f *fakeAPI) RemoveAttachments(_ context.Context, ids []models.ID) error {
	return f.call("RemoveAttachments", ids[0])
}

func (f *fakeAPI) CreateShare(_ context.Context, contentType string, objectID models.ID, t models.ShareType) (models.Share, error) {
	if err := f.call("CreateShare", objectID); err != nil {
		return models.Share{}, err
	}
	return models.Share{ID: f.id(), ContentType: contentType, ObjectID: objectID, Type: t, CreatedDT: "2026-01-02T03:04:05Z"}, nil
}

func (f *fakeAPI) DeleteShare(_ context.Context, id models.ID) error {
	return f.call("DeleteShare", id)
}

func (f *fakeAPI) AddEmail(_ context.Context, email string) (models.UserEmail, error) {
	if err := f.call("AddEmail", models.ID(email)); err != nil {
		return models.UserEmail{}, err
	}
	return models.UserEmail{ID: f.id(), Email: email}, nil
}

func (f *fakeAPI) RevokeToken(_ context.Context, _ string, token string) error {
	return f.call("RevokeToken", models.ID(token))
}

func (f *fakeAPI) AuthorizeURL(clientID, redirectURI, state string) string {
	return "https://backpack.test/o/authorize/?client_id=" + clientID + "&state=" + state
}

func (f *fakeAPI) LogoutURL() string { return "https://backpack.test/accounts/logout/" }

func ptr[T any](v T) *T { return &v }

// newTestStore returns a store seeded with s that persists to nothing.
func newTestStore(t *testing.T, s store.State) *store.Store {
	t.Helper()
	st := store.New(s, nil, nil, nil)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

func newTestOrchestrator(t *testing.T, f *fakeAPI, s store.State, prompt Prompter) *Orchestrator {
	t.Helper()
	n := 0
	return NewOrchestrator(f, newTestStore(t, s), Options{
		Prompter: prompt,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() models.ID {
			n++
			return models.ID(fmt.Sprintf("local-%d", n))
		},
	})
}

// seed builds a loaded state from records.
func seed(offline bool, awards []models.Award, entries []models.Entry, shares []models.Share) store.State {
	st := store.Reduce(store.NewState(), store.FetchAwardsSuccess{Awards: awards})
	st = store.Reduce(st, store.FetchEntriesSuccess{Entries: entries})
	st = store.Reduce(st, store.FetchSharesSuccess{Shares: shares})
	st = store.Reduce(st, store.LoadStateSuccess{LastSync: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)})
	return store.Reduce(st, store.SetOffline{Offline: offline})
}

func syncedEntry(id, section models.ID, title string) models.Entry {
	return models.Entry{
		ID:       id,
		Sections: []models.Section{{ID: section, Title: title, Attachments: []models.Attachment{}}},
		Tags:     []string{},
		Shares:   []models.ID{},
	}
}

func openMemCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
