package cli

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/cache"
	"github.com/dmitrijs2005/backpack/internal/client/config"
	"github.com/dmitrijs2005/backpack/internal/client/models"
)

var errDown = fmt.Errorf("dial tcp: %w", api.ErrUnavailable)

// fakeAPI is a minimal server. Every call fails with errDown while down
// is set.
type fakeAPI struct {
	api.Client

	mu     sync.Mutex
	down   bool
	calls  []string
	nextID int

	user    models.UserProfile
	awards  []models.Award
	entries []models.Entry
}

func newFakeAPI() *fakeAPI {
	issued := "2026-01-10"
	return &fakeAPI{
		nextID: 100,
		user: models.UserProfile{
			ID: "1", FirstName: "Ada", LastName: "Lovelace",
			Emails: []models.UserEmail{{ID: "7", Email: "ada@example.com", IsPrimary: true, IsValidated: true}},
		},
		awards: []models.Award{
			{ID: "11", BadgeName: "Go Basics", IssuerOrgName: "Gophers", IssuedDate: &issued, Tags: []string{"go"}, Shares: []models.ID{}},
		},
		entries: []models.Entry{
			{ID: "21", Sections: []models.Section{{ID: "31", Title: "Field notes", Attachments: []models.Attachment{}}}, Tags: []string{}, Shares: []models.ID{}},
		},
	}
}

func (f *fakeAPI) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeAPI) call(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	if f.down {
		return errDown
	}
	return nil
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeAPI) id() models.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return models.ID(strconv.Itoa(f.nextID))
}

func (f *fakeAPI) Ping(context.Context) error { return f.call("Ping") }

func (f *fakeAPI) FetchAccount(context.Context) (models.UserProfile, error) {
	return f.user, f.call("FetchAccount")
}

func (f *fakeAPI) FetchTags(context.Context) ([]models.Tag, error) {
	return nil, f.call("FetchTags")
}

func (f *fakeAPI) FetchAwards(context.Context) ([]models.Award, error) {
	return f.awards, f.call("FetchAwards")
}

func (f *fakeAPI) FetchEntries(context.Context) ([]models.Entry, error) {
	return f.entries, f.call("FetchEntries")
}

func (f *fakeAPI) FetchShares(context.Context) ([]models.Share, error) {
	return nil, f.call("FetchShares")
}

func (f *fakeAPI) ClaimBadge(_ context.Context, code string) (models.Award, error) {
	if err := f.call("ClaimBadge"); err != nil {
		return models.Award{}, err
	}
	return models.Award{ID: f.id(), BadgeName: code}, nil
}

func (f *fakeAPI) CreateEntry(_ context.Context, e models.Entry) (models.Entry, error) {
	if err := f.call("CreateEntry"); err != nil {
		return models.Entry{}, err
	}
	out := e.Clone()
	out.ID = f.id()
	for i := range out.Sections {
		out.Sections[i].ID = f.id()
	}
	out.Dirty = false
	return out, nil
}

func (f *fakeAPI) UpdateEntry(_ context.Context, e models.Entry) (models.Entry, error) {
	if err := f.call("UpdateEntry"); err != nil {
		return models.Entry{}, err
	}
	out := e.Clone()
	out.Dirty = false
	return out, nil
}

func (f *fakeAPI) SetEntryTags(_ context.Context, id models.ID, tags []string) (models.Entry, error) {
	if err := f.call("SetEntryTags"); err != nil {
		return models.Entry{}, err
	}
	return models.Entry{ID: id, Tags: tags}, nil
}

func (f *fakeAPI) RevokeToken(context.Context, string, string) error { return f.call("RevokeToken") }

func (f *fakeAPI) AuthorizeURL(clientID, _, state string) string {
	return "https://backpack.test/o/authorize/?client_id=" + clientID + "&state=" + state
}

func (f *fakeAPI) LogoutURL() string { return "https://backpack.test/accounts/logout/" }

// keepOpen survives App.Close so that one cache spans several invocations.
type keepOpen struct{ cache.Cache }

func (keepOpen) Close() error { return nil }

// harness runs CLI invocations against one fake server and one cache.
type harness struct {
	t     *testing.T
	api   *fakeAPI
	cache cache.Cache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c, err := cache.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &harness{t: t, api: newFakeAPI(), cache: keepOpen{c}}
}

func (h *harness) factory(_ context.Context, cfg *config.Config, opts *RootOptions, cmd *cobra.Command) (*App, error) {
	return newApp(cfg, Deps{
		API:   h.api,
		Cache: h.cache,
		Prompter: &ttyPrompter{
			w:           cmd.ErrOrStderr(),
			assumeYes:   opts.AssumeOffline,
			interactive: func() bool { return false },
		},
		In:  cmd.InOrStdin(),
		Out: cmd.OutOrStdout(),
		Err: cmd.ErrOrStderr(),
	}), nil
}

// run executes one invocation and returns its stdout and stderr.
func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--env-file", "testdata/none.env"}, args...)
	err := Execute(context.Background(), h.factory, args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	_, _, err := h.run("", "login", "--token", "secret")
	require.NoError(h.t, err)
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
