package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/common"
)

func TestReconcile_NewEntryTakesServerIDAndRelinksAward(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, []models.Award{{ID: "1"}}, nil, nil), nil)
	ctx := context.Background()

	local, err := o.Pledge(ctx, "1", models.Entry{
		Tags: []string{"goal"},
		Sections: []models.Section{{
			Title:       "I will",
			Attachments: []models.Attachment{{Label: "plan", Hyperlink: "https://example.org/plan"}},
		}},
	})
	require.NoError(t, err)
	require.True(t, local.ID.IsLocal())

	res, err := o.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntriesSynced)
	assert.Empty(t, res.Failed)

	st := o.Store().State()
	require.Len(t, st.Entries.Items, 1)
	id := st.Entries.Items[0]
	assert.False(t, id.IsLocal())
	_, stale := st.Entry(local.ID)
	assert.False(t, stale)

	e, _ := st.Entry(id)
	assert.False(t, e.Dirty)
	assert.True(t, e.IsSynced())
	assert.Equal(t, models.ID("1"), e.Award)
	assert.Equal(t, []string{"goal"}, e.Tags)
	require.Len(t, e.Sections[0].Attachments, 1)
	assert.False(t, e.Sections[0].Attachments[0].IsStaged())

	a, _ := st.Award("1")
	assert.Equal(t, id, a.Entry)

	assert.Zero(t, st.ToSync)
	assert.False(t, st.IsOffline)
	require.NotNil(t, st.LastSync)
	assert.Equal(t, "2026-03-01", st.LastSync.Format("2006-01-02"))
}

func TestReconcile_ConnectivityLossSkipsAwards(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, []models.Award{{ID: "1"}}, []models.Entry{syncedEntry("10", "11", "A")}, nil), nil)
	ctx := context.Background()

	require.NoError(t, o.SetAwardTags(ctx, "1", []string{"x"}))
	require.NoError(t, o.SetEntryTags(ctx, "10", []string{"y"}))
	require.Equal(t, 2, o.Store().State().ToSync)

	f.failOn = func(method string, _ models.ID) error {
		if method == "UpdateEntry" {
			return errDown
		}
		return nil
	}

	res, err := o.Reconcile(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSyncInterrupted)
	assert.Zero(t, res.EntriesSynced)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, KindEntry, res.Failed[0].Kind)

	assert.Zero(t, f.count("SetAwardTags"))
	st := o.Store().State()
	a, _ := st.Award("1")
	assert.True(t, a.Dirty)
	assert.Equal(t, 2, st.ToSync)
	assert.True(t, st.IsOffline)
}

func TestReconcile_OneFailureDoesNotStopOthers(t *testing.T) {
	entries := []models.Entry{
		syncedEntry("10", "11", "A"),
		syncedEntry("20", "21", "B"),
		syncedEntry("30", "31", "C"),
	}
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, []models.Award{{ID: "1"}}, entries, nil), nil)
	ctx := context.Background()

	for _, e := range entries {
		require.NoError(t, o.SetEntryTags(ctx, e.ID, []string{"t"}))
	}
	require.NoError(t, o.SetAwardTags(ctx, "1", []string{"x"}))

	f.failOn = func(method string, id models.ID) error {
		if method == "UpdateEntry" && id == "20" {
			return serverError(http.StatusInternalServerError)
		}
		return nil
	}

	res, err := o.Reconcile(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrSyncInterrupted))

	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, models.ID("20"), itemErr.ID)

	assert.Equal(t, 2, res.EntriesSynced)
	assert.Equal(t, 1, res.AwardsSynced)

	st := o.Store().State()
	for id, dirty := range map[models.ID]bool{"10": false, "20": true, "30": false} {
		e, _ := st.Entry(id)
		assert.Equal(t, dirty, e.Dirty, "entry %s", id)
	}
	assert.Equal(t, 1, st.ToSync)
	assert.True(t, st.IsOffline)
}

func TestReconcile_DeleteOfMissingRecordSucceeds(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, []models.Award{{ID: "1"}}, []models.Entry{syncedEntry("10", "11", "A")}, nil), nil)
	ctx := context.Background()

	require.NoError(t, o.DeleteAward(ctx, "1"))
	require.NoError(t, o.DeleteEntry(ctx, "10"))

	f.failOn = func(string, models.ID) error { return serverError(http.StatusNotFound) }

	_, err := o.Reconcile(ctx)
	require.NoError(t, err)

	st := o.Store().State()
	assert.Zero(t, st.ToSync)
	a, _ := st.Award("1")
	assert.True(t, a.IsDeleted)
	e, _ := st.Entry("10")
	assert.True(t, e.IsDeleted)
}

func TestReconcile_LocalOnlyDeleteNeverReachesServer(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, nil, nil, nil), nil)
	ctx := context.Background()

	e, err := o.CreateEntry(ctx, models.Entry{Sections: []models.Section{{Title: "Draft"}}})
	require.NoError(t, err)
	require.NoError(t, o.DeleteEntry(ctx, e.ID))

	_, err = o.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.Calls())
	assert.Zero(t, o.Store().State().ToSync)
}

func TestReconcile_ReplayIsIdempotent(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, []models.Award{{ID: "1"}}, nil, nil), nil)
	ctx := context.Background()

	require.NoError(t, o.SetAwardTags(ctx, "1", []string{"a"}))

	// The first run loses the reply after the server applied the change.
	f.failOn = func(string, models.ID) error { return serverError(http.StatusGatewayTimeout) }
	_, err := o.Reconcile(ctx)
	require.Error(t, err)
	a, _ := o.Store().State().Award("1")
	assert.True(t, a.Dirty)

	f.failOn = nil
	_, err = o.Reconcile(ctx)
	require.NoError(t, err)
	a, _ = o.Store().State().Award("1")
	assert.Equal(t, []string{"a"}, a.Tags)
	assert.False(t, a.Dirty)

	before := len(f.Calls())
	res, err := o.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)
	assert.Len(t, f.Calls(), before)
}

func TestReconcile_StagedUploadsArePersistedOneByOne(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, nil, []models.Entry{syncedEntry("10", "11", "A")}, nil), nil)
	ctx := context.Background()

	_, err := o.AddAttachment(ctx, "10", 0, AttachmentInput{FileName: "a.txt", Data: []byte("one")})
	require.NoError(t, err)
	_, err = o.AddAttachment(ctx, "10", 0, AttachmentInput{FileName: "b.txt", Data: []byte("two")})
	require.NoError(t, err)

	uploads := 0
	f.failOn = func(method string, _ models.ID) error {
		if method != "CreateAttachment" {
			return nil
		}
		uploads++
		if uploads == 2 {
			return serverError(http.StatusInternalServerError)
		}
		return nil
	}

	_, err = o.Reconcile(ctx)
	require.Error(t, err)

	e, _ := o.Store().State().Entry("10")
	require.Len(t, e.Sections[0].Attachments, 2)
	assert.False(t, e.Sections[0].Attachments[0].IsStaged())
	assert.True(t, e.Sections[0].Attachments[1].IsStaged())
	assert.True(t, e.Dirty)

	_, err = o.Reconcile(ctx)
	require.NoError(t, err)
	e, _ = o.Store().State().Entry("10")
	assert.False(t, e.HasStagedAttachments())
	assert.False(t, e.Dirty)
	assert.Equal(t, 3, f.count("CreateAttachment"))
}

func TestReconcile_CanceledContextInterrupts(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, []models.Award{{ID: "1"}}, nil, nil), nil)
	require.NoError(t, o.SetAwardTags(context.Background(), "1", []string{"a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Reconcile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, o.Store().State().ToSync)
}

func TestUpdateEntry_OnlineUnsyncedPushesNow(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, nil, nil, nil), nil)
	ctx := context.Background()

	local, err := o.CreateEntry(ctx, models.Entry{Sections: []models.Section{{Title: "Draft"}}})
	require.NoError(t, err)
	o.SetOffline(false)

	edit := local.Clone()
	edit.Sections[0].Text = "body"
	out, err := o.UpdateEntry(ctx, edit)
	require.NoError(t, err)

	assert.False(t, out.ID.IsLocal())
	assert.Equal(t, "body", out.Sections[0].Text)

	st := o.Store().State()
	assert.Equal(t, []models.ID{out.ID}, st.Entries.Items)
	assert.Zero(t, st.ToSync)
}

func TestCreateEntry_ConnectivityLossAfterCreateKeepsServerID(t *testing.T) {
	f := newFakeAPI()
	f.failOn = func(method string, _ models.ID) error {
		if method == "CreateAttachment" {
			return errDown
		}
		return nil
	}
	o := newTestOrchestrator(t, f, seed(false, nil, nil, nil), AlwaysOffline)
	ctx := context.Background()

	out, err := o.CreateEntry(ctx, models.Entry{
		Tags: []string{"a"},
		Sections: []models.Section{{
			Title:       "Reflection",
			Attachments: []models.Attachment{{Label: "site", Hyperlink: "https://example.org"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ID("101"), out.ID)
	assert.True(t, out.Dirty)
	assert.True(t, out.HasStagedAttachments())

	st := o.Store().State()
	assert.True(t, st.IsOffline)
	assert.Equal(t, []models.ID{"101"}, st.Entries.Items)
	assert.Equal(t, 1, st.ToSync)

	f.failOn = nil
	_, err = o.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, f.count("CreateEntry"))
	assert.Equal(t, 2, f.count("CreateAttachment"))

	e, _ := o.Store().State().Entry("101")
	assert.False(t, e.Dirty)
	assert.False(t, e.HasStagedAttachments())
	assert.Equal(t, []string{"a"}, e.Tags)
}

func TestCreateEntry_ServerErrorAfterCreateStaysQueued(t *testing.T) {
	f := newFakeAPI()
	f.failOn = func(method string, _ models.ID) error {
		if method == "SetEntryTags" {
			return serverError(http.StatusInternalServerError)
		}
		return nil
	}
	o := newTestOrchestrator(t, f, seed(false, nil, nil, nil), nil)
	ctx := context.Background()

	out, err := o.CreateEntry(ctx, models.Entry{Tags: []string{"a"}, Sections: []models.Section{{Title: "Draft"}}})
	require.Error(t, err)
	assert.Equal(t, models.ID("101"), out.ID)

	st := o.Store().State()
	assert.False(t, st.IsOffline)
	assert.Equal(t, []models.ID{"101"}, st.Entries.Items)
	assert.Equal(t, 1, st.ToSync)

	f.failOn = nil
	_, err = o.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("CreateEntry"))
	assert.Zero(t, o.Store().State().ToSync)
}

func TestUpdateEntry_ConnectivityLossKeepsConfirmedUploads(t *testing.T) {
	f := newFakeAPI()
	e := syncedEntry("10", "11", "Doc")
	o := newTestOrchestrator(t, f, seed(false, nil, []models.Entry{e}, nil), AlwaysOffline)
	ctx := context.Background()

	uploads := 0
	f.failOn = func(method string, _ models.ID) error {
		if method != "CreateAttachment" {
			return nil
		}
		uploads++
		if uploads == 2 {
			return errDown
		}
		return nil
	}

	edit := e.Clone()
	edit.Sections[0].Attachments = []models.Attachment{
		{Label: "a", Hyperlink: "https://example.org/a"},
		{Label: "b", Hyperlink: "https://example.org/b"},
	}
	out, err := o.UpdateEntry(ctx, edit)
	require.NoError(t, err)
	require.Len(t, out.Sections[0].Attachments, 2)
	assert.False(t, out.Sections[0].Attachments[0].IsStaged())
	assert.True(t, out.Sections[0].Attachments[1].IsStaged())
	assert.True(t, out.Dirty)
	assert.Zero(t, f.count("UpdateEntry"))

	f.failOn = nil
	_, err = o.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, f.count("CreateAttachment"))

	got, _ := o.Store().State().Entry("10")
	assert.False(t, got.HasStagedAttachments())
	assert.False(t, got.Dirty)
}
