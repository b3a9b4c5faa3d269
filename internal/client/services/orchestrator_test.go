package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
)

func serverError(status int) error {
	return &api.Error{Status: status, StatusText: http.StatusText(status)}
}

func TestMutate_ConnectivityFailure_ConfirmedSwitchesOffline(t *testing.T) {
	f := newFakeAPI()
	f.failOn = func(method string, _ models.ID) error {
		if method == "SetAwardTags" {
			return errDown
		}
		return nil
	}
	asked := 0
	prompt := PromptFunc(func(_ context.Context, action string) bool {
		asked++
		assert.Equal(t, "update tags", action)
		return true
	})
	o := newTestOrchestrator(t, f, seed(false, []models.Award{{ID: "1"}}, nil, nil), prompt)

	err := o.SetAwardTags(context.Background(), "1", []string{" b", "a", "b", ""})
	require.NoError(t, err)

	st := o.Store().State()
	assert.Equal(t, 1, asked)
	assert.True(t, st.IsOffline)
	a, _ := st.Award("1")
	assert.Equal(t, []string{"a", "b"}, a.Tags)
	assert.True(t, a.Dirty)
	assert.Equal(t, 1, st.ToSync)
}

func TestMutate_ConnectivityFailure_DeclinedLeavesStateAlone(t *testing.T) {
	f := newFakeAPI()
	f.failOn = func(string, models.ID) error { return errDown }
	o := newTestOrchestrator(t, f, seed(false, []models.Award{{ID: "1", Tags: []string{"x"}}}, nil, nil), NeverOffline)

	err := o.SetAwardTags(context.Background(), "1", []string{"y"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOfflineDeclined)
	assert.ErrorIs(t, err, api.ErrUnavailable)

	st := o.Store().State()
	assert.False(t, st.IsOffline)
	a, _ := st.Award("1")
	assert.Equal(t, []string{"x"}, a.Tags)
	assert.Zero(t, st.ToSync)
}

func TestMutate_ServerErrorIsNotOffered(t *testing.T) {
	f := newFakeAPI()
	f.failOn = func(string, models.ID) error { return serverError(http.StatusInternalServerError) }
	prompt := PromptFunc(func(context.Context, string) bool {
		t.Fatal("prompt must not be shown for server errors")
		return false
	})
	o := newTestOrchestrator(t, f, seed(false, []models.Award{{ID: "1"}}, nil, nil), prompt)

	err := o.DeleteAward(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, api.KindServer, api.KindOf(err))
	a, _ := o.Store().State().Award("1")
	assert.False(t, a.IsDeleted)
}

func TestMutate_OfflineSkipsServer(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, []models.Award{{ID: "1"}}, nil, nil), nil)

	require.NoError(t, o.DeleteAward(context.Background(), "1"))
	assert.Empty(t, f.Calls())

	st := o.Store().State()
	assert.Empty(t, st.VisibleAwards())
	a, _ := st.Award("1")
	assert.True(t, a.IsDeleted)
	assert.True(t, a.Dirty)
}

func TestOnlineOnly_RejectsOfflineAndUnreachable(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, []models.Award{{ID: "1"}}, nil, nil), AlwaysOffline)

	_, err := o.VerifyAward(context.Background(), "1")
	assert.ErrorIs(t, err, common.ErrOnlineOnly)
	assert.Empty(t, f.Calls())

	o.SetOffline(false)
	f.failOn = func(string, models.ID) error { return errDown }
	_, err = o.ClaimBadge(context.Background(), "CODE1")
	assert.ErrorIs(t, err, common.ErrOnlineOnly)
	assert.ErrorIs(t, err, api.ErrUnavailable)
	assert.False(t, o.IsOffline())
}

func TestClaimBadge_ValidatesCode(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(false, nil, nil, nil), nil)

	_, err := o.ClaimBadge(context.Background(), "   ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	a, err := o.ClaimBadge(context.Background(), " ABC123 ")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", a.BadgeName)
	_, ok := o.Store().State().Award(a.ID)
	assert.True(t, ok)
}

func TestExportAward_ForbiddenReturnsAuthURL(t *testing.T) {
	f := newFakeAPI()
	f.failOn = func(method string, _ models.ID) error {
		return &api.Error{Status: http.StatusForbidden, Kind: api.KindUnauthorized}
	}
	o := newTestOrchestrator(t, f, seed(false, []models.Award{{ID: "1"}}, nil, nil), nil)

	url, err := o.ExportAward(context.Background(), "1", api.ExportDropbox)
	require.NoError(t, err)
	assert.Equal(t, "https://backpack.test/export/dropbox/authorize/", url)

	_, err = o.ExportAward(context.Background(), "1", "floppy")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCreateEntry_OnlineUploadsAttachmentsAndTags(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(false, nil, nil, nil), nil)

	in := models.Entry{
		Tags: []string{"b", "a"},
		Sections: []models.Section{{
			Title:       "Reflection",
			Attachments: []models.Attachment{{Label: "site", Hyperlink: "https://example.org"}},
		}},
	}
	out, err := o.CreateEntry(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, out.ID.IsLocal())
	assert.True(t, out.IsSynced())
	require.Len(t, out.Sections[0].Attachments, 1)
	assert.False(t, out.Sections[0].Attachments[0].IsStaged())
	assert.Equal(t, []string{"a", "b"}, out.Tags)
	assert.Equal(t, 1, f.count("CreateAttachment"))

	st := o.Store().State()
	assert.Equal(t, []models.ID{out.ID}, st.Entries.Items)
	assert.Zero(t, st.ToSync)
}

func TestCreateEntry_RequiresTitle(t *testing.T) {
	o := newTestOrchestrator(t, newFakeAPI(), seed(false, nil, nil, nil), nil)

	_, err := o.CreateEntry(context.Background(), models.Entry{Sections: []models.Section{{Title: " "}}})
	assert.ErrorIs(t, err, ErrTitleRequired)
	_, err = o.CreateEntry(context.Background(), models.Entry{})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestPledge_RulesAndOfflineLink(t *testing.T) {
	issued := "2025-05-01"
	awards := []models.Award{{ID: "1"}, {ID: "2", IssuedDate: &issued}}
	o := newTestOrchestrator(t, newFakeAPI(), seed(true, awards, nil, nil), nil)
	ctx := context.Background()
	entry := models.Entry{Sections: []models.Section{{Title: "I will"}}}

	_, err := o.Pledge(ctx, "2", entry)
	assert.ErrorIs(t, err, ErrNotPending)

	e, err := o.Pledge(ctx, "1", entry)
	require.NoError(t, err)
	assert.Equal(t, models.ID("local-1"), e.ID)
	assert.Equal(t, "2026-03-01T12:00:00Z", e.CreatedDT)

	a, _ := o.Store().State().Award("1")
	assert.Equal(t, e.ID, a.Entry)

	_, err = o.Pledge(ctx, "1", entry)
	assert.ErrorIs(t, err, ErrPledgeExists)
}

func TestAddAttachment_Limits(t *testing.T) {
	e := syncedEntry("10", "11", "Doc")
	ctx := context.Background()

	t.Run("offline limit", func(t *testing.T) {
		o := newTestOrchestrator(t, newFakeAPI(), seed(true, nil, []models.Entry{e}, nil), nil)
		_, err := o.AddAttachment(ctx, "10", 0, AttachmentInput{FileName: "big.bin", Data: make([]byte, common.AttachmentOfflineByteLimit+1)})
		assert.ErrorIs(t, err, common.ErrAttachmentTooBig)
	})

	t.Run("exactly one source", func(t *testing.T) {
		o := newTestOrchestrator(t, newFakeAPI(), seed(true, nil, []models.Entry{e}, nil), nil)
		_, err := o.AddAttachment(ctx, "10", 0, AttachmentInput{Hyperlink: "https://x", Award: "1"})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		_, err = o.AddAttachment(ctx, "10", 0, AttachmentInput{})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		_, err = o.AddAttachment(ctx, "10", 3, AttachmentInput{Hyperlink: "https://x"})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("offline stages data uri", func(t *testing.T) {
		o := newTestOrchestrator(t, newFakeAPI(), seed(true, nil, []models.Entry{e}, nil), nil)
		out, err := o.AddAttachment(ctx, "10", 0, AttachmentInput{FileName: "note.txt", Data: []byte("hello")})
		require.NoError(t, err)
		a := out.Sections[0].Attachments[0]
		assert.True(t, a.IsStaged())
		assert.Equal(t, "note.txt", a.Label)
		assert.Equal(t, "data:text/plain; charset=utf-8;base64,aGVsbG8=", a.DataURI)
		assert.True(t, out.Dirty)
	})
}

func TestRemoveAttachment_Online(t *testing.T) {
	e := syncedEntry("10", "11", "Doc")
	e.Sections[0].Attachments = []models.Attachment{{ID: "12", Label: "a"}, {ID: "13", Label: "b"}}
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(false, nil, []models.Entry{e}, nil), nil)

	require.NoError(t, o.RemoveAttachment(context.Background(), "10", 0, 0))
	assert.Equal(t, []string{"RemoveAttachments 12"}, f.Calls())

	got, _ := o.Store().State().Entry("10")
	require.Len(t, got.Sections[0].Attachments, 1)
	assert.Equal(t, models.ID("13"), got.Sections[0].Attachments[0].ID)
}

func TestCopyEntry_OfflineCopiesLocally(t *testing.T) {
	e := syncedEntry("10", "11", "Doc")
	e.Sections[0].Attachments = []models.Attachment{{ID: "12", Label: "f", File: "https://files/f.pdf"}}
	o := newTestOrchestrator(t, newFakeAPI(), seed(true, nil, []models.Entry{e}, nil), nil)

	out, err := o.CopyEntry(context.Background(), "10")
	require.NoError(t, err)
	assert.True(t, out.ID.IsLocal())
	assert.Equal(t, "Doc (Copy)", out.Sections[0].Title)
	assert.Equal(t, "https://files/f.pdf", out.Sections[0].Attachments[0].Hyperlink)
	assert.True(t, out.Sections[0].Attachments[0].IsStaged())

	st := o.Store().State()
	assert.Equal(t, []models.ID{out.ID, "10"}, st.Entries.Items)
	assert.Equal(t, 1, st.ToSync)
}

func TestDeleteEntry_UnsyncedNeverHitsServer(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(true, nil, nil, nil), nil)
	ctx := context.Background()

	e, err := o.CreateEntry(ctx, models.Entry{Sections: []models.Section{{Title: "Draft"}}})
	require.NoError(t, err)
	o.SetOffline(false)

	require.NoError(t, o.DeleteEntry(ctx, e.ID))
	assert.Zero(t, f.count("DeleteEntry"))

	got, _ := o.Store().State().Entry(e.ID)
	assert.True(t, got.IsDeleted)
}

func TestShareAward_Rules(t *testing.T) {
	verified := "2026-01-01T00:00:00Z"
	expired := "2020-01-01"
	awards := []models.Award{
		{ID: "1"},
		{ID: "2", Revoked: true},
		{ID: "3", ExpirationDate: &expired},
		{ID: "4", VerifiedDT: &verified},
	}
	ctx := context.Background()

	t.Run("revoked and expired are refused", func(t *testing.T) {
		f := newFakeAPI()
		o := newTestOrchestrator(t, f, seed(false, awards, nil, nil), nil)
		_, err := o.ShareAward(ctx, "2", models.ShareLink)
		assert.ErrorIs(t, err, ErrAwardRevoked)
		_, err = o.ShareAward(ctx, "3", models.ShareLink)
		assert.ErrorIs(t, err, ErrAwardExpired)
		_, err = o.ShareAward(ctx, "1", "type_fax")
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		assert.Empty(t, f.Calls())
	})

	t.Run("revoked on verification", func(t *testing.T) {
		f := newFakeAPI()
		f.status = models.AwardStatus{Revoked: true, RevokedReason: "fraud"}
		o := newTestOrchestrator(t, f, seed(false, awards, nil, nil), nil)
		_, err := o.ShareAward(ctx, "1", models.ShareLink)
		assert.ErrorIs(t, err, ErrAwardRevoked)
		assert.Zero(t, f.count("CreateShare"))
		a, _ := o.Store().State().Award("1")
		assert.True(t, a.Revoked)
	})

	t.Run("verification failure", func(t *testing.T) {
		f := newFakeAPI()
		f.failOn = func(method string, _ models.ID) error {
			if method == "VerifyAward" {
				return serverError(http.StatusBadGateway)
			}
			return nil
		}
		o := newTestOrchestrator(t, f, seed(false, awards, nil, nil), nil)

		_, err := o.ShareAward(ctx, "1", models.ShareLink)
		assert.ErrorIs(t, err, ErrUnverified)

		share, err := o.ShareAward(ctx, "4", models.ShareTwitter)
		require.NoError(t, err)
		assert.Equal(t, models.ID("4"), share.ObjectID)

		st := o.Store().State()
		a, _ := st.Award("4")
		assert.Equal(t, []models.ID{share.ID}, a.Shares)
		assert.Equal(t, []models.ID{share.ID}, st.Shares.Items)
	})
}

func TestShareEntry_RequiresSyncedEntry(t *testing.T) {
	local := models.Entry{ID: "local-x", Sections: []models.Section{{Title: "t"}}, Dirty: true}
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(false, nil, []models.Entry{local, syncedEntry("10", "11", "s")}, nil), nil)

	_, err := o.ShareEntry(context.Background(), "local-x", models.ShareLink)
	assert.ErrorIs(t, err, common.ErrOnlineOnly)

	share, err := o.ShareEntry(context.Background(), "10", models.ShareEmbed)
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeEntry, share.ContentType)

	require.NoError(t, o.DeleteShare(context.Background(), share.ID))
	got, _ := o.Store().State().Share(share.ID)
	assert.True(t, got.IsDeleted)

	assert.True(t, errors.Is(o.DeleteShare(context.Background(), "999"), common.ErrorNotFound))
}

func TestAccount_Validation(t *testing.T) {
	f := newFakeAPI()
	o := newTestOrchestrator(t, f, seed(false, nil, nil, nil), nil)
	ctx := context.Background()

	_, err := o.AddEmail(ctx, "not-an-email")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	email, err := o.AddEmail(ctx, " me@example.org ")
	require.NoError(t, err)
	assert.Equal(t, "me@example.org", email.Email)

	_, err = o.UpdateProfile(ctx, ProfileUpdate{PhoneNumber: ptr("12345")})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	user, err := o.UpdateProfile(ctx, ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, o.Store().State().User, user)
	assert.Equal(t, []string{"AddEmail me@example.org"}, f.Calls())
}

func TestSetOffline_Toggles(t *testing.T) {
	o := newTestOrchestrator(t, newFakeAPI(), store.NewState(), nil)
	assert.False(t, o.IsOffline())
	o.SetOffline(true)
	assert.True(t, o.IsOffline())
}
