package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/backpack/internal/client/models"
)

func TestCreateEntry_PostsShellWithoutIDs(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/entry/", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(9), body["award"])
		sections := body["sections"].([]any)
		require.Len(t, sections, 1)
		assert.NotContains(t, sections[0], "id")
		assert.NotContains(t, sections[0], "attachments")

		_, _ = io.WriteString(w, `{"id": 100, "award": 9, "sections": [{"id": 501, "title": "t", "text": "x", "attachments": []}]}`)
	})
	c, _ := newTestClient(t, h, &memTokens{token: "tok"})

	local := models.Entry{
		ID:       "0a5d7e0c-1111-4222-8333-444455556666",
		Award:    "9",
		Sections: []models.Section{{ID: "ignored", Title: "t", Text: "x", Attachments: []models.Attachment{{Label: "l"}}}},
	}
	got, err := c.CreateEntry(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, models.ID("100"), got.ID)
	assert.Equal(t, models.ID("501"), got.Sections[0].ID)
}

func TestUpdateEntry_PatchesWithSectionIDs(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/entry/100/", r.URL.Path)

		var body struct {
			Sections []map[string]any `json:"sections"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(501), body.Sections[0]["id"])
		assert.Equal(t, []any{float64(7)}, body.Sections[0]["attachments"])
		_, _ = io.WriteString(w, `{"id": 100}`)
	})
	c, _ := newTestClient(t, h, &memTokens{token: "tok"})

	_, err := c.UpdateEntry(context.Background(), models.Entry{ID: "100", Sections: []models.Section{{
		ID: "501", Title: "t",
		Attachments: []models.Attachment{{ID: "7", Label: "kept"}, {Label: "staged", DataURI: "data:,x"}},
	}}})
	require.NoError(t, err)
}

func TestCreateAttachment_DataURIAsJSON(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(501), body["section"])
		assert.Equal(t, "data:text/plain;base64,aGk=", body["data_uri"])
		assert.NotContains(t, body, "award")
		_, _ = io.WriteString(w, `{"id": 77, "section": 501, "label": "hi.txt", "file": "https://files/hi.txt"}`)
	})
	c, _ := newTestClient(t, h, &memTokens{token: "tok"})

	att, err := c.CreateAttachment(context.Background(), NewAttachment{Section: "501", Label: "hi.txt", DataURI: "data:text/plain;base64,aGk="})
	require.NoError(t, err)
	assert.Equal(t, models.ID("77"), att.ID)
	assert.False(t, att.IsStaged())
}

func TestCreateAttachment_FileAsMultipart(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "501", r.FormValue("section"))
		assert.Equal(t, "cv.pdf", r.FormValue("label"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cv.pdf", hdr.Filename)
		assert.Equal(t, "%PDF", string(data))

		_, _ = io.WriteString(w, `{"id": 78}`)
	})
	c, _ := newTestClient(t, h, &memTokens{token: "tok"})

	_, err := c.CreateAttachment(context.Background(), NewAttachment{Section: "501", Label: "cv.pdf", FileName: "cv.pdf", File: []byte("%PDF")})
	require.NoError(t, err)
}

func TestUploadAward_GoneIsDistinct(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/award/upload/", r.URL.Path)
		w.WriteHeader(http.StatusGone)
		_, _ = io.WriteString(w, `"Assertion revoked: issuer request"`)
	})
	c, _ := newTestClient(t, h, &memTokens{token: "tok"})

	_, err := c.UploadAward(context.Background(), "badge.png", []byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, ErrGone)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Assertion revoked: issuer request", apiErr.StatusText)
}

func TestClaimBadgeAndEvent(t *testing.T) {
	h := http.NewServeMux()
	h.HandleFunc("/api/me/claim_badge/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ABC", body["claim_code"])
		_, _ = io.WriteString(w, `{"id": 12, "badge_name": "Claimed"}`)
	})
	h.HandleFunc("/api/me/claim_event/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	c, _ := newTestClient(t, h, &memTokens{token: "tok"})

	a, err := c.ClaimBadge(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, "Claimed", a.BadgeName)

	ev, err := c.ClaimEvent(context.Background())
	require.NoError(t, err)
	assert.True(t, ev.ID.IsZero())
}

func TestShareAndEmailEndpoints(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/share/":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "award", body["content_type"])
			assert.Equal(t, "type_link", body["type"])
			_, _ = io.WriteString(w, `{"id": 4, "content_type": "award", "object_id": 5, "type": "type_link", "url": "https://s/4"}`)
		case "/api/useremail/":
			_, _ = io.WriteString(w, `{"id": 8, "email": "a@b.c"}`)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	c, _ := newTestClient(t, h, &memTokens{token: "tok"})
	ctx := context.Background()

	s, err := c.CreateShare(ctx, models.ContentTypeAward, "5", models.ShareLink)
	require.NoError(t, err)
	assert.Equal(t, models.ID("5"), s.ObjectID)

	require.NoError(t, c.DeleteShare(ctx, "4"))

	e, err := c.AddEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, models.ID("8"), e.ID)

	_, err = c.UpdateEmail(ctx, "8", map[string]any{"is_primary": true})
	require.NoError(t, err)
	require.NoError(t, c.SendVerification(ctx, "8"))
	require.NoError(t, c.DeleteEmail(ctx, "8"))
	require.NoError(t, c.RemoveAttachments(ctx, []models.ID{"1", "2"}))
	require.NoError(t, c.ExportAward(ctx, "5", ExportDropbox))
	_, err = c.CopyEntry(ctx, "100")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /api/share/",
		"DELETE /api/share/4/",
		"POST /api/useremail/",
		"PATCH /api/useremail/8/",
		"GET /api/useremail/8/send_verification/",
		"DELETE /api/useremail/8/",
		"POST /api/attachment/remove/",
		"GET /api/award/5/export_dropbox/",
		"POST /api/entry/100/copy/",
	}, paths)
}
