package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/backpack/internal/client/models"
)

// ExportService names a cloud drive an award can be exported to.
type ExportService string

const (
	ExportDropbox     ExportService = "dropbox"
	ExportGoogleDrive ExportService = "googledrive"
	ExportOneDrive    ExportService = "onedrive"
)

var exportAuthPaths = map[ExportService]string{
	ExportDropbox:     "dropboxAuthStart/",
	ExportGoogleDrive: "googleDriveAuthStart/",
	ExportOneDrive:    "onedriveAuthStart/",
}

// Valid reports whether s is a known export service.
func (s ExportService) Valid() bool {
	_, ok := exportAuthPaths[s]
	return ok
}

// NewAttachment describes an attachment to create. Exactly one of Award,
// Hyperlink, DataURI or File is expected. File is sent as multipart, the
// others as JSON.
type NewAttachment struct {
	Section   models.ID
	Label     string
	Award     models.ID
	Hyperlink string
	DataURI   string
	FileName  string
	File      []byte
}

type attachmentPayload struct {
	Section   models.ID `json:"section"`
	Label     string    `json:"label"`
	Award     models.ID `json:"award,omitempty"`
	Hyperlink string    `json:"hyperlink,omitempty"`
	DataURI   string    `json:"data_uri,omitempty"`
}

type sectionPayload struct {
	ID          models.ID   `json:"id,omitempty"`
	Title       string      `json:"title"`
	Text        string      `json:"text"`
	Attachments []models.ID `json:"attachments,omitempty"`
}

type entryPayload struct {
	Sections []sectionPayload `json:"sections"`
	Award    models.ID        `json:"award,omitempty"`
}

func newEntryPayload(e models.Entry, withIDs bool) entryPayload {
	p := entryPayload{Sections: make([]sectionPayload, 0, len(e.Sections)), Award: e.Award}
	for _, s := range e.Sections {
		sp := sectionPayload{Title: s.Title, Text: s.Text}
		if withIDs {
			sp.ID = s.ID
			for _, a := range s.Attachments {
				if !a.IsStaged() {
					sp.Attachments = append(sp.Attachments, a.ID)
				}
			}
		}
		p.Sections = append(p.Sections, sp)
	}
	return p
}

func (c *HTTPClient) FetchAccount(ctx context.Context) (models.UserProfile, error) {
	var u models.UserProfile
	return u, c.Get(ctx, "me/account/", &u)
}

// UpdateAccount posts a partial profile update.
func (c *HTTPClient) UpdateAccount(ctx context.Context, fields map[string]any) (models.UserProfile, error) {
	var u models.UserProfile
	return u, c.PostJSON(ctx, "me/account/", fields, &u)
}

func (c *HTTPClient) FetchTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	return tags, c.Get(ctx, "tag/", &tags)
}

func (c *HTTPClient) FetchAwards(ctx context.Context) ([]models.Award, error) {
	var awards []models.Award
	return awards, c.Get(ctx, "award/", &awards)
}

func (c *HTTPClient) FetchEntries(ctx context.Context) ([]models.Entry, error) {
	var entries []models.Entry
	return entries, c.Get(ctx, "entry/", &entries)
}

func (c *HTTPClient) FetchShares(ctx context.Context) ([]models.Share, error) {
	var shares []models.Share
	return shares, c.Get(ctx, "share/", &shares)
}

func (c *HTTPClient) SetAwardTags(ctx context.Context, id models.ID, tags []string) (models.Award, error) {
	var a models.Award
	return a, c.PostJSON(ctx, fmt.Sprintf("award/%s/tags/", id), nonNil(tags), &a)
}

func (c *HTTPClient) DeleteAward(ctx context.Context, id models.ID) error {
	return c.Delete(ctx, fmt.Sprintf("award/%s/", id), nil)
}

func (c *HTTPClient) VerifyAward(ctx context.Context, id models.ID) (models.AwardStatus, error) {
	var s models.AwardStatus
	return s, c.Get(ctx, fmt.Sprintf("award/%s/verify/", id), &s)
}

// UploadAward sends a baked badge image or assertion file. A revoked
// assertion fails with ErrGone.
func (c *HTTPClient) UploadAward(ctx context.Context, fileName string, data []byte) (models.Award, error) {
	var a models.Award
	form := Form{Files: []FormFile{{Field: "file", Name: fileName, Data: data}}}
	return a, c.PostForm(ctx, "award/upload/", form, &a)
}

// ExportAward pushes the baked badge to service. The server answers 403
// when the user has not yet authorised the service; see ExportAuthURL.
func (c *HTTPClient) ExportAward(ctx context.Context, id models.ID, service ExportService) error {
	return c.Get(ctx, fmt.Sprintf("award/%s/export_%s/", id, service), nil)
}

func (c *HTTPClient) ClaimBadge(ctx context.Context, code string) (models.Award, error) {
	var a models.Award
	return a, c.PostJSON(ctx, "me/claim_badge/", map[string]string{"claim_code": code}, &a)
}

// ClaimEvent claims the badge of the event stored on the account. The
// returned award has a zero ID when there was nothing to claim.
func (c *HTTPClient) ClaimEvent(ctx context.Context) (models.Award, error) {
	var a models.Award
	return a, c.PostJSON(ctx, "me/claim_event/", struct{}{}, &a)
}

// CreateEntry posts the entry shell. Attachments are uploaded separately.
func (c *HTTPClient) CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	var out models.Entry
	return out, c.PostJSON(ctx, "entry/", newEntryPayload(e, false), &out)
}

// UpdateEntry patches the sections of an existing entry. Only attachments
// the server already knows are referenced.
func (c *HTTPClient) UpdateEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	var out models.Entry
	return out, c.Patch(ctx, fmt.Sprintf("entry/%s/", e.ID), newEntryPayload(e, true), &out)
}

func (c *HTTPClient) SetEntryTags(ctx context.Context, id models.ID, tags []string) (models.Entry, error) {
	var out models.Entry
	return out, c.PostJSON(ctx, fmt.Sprintf("entry/%s/tags/", id), nonNil(tags), &out)
}

func (c *HTTPClient) DeleteEntry(ctx context.Context, id models.ID) error {
	return c.Delete(ctx, fmt.Sprintf("entry/%s/", id), nil)
}

func (c *HTTPClient) CopyEntry(ctx context.Context, id models.ID) (models.Entry, error) {
	var out models.Entry
	return out, c.PostJSON(ctx, fmt.Sprintf("entry/%s/copy/", id), struct{}{}, &out)
}

func (c *HTTPClient) CreateAttachment(ctx context.Context, a NewAttachment) (models.Attachment, error) {
	var out models.Attachment

	if a.File != nil {
		form := Form{
			Fields: map[string]string{"section": a.Section.String(), "label": a.Label},
			Files:  []FormFile{{Field: "file", Name: a.FileName, Data: a.File}},
		}
		return out, c.PostForm(ctx, "attachment/", form, &out)
	}

	payload := attachmentPayload{
		Section:   a.Section,
		Label:     a.Label,
		Award:     a.Award,
		Hyperlink: a.Hyperlink,
		DataURI:   a.DataURI,
	}
	return out, c.PostJSON(ctx, "attachment/", payload, &out)
}

func (c *HTTPClient) RemoveAttachments(ctx context.Context, ids []models.ID) error {
	return c.PostJSON(ctx, "attachment/remove/", ids, nil)
}

func (c *HTTPClient) CreateShare(ctx context.Context, contentType string, objectID models.ID, shareType models.ShareType) (models.Share, error) {
	var s models.Share
	payload := map[string]any{"content_type": contentType, "object_id": objectID, "type": shareType}
	return s, c.PostJSON(ctx, "share/", payload, &s)
}

func (c *HTTPClient) DeleteShare(ctx context.Context, id models.ID) error {
	return c.Delete(ctx, fmt.Sprintf("share/%s/", id), nil)
}

func (c *HTTPClient) AddEmail(ctx context.Context, email string) (models.UserEmail, error) {
	var e models.UserEmail
	return e, c.PostJSON(ctx, "useremail/", map[string]string{"email": email}, &e)
}

// UpdateEmail patches is_primary or is_archived.
func (c *HTTPClient) UpdateEmail(ctx context.Context, id models.ID, fields map[string]any) (models.UserEmail, error) {
	var e models.UserEmail
	return e, c.Patch(ctx, fmt.Sprintf("useremail/%s/", id), fields, &e)
}

func (c *HTTPClient) DeleteEmail(ctx context.Context, id models.ID) error {
	return c.Delete(ctx, fmt.Sprintf("useremail/%s/", id), nil)
}

func (c *HTTPClient) SendVerification(ctx context.Context, id models.ID) error {
	return c.Get(ctx, fmt.Sprintf("useremail/%s/send_verification/", id), nil)
}

// RevokeToken asks the OAuth server to revoke token. Only transport failures
// are reported; the status of the answer is not significant.
func (c *HTTPClient) RevokeToken(ctx context.Context, clientID, token string) error {
	q := url.Values{"client_id": {clientID}, "token": {token}}
	req := request{method: http.MethodPost, url: c.serverRoot + "o/revoke_token/?" + q.Encode()}

	status, _, err := c.send(ctx, req, "")
	if err != nil {
		return err
	}
	c.log.Debug(ctx, "token revoked", "status", status)
	return nil
}

// AuthorizeURL is the implicit-grant login URL.
func (c *HTTPClient) AuthorizeURL(clientID, redirectURI, state string) string {
	q := url.Values{
		"response_type": {"token"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"state":         {state},
	}
	return c.serverRoot + "o/authorize/?" + q.Encode()
}

func (c *HTTPClient) LogoutURL() string {
	return c.serverRoot + "logout/"
}

// ExportAuthURL is where the user authorises an export service.
func (c *HTTPClient) ExportAuthURL(service ExportService) string {
	return c.serverRoot + exportAuthPaths[service]
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
