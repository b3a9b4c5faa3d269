package api

import (
	"context"

	"github.com/dmitrijs2005/backpack/internal/client/models"
)

// Client is the REST surface consumed by the client services.
type Client interface {
	Ping(ctx context.Context) error

	FetchAccount(ctx context.Context) (models.UserProfile, error)
	UpdateAccount(ctx context.Context, fields map[string]any) (models.UserProfile, error)
	FetchTags(ctx context.Context) ([]models.Tag, error)
	FetchAwards(ctx context.Context) ([]models.Award, error)
	FetchEntries(ctx context.Context) ([]models.Entry, error)
	FetchShares(ctx context.Context) ([]models.Share, error)

	SetAwardTags(ctx context.Context, id models.ID, tags []string) (models.Award, error)
	DeleteAward(ctx context.Context, id models.ID) error
	VerifyAward(ctx context.Context, id models.ID) (models.AwardStatus, error)
	UploadAward(ctx context.Context, fileName string, data []byte) (models.Award, error)
	ExportAward(ctx context.Context, id models.ID, service ExportService) error
	ClaimBadge(ctx context.Context, code string) (models.Award, error)
	ClaimEvent(ctx context.Context) (models.Award, error)

	CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error)
	UpdateEntry(ctx context.Context, e models.Entry) (models.Entry, error)
	SetEntryTags(ctx context.Context, id models.ID, tags []string) (models.Entry, error)
	DeleteEntry(ctx context.Context, id models.ID) error
	CopyEntry(ctx context.Context, id models.ID) (models.Entry, error)

	CreateAttachment(ctx context.Context, a NewAttachment) (models.Attachment, error)
	RemoveAttachments(ctx context.Context, ids []models.ID) error

	CreateShare(ctx context.Context, contentType string, objectID models.ID, shareType models.ShareType) (models.Share, error)
	DeleteShare(ctx context.Context, id models.ID) error

	AddEmail(ctx context.Context, email string) (models.UserEmail, error)
	UpdateEmail(ctx context.Context, id models.ID, fields map[string]any) (models.UserEmail, error)
	DeleteEmail(ctx context.Context, id models.ID) error
	SendVerification(ctx context.Context, id models.ID) error

	RevokeToken(ctx context.Context, clientID, token string) error
	AuthorizeURL(clientID, redirectURI, state string) string
	LogoutURL() string
	ExportAuthURL(service ExportService) string
}

var _ Client = (*HTTPClient)(nil)
