package models

// ShareType enumerates the publication channels of a Share.
type ShareType string

const (
	ShareLink       ShareType = "type_link"
	ShareEmbed      ShareType = "type_embed"
	ShareFacebook   ShareType = "type_facebook"
	ShareTwitter    ShareType = "type_twitter"
	SharePinterest  ShareType = "type_pinterest"
	ShareGooglePlus ShareType = "type_googleplus"
	ShareLinkedIn   ShareType = "type_linkedin"
)

var shareTypeNames = map[ShareType]string{
	ShareLink:       "Public Link",
	ShareEmbed:      "HTML Embed",
	ShareFacebook:   "Facebook",
	ShareTwitter:    "Twitter",
	SharePinterest:  "Pinterest",
	ShareGooglePlus: "Google Plus",
	ShareLinkedIn:   "LinkedIn",
}

// ShareTypes lists every share type in display order.
var ShareTypes = []ShareType{
	ShareLink, ShareEmbed, ShareFacebook, ShareTwitter, SharePinterest, ShareGooglePlus, ShareLinkedIn,
}

// Valid reports whether t is a known share type.
func (t ShareType) Valid() bool {
	_, ok := shareTypeNames[t]
	return ok
}

// Name returns the display name of t.
func (t ShareType) Name() string {
	return shareTypeNames[t]
}

// Content types a Share may point at.
const (
	ContentTypeAward = "award"
	ContentTypeEntry = "entry"
)

// Share is a published link, embed or social post of an Award or Entry.
type Share struct {
	ID          ID        `json:"id"`
	CreatedDT   string    `json:"created_dt,omitempty"`
	ContentType string    `json:"content_type"`
	ObjectID    ID        `json:"object_id"`
	Views       int       `json:"views"`
	URL         string    `json:"url"`
	Type        ShareType `json:"type"`
	IsDeleted   bool      `json:"is_deleted"`
}
