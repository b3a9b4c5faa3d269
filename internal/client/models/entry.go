package models

import "slices"

// Entry is an ePortfolio write-up. An Entry with Award set is a pledge.
type Entry struct {
	ID        ID        `json:"id"`
	CreatedDT string    `json:"created_dt,omitempty"`
	Sections  []Section `json:"sections"`
	Tags      []string  `json:"tags"`
	Shares    []ID      `json:"shares"`
	Award     ID        `json:"award,omitempty"`
	IsDeleted bool      `json:"is_deleted"`
	Dirty     bool      `json:"dirty,omitempty"`
}

// Section is one titled block of an Entry.
type Section struct {
	ID          ID           `json:"id,omitempty"`
	Title       string       `json:"title"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
	UpdatedDT   string       `json:"updated_dt,omitempty"`
}

// Attachment is a file, hyperlink or embedded badge inside a Section. An
// attachment without ID is staged locally and carries its bytes in DataURI.
type Attachment struct {
	ID        ID     `json:"id,omitempty"`
	Section   ID     `json:"section,omitempty"`
	Label     string `json:"label"`
	Award     ID     `json:"award,omitempty"`
	File      string `json:"file,omitempty"`
	Hyperlink string `json:"hyperlink,omitempty"`
	DataURI   string `json:"data_uri,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty"`
	CreatedDT string `json:"created_dt,omitempty"`
}

// IsStaged reports whether the attachment still has to be uploaded.
func (a Attachment) IsStaged() bool { return a.ID.IsZero() }

// IsSynced reports whether the server has ever stored this entry, judged by
// its last section carrying a server id.
func (e Entry) IsSynced() bool {
	if len(e.Sections) == 0 {
		return false
	}
	return !e.Sections[len(e.Sections)-1].ID.IsZero()
}

// HasStagedAttachments reports whether any attachment awaits upload.
func (e Entry) HasStagedAttachments() bool {
	for _, s := range e.Sections {
		for _, a := range s.Attachments {
			if a.IsStaged() {
				return true
			}
		}
	}
	return false
}

// Shell returns a copy of e with attachments stripped, as posted when the
// entry is first created on the server.
func (e Entry) Shell() Entry {
	out := e.Clone()
	for i := range out.Sections {
		out.Sections[i].Attachments = []Attachment{}
	}
	return out
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	e.Tags = slices.Clone(e.Tags)
	e.Shares = slices.Clone(e.Shares)
	sections := make([]Section, len(e.Sections))
	for i, s := range e.Sections {
		s.Attachments = slices.Clone(s.Attachments)
		sections[i] = s
	}
	e.Sections = sections
	return e
}
