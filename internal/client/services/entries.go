package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// AttachmentInput describes an attachment to add to an entry section.
// Set exactly one of Data, Hyperlink or Award.
type AttachmentInput struct {
	Label     string
	FileName  string
	Data      []byte
	Hyperlink string
	Award     models.ID
}

func (in AttachmentInput) validate(offline bool) error {
	set := 0
	for _, ok := range []bool{in.Data != nil, in.Hyperlink != "", !in.Award.IsZero()} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("attachment needs exactly one of file, hyperlink or badge: %w", common.ErrInvalidInput)
	}

	limit := common.AttachmentOnlineByteLimit
	if offline {
		limit = common.AttachmentOfflineByteLimit
	}
	if len(in.Data) > limit {
		return fmt.Errorf("%s is %d bytes, limit is %d: %w", in.FileName, len(in.Data), limit, common.ErrAttachmentTooBig)
	}
	return nil
}

// staged converts the input to an attachment that is only known locally.
func (in AttachmentInput) staged() models.Attachment {
	a := models.Attachment{Label: in.Label, Hyperlink: in.Hyperlink, Award: in.Award}
	if in.Data != nil {
		a.DataURI = dataURI(in.Data)
		a.FileSize = int64(len(in.Data))
	}
	if a.Label == "" {
		a.Label = in.FileName
	}
	return a
}

func dataURI(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// decodeDataURI returns the payload of a base64 data URI.
func decodeDataURI(uri string) ([]byte, bool) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	return b, err == nil
}

func (o *Orchestrator) entry(id models.ID) (models.Entry, error) {
	e, ok := o.store.State().Entry(id)
	if !ok || e.IsDeleted {
		return models.Entry{}, fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	return e, nil
}

func validateEntry(e models.Entry) error {
	if len(e.Sections) == 0 || strings.TrimSpace(e.Sections[0].Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// CreateEntry saves a new entry. Attachments without an id are uploaded
// after the entry exists. Offline, the entry gets a local id and waits for
// reconciliation.
func (o *Orchestrator) CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	if err := validateEntry(e); err != nil {
		return models.Entry{}, err
	}
	e = e.Clone()
	e.Tags = normalizeTags(e.Tags)
	if e.Shares == nil {
		e.Shares = []models.ID{}
	}
	for i := range e.Sections {
		e.Sections[i].ID = ""
		if e.Sections[i].Attachments == nil {
			e.Sections[i].Attachments = []models.Attachment{}
		}
	}

	var saved models.Entry
	err := o.mutate(ctx, "save entry",
		func(ctx context.Context) error {
			o.syncMu.Lock()
			defer o.syncMu.Unlock()
			out, err := o.pushNewEntry(ctx, e)
			saved = out
			return err
		},
		func() error {
			if !saved.ID.IsZero() {
				// The server already has the entry; the rest stays queued.
				saved, _ = o.store.State().Entry(saved.ID)
				return nil
			}
			local := e.Clone()
			local.ID = o.newID()
			local.CreatedDT = o.now().UTC().Format(time.RFC3339)
			o.store.Dispatch(store.AddEntry{Entry: local})
			saved = local
			return nil
		})
	return saved, err
}

// Pledge creates the pledge entry of a pending award.
func (o *Orchestrator) Pledge(ctx context.Context, awardID models.ID, e models.Entry) (models.Entry, error) {
	a, err := o.award(awardID)
	if err != nil {
		return models.Entry{}, err
	}
	if !a.IsPending() {
		return models.Entry{}, ErrNotPending
	}
	if !a.Entry.IsZero() {
		return models.Entry{}, ErrPledgeExists
	}

	e.Award = awardID
	return o.CreateEntry(ctx, e)
}

// pushNewEntry posts the entry shell and records the server copy at once,
// still dirty, so that a later failure never posts the entry again. It then
// uploads the staged attachments and applies the tags. The result is zero
// only when the server did not take the shell.
func (o *Orchestrator) pushNewEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	created, err := o.api.CreateEntry(ctx, e.Shell())
	if err != nil {
		return models.Entry{}, err
	}

	cur := withStaged(created, e)
	o.store.Dispatch(store.AddEntry{Entry: cur})
	o.store.Dispatch(store.SyncedEntry{Entry: cur, KeepDirty: true})

	if err := o.uploadStaged(ctx, &cur); err != nil {
		return cur, err
	}
	if len(cur.Tags) > 0 {
		tagged, err := o.api.SetEntryTags(ctx, cur.ID, cur.Tags)
		if err != nil {
			return cur, err
		}
		cur.Tags = tagged.Tags
	}
	o.store.Dispatch(store.SyncedEntry{Entry: cur})
	return cur, nil
}

// withStaged returns the server copy of a new entry carrying what is still
// to be pushed from the local one: tags and staged attachments.
func withStaged(created, local models.Entry) models.Entry {
	out := created.Clone()
	out.Tags = slices.Clone(local.Tags)
	if out.Award.IsZero() {
		out.Award = local.Award
	}
	for i := range out.Sections {
		if i < len(local.Sections) {
			out.Sections[i].Attachments = append(out.Sections[i].Attachments, stagedOnly(local.Sections[i].Attachments)...)
		}
	}
	return out
}

// uploadStaged uploads the staged attachments of e one at a time. Each
// confirmed upload replaces its staged copy in e and is recorded in the
// store right away, keeping the entry dirty.
func (o *Orchestrator) uploadStaged(ctx context.Context, e *models.Entry) error {
	for i := range e.Sections {
		for j, a := range e.Sections[i].Attachments {
			if !a.IsStaged() {
				continue
			}
			uploaded, err := o.api.CreateAttachment(ctx, newAttachmentRequest(e.Sections[i].ID, a))
			if err != nil {
				return fmt.Errorf("upload attachment %q: %w", a.Label, err)
			}
			e.Sections[i].Attachments[j] = uploaded
			o.store.Dispatch(store.SyncedEntry{Entry: *e, KeepDirty: true})
		}
	}
	return nil
}

func newAttachmentRequest(section models.ID, a models.Attachment) api.NewAttachment {
	req := api.NewAttachment{Section: section, Label: a.Label, Award: a.Award, Hyperlink: a.Hyperlink}
	if a.DataURI != "" {
		if data, ok := decodeDataURI(a.DataURI); ok {
			req.File = data
			req.FileName = a.Label
		} else {
			req.DataURI = a.DataURI
		}
	}
	return req
}

// UpdateEntry saves changed sections of an existing entry.
func (o *Orchestrator) UpdateEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	if err := validateEntry(e); err != nil {
		return models.Entry{}, err
	}
	prev, err := o.entry(e.ID)
	if err != nil {
		return models.Entry{}, err
	}
	e = e.Clone()

	// next follows what the server has confirmed, so the offline fallback
	// does not stage an attachment that was already uploaded.
	next := e.Clone()
	var saved models.Entry
	err = o.mutate(ctx, "update entry",
		func(ctx context.Context) error {
			o.syncMu.Lock()
			defer o.syncMu.Unlock()

			if !prev.IsSynced() {
				// Never reached the server: keep it queued and push it now.
				o.store.Dispatch(store.UpdateEntry{Entry: e})
				out, err := o.syncEntry(ctx, o.store.State().Entries.ItemsByID[e.ID])
				next, saved = out, out
				return err
			}

			if err := o.uploadStaged(ctx, &next); err != nil {
				return err
			}
			out, err := o.api.UpdateEntry(ctx, next)
			if err != nil {
				return err
			}
			o.store.Dispatch(store.UpdateEntry{Entry: out})
			saved = out
			return nil
		},
		func() error {
			o.store.Dispatch(store.UpdateEntry{Entry: next})
			saved, _ = o.store.State().Entry(next.ID)
			return nil
		})
	return saved, err
}

// SetEntryTags replaces the tag set of an entry.
func (o *Orchestrator) SetEntryTags(ctx context.Context, id models.ID, tags []string) error {
	e, err := o.entry(id)
	if err != nil {
		return err
	}
	tags = normalizeTags(tags)

	return o.mutate(ctx, "update tags",
		func(ctx context.Context) error {
			if !e.IsSynced() {
				o.store.Dispatch(store.UpdateEntryTags{ID: id, Tags: tags})
				return nil
			}
			saved, err := o.api.SetEntryTags(ctx, id, tags)
			if err != nil {
				return err
			}
			o.store.Dispatch(store.UpdateEntryTags{ID: id, Tags: saved.Tags})
			return nil
		},
		func() error {
			o.store.Dispatch(store.UpdateEntryTags{ID: id, Tags: tags})
			return nil
		})
}

// DeleteEntry removes an entry. Entries the server never saw are removed
// locally only.
func (o *Orchestrator) DeleteEntry(ctx context.Context, id models.ID) error {
	e, err := o.entry(id)
	if err != nil {
		return err
	}

	return o.mutate(ctx, "delete entry",
		func(ctx context.Context) error {
			if e.IsSynced() {
				if err := o.api.DeleteEntry(ctx, id); err != nil {
					return err
				}
			}
			o.store.Dispatch(store.DeleteEntry{ID: id})
			return nil
		},
		func() error {
			o.store.Dispatch(store.DeleteEntry{ID: id})
			return nil
		})
}

// CopyEntry duplicates an entry with its sections and attachments.
func (o *Orchestrator) CopyEntry(ctx context.Context, id models.ID) (models.Entry, error) {
	src, err := o.entry(id)
	if err != nil {
		return models.Entry{}, err
	}

	var saved models.Entry
	err = o.mutate(ctx, "copy entry",
		func(ctx context.Context) error {
			if !src.IsSynced() {
				return fmt.Errorf("entry %s is not synced yet: %w", id, common.ErrOnlineOnly)
			}
			out, err := o.api.CopyEntry(ctx, id)
			if err != nil {
				return err
			}
			o.store.Dispatch(store.AddEntry{Entry: out})
			saved = out
			return nil
		},
		func() error {
			saved = o.copyOffline(src)
			o.store.Dispatch(store.AddEntry{Entry: saved})
			return nil
		})
	return saved, err
}

// copyOffline builds a local copy. Server files without cached content are
// referenced by URL.
func (o *Orchestrator) copyOffline(src models.Entry) models.Entry {
	e := models.Entry{
		ID:        o.newID(),
		CreatedDT: o.now().UTC().Format(time.RFC3339),
		Tags:      slices.Clone(src.Tags),
		Shares:    []models.ID{},
		Sections:  make([]models.Section, 0, len(src.Sections)),
	}
	for _, s := range src.Sections {
		section := models.Section{Title: s.Title + " (Copy)", Text: s.Text, Attachments: []models.Attachment{}}
		for _, a := range s.Attachments {
			c := models.Attachment{Label: a.Label}
			switch {
			case !a.Award.IsZero():
				c.Award = a.Award
			case a.DataURI != "":
				c.DataURI, c.FileSize = a.DataURI, a.FileSize
			case a.File != "":
				c.Hyperlink = a.File
			default:
				c.Hyperlink = a.Hyperlink
			}
			section.Attachments = append(section.Attachments, c)
		}
		e.Sections = append(e.Sections, section)
	}
	return e
}

// AddAttachment attaches a file, link or badge to a section of an entry.
// Offline, files are staged as data URIs and uploaded on reconciliation.
func (o *Orchestrator) AddAttachment(ctx context.Context, entryID models.ID, section int, in AttachmentInput) (models.Entry, error) {
	e, err := o.entry(entryID)
	if err != nil {
		return models.Entry{}, err
	}
	if section < 0 || section >= len(e.Sections) {
		return models.Entry{}, fmt.Errorf("section %d: %w", section, common.ErrInvalidInput)
	}

	stage := func() error {
		if err := in.validate(true); err != nil {
			return err
		}
		next := e.Clone()
		next.Sections[section].Attachments = append(next.Sections[section].Attachments, in.staged())
		o.store.Dispatch(store.UpdateEntry{Entry: next})
		return nil
	}

	err = o.mutate(ctx, "add attachment",
		func(ctx context.Context) error {
			if !e.IsSynced() {
				return stage()
			}
			if err := in.validate(false); err != nil {
				return err
			}
			req := api.NewAttachment{
				Section:   e.Sections[section].ID,
				Label:     in.staged().Label,
				Award:     in.Award,
				Hyperlink: in.Hyperlink,
				FileName:  in.FileName,
				File:      in.Data,
			}
			uploaded, err := o.api.CreateAttachment(ctx, req)
			if err != nil {
				return err
			}
			next := e.Clone()
			next.Sections[section].Attachments = append(next.Sections[section].Attachments, uploaded)
			o.store.Dispatch(store.UpdateEntry{Entry: next})
			return nil
		},
		stage)
	if err != nil {
		return models.Entry{}, err
	}
	out, _ := o.store.State().Entry(entryID)
	return out, nil
}

// RemoveAttachment detaches an attachment from an entry.
func (o *Orchestrator) RemoveAttachment(ctx context.Context, entryID models.ID, section, index int) error {
	e, err := o.entry(entryID)
	if err != nil {
		return err
	}
	if section < 0 || section >= len(e.Sections) || index < 0 || index >= len(e.Sections[section].Attachments) {
		return fmt.Errorf("attachment %d/%d: %w", section, index, common.ErrInvalidInput)
	}

	target := e.Sections[section].Attachments[index]
	next := e.Clone()
	next.Sections[section].Attachments = slices.Delete(next.Sections[section].Attachments, index, index+1)

	return o.mutate(ctx, "remove attachment",
		func(ctx context.Context) error {
			if !target.IsStaged() && e.IsSynced() {
				if err := o.api.RemoveAttachments(ctx, []models.ID{target.ID}); err != nil {
					return err
				}
			}
			o.store.Dispatch(store.UpdateEntry{Entry: next})
			return nil
		},
		func() error {
			o.store.Dispatch(store.UpdateEntry{Entry: next})
			return nil
		})
}
