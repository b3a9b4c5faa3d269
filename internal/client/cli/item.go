package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func awardStatus(a models.Award) string {
	switch {
	case a.Revoked:
		return "revoked"
	case a.IsPending():
		return "pending"
	case a.VerifiedDT != nil:
		return "verified"
	default:
		return "issued"
	}
}

func dirtyMark(dirty bool) string {
	if dirty {
		return "*"
	}
	return ""
}

// printAwards writes one award per line. A trailing * marks unsynced changes.
func printAwards(w io.Writer, awards []models.Award) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBADGE\tISSUER\tISSUED\tSTATUS\tTAGS\t")
	for _, a := range awards {
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\t%s\t\n",
			a.ID, dirtyMark(a.Dirty), a.BadgeName, a.IssuerOrgName, deref(a.IssuedDate), awardStatus(a), strings.Join(a.Tags, ","))
	}
	_ = tw.Flush()
}

// printAward writes the details of one award.
func printAward(w io.Writer, a models.Award, shares []models.Share) {
	fmt.Fprintf(w, "%s (%s)\n", a.BadgeName, a.ID)
	fmt.Fprintf(w, "Issuer: %s\n", a.IssuerOrgName)
	fmt.Fprintf(w, "Recipient: %s\n", a.StudentName)
	fmt.Fprintf(w, "Status: %s\n", awardStatus(a))
	if a.Revoked && a.RevokedReason != "" {
		fmt.Fprintf(w, "Revoked: %s\n", a.RevokedReason)
	}
	if d := deref(a.IssuedDate); d != "" {
		fmt.Fprintf(w, "Issued: %s\n", d)
	}
	if d := deref(a.ExpirationDate); d != "" {
		fmt.Fprintf(w, "Expires: %s\n", d)
	}
	if len(a.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(a.Tags, ", "))
	}
	if !a.Entry.IsZero() {
		fmt.Fprintf(w, "Pledge entry: %s\n", a.Entry)
	}
	if a.BadgeDescription != "" {
		fmt.Fprintf(w, "\n%s\n", a.BadgeDescription)
	}
	printShareLines(w, shares)
}

func entryTitle(e models.Entry) string {
	if len(e.Sections) == 0 {
		return ""
	}
	return e.Sections[0].Title
}

// printEntries writes one entry per line.
func printEntries(w io.Writer, entries []models.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCREATED\tSECTIONS\tTAGS\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%d\t%s\t\n",
			e.ID, dirtyMark(e.Dirty), entryTitle(e), e.CreatedDT, len(e.Sections), strings.Join(e.Tags, ","))
	}
	_ = tw.Flush()
}

// printEntry writes an entry with its sections and attachments. Staged
// attachments are marked as not uploaded.
func printEntry(w io.Writer, e models.Entry, shares []models.Share) {
	fmt.Fprintf(w, "%s (%s)\n", entryTitle(e), e.ID)
	if !e.Award.IsZero() {
		fmt.Fprintf(w, "Pledge for award %s\n", e.Award)
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(e.Tags, ", "))
	}
	if e.Dirty {
		fmt.Fprintln(w, "Not synced")
	}
	for i, s := range e.Sections {
		fmt.Fprintf(w, "\n[%d] %s\n", i, s.Title)
		if s.Text != "" {
			fmt.Fprintln(w, s.Text)
		}
		for j, a := range s.Attachments {
			target := a.File
			switch {
			case a.Hyperlink != "":
				target = a.Hyperlink
			case !a.Award.IsZero():
				target = "badge " + a.Award.String()
			case a.DataURI != "":
				target = fmt.Sprintf("%d bytes, not uploaded", a.FileSize)
			}
			fmt.Fprintf(w, "  %d.%d %s: %s\n", i, j, a.Label, target)
		}
	}
	printShareLines(w, shares)
}

func printShareLines(w io.Writer, shares []models.Share) {
	if len(shares) == 0 {
		return
	}
	fmt.Fprintln(w, "\nShares:")
	for _, s := range shares {
		state := ""
		if s.IsDeleted {
			state = " (removed)"
		}
		fmt.Fprintf(w, "  %s %s %s, %d views%s\n", s.ID, s.Type.Name(), s.URL, s.Views, state)
	}
}

// printShares writes one share per line.
func printShares(w io.Writer, shares []models.Share) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tOBJECT\tVIEWS\tURL\t")
	for _, s := range shares {
		kind := s.Type.Name()
		if s.IsDeleted {
			kind += " (removed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%d\t%s\t\n", s.ID, kind, s.ContentType, s.ObjectID, s.Views, s.URL)
	}
	_ = tw.Flush()
}

// printStatus summarises the session and the sync state.
func printStatus(w io.Writer, st store.State, loggedIn bool, mode Mode) {
	user := "not logged in"
	if loggedIn {
		user = strings.TrimSpace(st.User.FirstName + " " + st.User.LastName)
		if email := st.User.PrimaryEmail(); email != "" {
			user = strings.TrimSpace(user + " <" + email + ">")
		}
		if user == "" {
			user = "logged in"
		}
	}
	fmt.Fprintf(w, "User: %s\n", user)
	fmt.Fprintf(w, "Mode: %s\n", mode)
	fmt.Fprintf(w, "Unsynced changes: %d\n", st.ToSync)
	if st.LastSync != nil {
		fmt.Fprintf(w, "Last sync: %s\n", st.LastSync.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(w, "Last sync: never")
	}
	fmt.Fprintf(w, "Awards: %d, entries: %d, shares: %d\n", len(st.VisibleAwards()), len(st.VisibleEntries()), len(st.Shares.Items))
	if st.Error != "" {
		fmt.Fprintf(w, "Last error: %s\n", st.Error)
	}
}
