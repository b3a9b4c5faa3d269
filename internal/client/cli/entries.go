package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/services"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// newEntry builds a one-section entry.
func newEntry(title, text string, tags []string) models.Entry {
	return models.Entry{
		Sections: []models.Section{{Title: title, Text: text, Attachments: []models.Attachment{}}},
		Tags:     tags,
	}
}

// readText returns text, or reads it from the input when text is "-".
func (a *App) readText(text string) (string, error) {
	if text != "-" {
		return text, nil
	}
	return GetMultiline(a.reader, "Text (end with an empty line)", a.errOut)
}

func parseIndex(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", what, s), common.ErrInvalidInput)
	}
	return n, nil
}

func newEntriesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry"},
		Short:   "Manage portfolio entries",
	}

	var ff filterFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			ff.apply(cmd, a, models.TagTypeEntry)
			entries := a.store.State().FilteredEntries()
			return f.Render(entries, func(w io.Writer) { printEntries(w, entries) })
		}),
	}
	ff.register(list, false)

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "show ENTRY_ID",
			Short: "Show an entry with its sections",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				st := a.store.State()
				e, ok := st.Entry(models.ID(args[0]))
				if !ok || e.IsDeleted {
					return WrapExitError(ExitCommandError, "entry "+args[0], common.ErrorNotFound)
				}
				shares := st.SharesOf(e.Shares)
				return f.Render(e, func(w io.Writer) { printEntry(w, e, shares) })
			}),
		},
		newEntryCreateCommand(opts),
		newEntryEditCommand(opts),
		&cobra.Command{
			Use:   "tag ENTRY_ID [TAG...]",
			Short: "Replace the tags of an entry",
			Args:  cobra.MinimumNArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				id := models.ID(args[0])
				if err := a.orch.SetEntryTags(ctx, id, args[1:]); err != nil {
					return err
				}
				e, _ := a.store.State().Entry(id)
				return f.Render(e, func(w io.Writer) { fmt.Fprintf(w, "Tags of %s saved.\n", id) })
			}),
		},
		&cobra.Command{
			Use:   "delete ENTRY_ID",
			Short: "Delete an entry",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				if err := a.orch.DeleteEntry(ctx, models.ID(args[0])); err != nil {
					return err
				}
				return f.Render(map[string]string{"deleted": args[0]}, func(w io.Writer) { fmt.Fprintf(w, "Entry %s deleted.\n", args[0]) })
			}),
		},
		&cobra.Command{
			Use:   "copy ENTRY_ID",
			Short: "Duplicate an entry",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				e, err := a.orch.CopyEntry(ctx, models.ID(args[0]))
				if err != nil {
					return err
				}
				return f.Render(e, func(w io.Writer) { fmt.Fprintf(w, "Copied to %s.\n", e.ID) })
			}),
		},
		newAttachCommand(opts),
		&cobra.Command{
			Use:   "detach ENTRY_ID SECTION INDEX",
			Short: "Remove an attachment; indexes are shown by `entries show`",
			Args:  cobra.ExactArgs(3),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				section, err := parseIndex(args[1], "section")
				if err != nil {
					return err
				}
				index, err := parseIndex(args[2], "index")
				if err != nil {
					return err
				}
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				if err := a.orch.RemoveAttachment(ctx, models.ID(args[0]), section, index); err != nil {
					return err
				}
				return f.Render(map[string]any{"entry": args[0], "section": section, "index": index}, func(w io.Writer) {
					fmt.Fprintln(w, "Attachment removed.")
				})
			}),
		},
		&cobra.Command{
			Use:   "share ENTRY_ID TYPE",
			Short: "Publish an entry",
			Args:  cobra.ExactArgs(2),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				share, err := a.orch.ShareEntry(ctx, models.ID(args[0]), parseShareType(args[1]))
				if err != nil {
					return err
				}
				return f.Render(share, func(w io.Writer) { fmt.Fprintf(w, "%s share %s: %s\n", share.Type.Name(), share.ID, share.URL) })
			}),
		},
	)
	return cmd
}

func newEntryCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		title, text string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an entry; use --text - to type the text",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			body, err := a.readText(text)
			if err != nil {
				return err
			}
			e, err := a.orch.CreateEntry(ctx, newEntry(title, body, tags))
			if err != nil {
				return err
			}
			return f.Render(e, func(w io.Writer) {
				fmt.Fprintf(w, "Entry %s created.\n", e.ID)
				if cur, ok := a.store.State().Entry(e.ID); ok && cur.Dirty {
					fmt.Fprintln(w, "Saved offline, run `backpack sync` when back online.")
				}
			})
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "entry title")
	cmd.Flags().StringVar(&text, "text", "", "entry text")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags")
	return cmd
}

func newEntryEditCommand(opts *RootOptions) *cobra.Command {
	var (
		section     int
		title, text string
		addSection  bool
	)

	cmd := &cobra.Command{
		Use:   "edit ENTRY_ID",
		Short: "Change the title or text of a section, or add a section",
		Args:  cobra.ExactArgs(1),
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			e, ok := a.store.State().Entry(models.ID(args[0]))
			if !ok || e.IsDeleted {
				return WrapExitError(ExitCommandError, "entry "+args[0], common.ErrorNotFound)
			}
			e = e.Clone()

			body, err := a.readText(text)
			if err != nil {
				return err
			}

			if addSection {
				e.Sections = append(e.Sections, models.Section{Title: title, Text: body, Attachments: []models.Attachment{}})
			} else {
				if section < 0 || section >= len(e.Sections) {
					return WrapExitError(ExitCommandError, fmt.Sprintf("entry has no section %d", section), common.ErrInvalidInput)
				}
				if cmd.Flags().Changed("title") {
					e.Sections[section].Title = title
				}
				if cmd.Flags().Changed("text") {
					e.Sections[section].Text = body
				}
			}

			saved, err := a.orch.UpdateEntry(ctx, e)
			if err != nil {
				return err
			}
			return f.Render(saved, func(w io.Writer) { fmt.Fprintf(w, "Entry %s saved.\n", saved.ID) })
		}),
	}
	cmd.Flags().IntVar(&section, "section", 0, "section index")
	cmd.Flags().StringVar(&title, "title", "", "section title")
	cmd.Flags().StringVar(&text, "text", "", "section text, - to type it")
	cmd.Flags().BoolVar(&addSection, "add-section", false, "append a new section")
	return cmd
}

func newAttachCommand(opts *RootOptions) *cobra.Command {
	var (
		section           int
		file, link, label string
		badge             string
	)

	cmd := &cobra.Command{
		Use:   "attach ENTRY_ID",
		Short: "Attach a file, a link or one of your badges to a section",
		Args:  cobra.ExactArgs(1),
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			in := services.AttachmentInput{Label: label, Hyperlink: link, Award: models.ID(badge)}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return WrapExitError(ExitCommandError, "read attachment", err)
				}
				in.Data = data
				in.FileName = filepath.Base(file)
			}

			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			e, err := a.orch.AddAttachment(ctx, models.ID(args[0]), section, in)
			if err != nil {
				return err
			}
			return f.Render(e, func(w io.Writer) {
				fmt.Fprintln(w, "Attachment added.")
				if e.HasStagedAttachments() {
					fmt.Fprintln(w, "Files are uploaded on the next sync.")
				}
			})
		}),
	}
	cmd.Flags().IntVar(&section, "section", 0, "section index")
	cmd.Flags().StringVar(&file, "file", "", "file to upload")
	cmd.Flags().StringVar(&link, "link", "", "hyperlink")
	cmd.Flags().StringVar(&badge, "badge", "", "award id to embed")
	cmd.Flags().StringVar(&label, "label", "", "label, defaults to the file name")
	cmd.MarkFlagsMutuallyExclusive("file", "link", "badge")
	cmd.MarkFlagsOneRequired("file", "link", "badge")
	return cmd
}
