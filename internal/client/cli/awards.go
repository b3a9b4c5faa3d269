package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// filterFlags binds the list filter of awards or entries.
type filterFlags struct {
	filter models.Filter
	clear  bool
}

func (ff *filterFlags) register(cmd *cobra.Command, awards bool) {
	fs := cmd.Flags()
	fs.StringSliceVar(&ff.filter.Tags, "tag", nil, "only items with all of these tags")
	fs.StringVar(&ff.filter.StartDate, "from", "", "issued or created on or after YYYY-MM-DD")
	fs.StringVar(&ff.filter.EndDate, "to", "", "issued or created on or before YYYY-MM-DD")
	fs.BoolVar(&ff.filter.IsShared, "shared", false, "only items with a live share")
	fs.BoolVar(&ff.filter.WasShared, "was-shared", false, "only items whose shares were all removed")
	fs.BoolVar(&ff.filter.NeverShared, "never-shared", false, "only items never shared")
	if awards {
		fs.StringSliceVar(&ff.filter.Issuers, "issuer", nil, "only awards from these issuers")
		fs.BoolVar(&ff.filter.IsValid, "valid", false, "only awards neither revoked nor expired")
		fs.BoolVar(&ff.filter.IsRevoked, "revoked", false, "only revoked awards")
		fs.BoolVar(&ff.filter.IsExpired, "expired", false, "only expired awards")
	}
	fs.BoolVar(&ff.clear, "all", false, "clear the saved filter")
}

// apply stores the filter when any filter flag was given. The filter is
// kept in the state, so later lists reuse it.
func (ff *filterFlags) apply(cmd *cobra.Command, a *App, t models.TagType) {
	if ff.clear {
		a.store.Dispatch(store.SetFilter{Type: t, Filter: models.Filter{Tags: []string{}}})
		return
	}
	changed := false
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed && f.Name != "all" {
			changed = true
		}
	})
	if changed {
		if ff.filter.Tags == nil {
			ff.filter.Tags = []string{}
		}
		a.store.Dispatch(store.SetFilter{Type: t, Filter: ff.filter})
	}
}

func today() string { return time.Now().Format(time.DateOnly) }

func newAwardsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "awards",
		Aliases: []string{"badges"},
		Short:   "Manage awarded badges",
	}

	var ff filterFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List awards",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			ff.apply(cmd, a, models.TagTypeAward)
			awards := a.store.State().FilteredAwards(today())
			return f.Render(awards, func(w io.Writer) { printAwards(w, awards) })
		}),
	}
	ff.register(list, true)

	var pledgeTitle, pledgeText string
	pledge := &cobra.Command{
		Use:   "pledge AWARD_ID",
		Short: "Write the pledge entry of a pending award",
		Args:  cobra.ExactArgs(1),
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			e, err := a.orch.Pledge(ctx, models.ID(args[0]), newEntry(pledgeTitle, pledgeText, nil))
			if err != nil {
				return err
			}
			return f.Render(e, func(w io.Writer) { fmt.Fprintf(w, "Pledge %s saved.\n", e.ID) })
		}),
	}
	pledge.Flags().StringVar(&pledgeTitle, "title", "", "entry title")
	pledge.Flags().StringVar(&pledgeText, "text", "", "entry text")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "show AWARD_ID",
			Short: "Show an award",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				st := a.store.State()
				award, ok := st.Award(models.ID(args[0]))
				if !ok || award.IsDeleted {
					return WrapExitError(ExitCommandError, "award "+args[0], common.ErrorNotFound)
				}
				shares := st.SharesOf(award.Shares)
				return f.Render(award, func(w io.Writer) { printAward(w, award, shares) })
			}),
		},
		&cobra.Command{
			Use:   "tag AWARD_ID [TAG...]",
			Short: "Replace the tags of an award",
			Args:  cobra.MinimumNArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				id := models.ID(args[0])
				if err := a.orch.SetAwardTags(ctx, id, args[1:]); err != nil {
					return err
				}
				award, _ := a.store.State().Award(id)
				return f.Render(award, func(w io.Writer) { fmt.Fprintf(w, "Tags of %s saved.\n", id) })
			}),
		},
		&cobra.Command{
			Use:   "delete AWARD_ID",
			Short: "Remove an award from the backpack",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				if err := a.orch.DeleteAward(ctx, models.ID(args[0])); err != nil {
					return err
				}
				return f.Render(map[string]string{"deleted": args[0]}, func(w io.Writer) { fmt.Fprintf(w, "Award %s deleted.\n", args[0]) })
			}),
		},
		&cobra.Command{
			Use:   "verify AWARD_ID",
			Short: "Check an award with its issuer",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				status, err := a.orch.VerifyAward(ctx, models.ID(args[0]))
				if err != nil {
					return err
				}
				return f.Render(status, func(w io.Writer) {
					switch {
					case status.Revoked:
						fmt.Fprintf(w, "Revoked: %s\n", status.RevokedReason)
					case status.VerifiedDT != nil:
						fmt.Fprintf(w, "Verified at %s\n", *status.VerifiedDT)
					default:
						fmt.Fprintln(w, "Not verified")
					}
				})
			}),
		},
		&cobra.Command{
			Use:   "claim CODE",
			Short: "Claim a badge with a claim code",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				award, err := a.orch.ClaimBadge(ctx, args[0])
				if err != nil {
					return err
				}
				return f.Render(award, func(w io.Writer) { fmt.Fprintf(w, "Claimed %s (%s).\n", award.BadgeName, award.ID) })
			}),
		},
		&cobra.Command{
			Use:   "claim-event",
			Short: "Claim the badge of the event linked to your account",
			Args:  cobra.NoArgs,
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				award, err := a.orch.ClaimEvent(ctx)
				if err != nil {
					return err
				}
				return f.Render(award, func(w io.Writer) { fmt.Fprintf(w, "Claimed %s (%s).\n", award.BadgeName, award.ID) })
			}),
		},
		&cobra.Command{
			Use:   "upload FILE",
			Short: "Add a badge from a baked image or assertion file",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				data, err := os.ReadFile(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "read badge file", err)
				}
				award, err := a.orch.UploadAward(ctx, filepath.Base(args[0]), data)
				if err != nil {
					return err
				}
				return f.Render(award, func(w io.Writer) { fmt.Fprintf(w, "Uploaded %s (%s).\n", award.BadgeName, award.ID) })
			}),
		},
		&cobra.Command{
			Use:       "export AWARD_ID SERVICE",
			Short:     "Copy an award to dropbox, googledrive or onedrive",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{string(api.ExportDropbox), string(api.ExportGoogleDrive), string(api.ExportOneDrive)},
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				authURL, err := a.orch.ExportAward(ctx, models.ID(args[0]), api.ExportService(args[1]))
				if err != nil {
					return err
				}
				return f.Render(map[string]string{"authUrl": authURL}, func(w io.Writer) {
					if authURL != "" {
						fmt.Fprintf(w, "Authorize %s first, then run the export again:\n  %s\n", args[1], authURL)
						return
					}
					fmt.Fprintf(w, "Award %s exported to %s.\n", args[0], args[1])
				})
			}),
		},
		&cobra.Command{
			Use:   "share AWARD_ID TYPE",
			Short: "Publish an award (link, embed, facebook, twitter, pinterest, googleplus, linkedin)",
			Args:  cobra.ExactArgs(2),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				share, err := a.orch.ShareAward(ctx, models.ID(args[0]), parseShareType(args[1]))
				if err != nil {
					return err
				}
				return f.Render(share, func(w io.Writer) { fmt.Fprintf(w, "%s share %s: %s\n", share.Type.Name(), share.ID, share.URL) })
			}),
		},
		pledge,
	)
	return cmd
}

// parseShareType accepts both "link" and "type_link".
func parseShareType(s string) models.ShareType {
	t := models.ShareType(s)
	if t.Valid() {
		return t
	}
	return models.ShareType("type_" + s)
}
