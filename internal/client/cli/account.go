package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/services"
)

func printAccount(w io.Writer, u models.UserProfile) {
	fmt.Fprintf(w, "Name: %s %s\n", u.FirstName, u.LastName)
	if u.PhoneNumber != "" {
		fmt.Fprintf(w, "Phone: %s\n", u.PhoneNumber)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nID\tEMAIL\tPRIMARY\tVERIFIED\tARCHIVED\t")
	for _, e := range u.Emails {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%t\t\n", e.ID, e.Email, e.IsPrimary, e.IsValidated, e.IsArchived)
	}
	_ = tw.Flush()

	for _, app := range u.Apps {
		fmt.Fprintf(w, "App: %s %s\n", app.AppName, app.AppURL)
	}
}

func newAccountCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show and change your account",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			u := a.store.State().User
			return f.Render(u, func(w io.Writer) { printAccount(w, u) })
		}),
	}

	cmd.AddCommand(newAccountUpdateCommand(opts), newEmailCommand(opts), newAppsCommand(opts))
	return cmd
}

func newAccountUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		first, last, phone string
		notify             int
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change name, phone or notification preference",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			var p services.ProfileUpdate
			if cmd.Flags().Changed("first-name") {
				p.FirstName = &first
			}
			if cmd.Flags().Changed("last-name") {
				p.LastName = &last
			}
			if cmd.Flags().Changed("phone") {
				p.PhoneNumber = &phone
			}
			if cmd.Flags().Changed("notify") {
				n := models.NotifyType(notify)
				p.NotifyType = &n
			}

			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			u, err := a.orch.UpdateProfile(ctx, p)
			if err != nil {
				return err
			}
			return f.Render(u, func(w io.Writer) { fmt.Fprintln(w, "Account saved.") })
		}),
	}
	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number in E.164 form")
	cmd.Flags().IntVar(&notify, "notify", 0, "0 email, 1 sms, 2 both")
	return cmd
}

// emailCommand builds a subcommand acting on one address id.
func emailCommand(opts *RootOptions, use, short, done string, fn func(ctx context.Context, a *App, id models.ID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " EMAIL_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			if err := fn(ctx, a, models.ID(args[0])); err != nil {
				return err
			}
			return f.Render(map[string]string{"id": args[0]}, func(w io.Writer) { fmt.Fprintln(w, done) })
		}),
	}
}

func newEmailCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Manage the addresses of your account",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add ADDRESS",
			Short: "Add an address; a verification message is sent to it",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				e, err := a.orch.AddEmail(ctx, args[0])
				if err != nil {
					return err
				}
				return f.Render(e, func(w io.Writer) { fmt.Fprintf(w, "Added %s, check your inbox.\n", e.Email) })
			}),
		},
		emailCommand(opts, "primary", "Make an address primary", "Primary address changed.",
			func(ctx context.Context, a *App, id models.ID) error { return a.orch.SetPrimaryEmail(ctx, id) }),
		emailCommand(opts, "archive", "Hide an address", "Address archived.",
			func(ctx context.Context, a *App, id models.ID) error { return a.orch.ArchiveEmail(ctx, id, true) }),
		emailCommand(opts, "unarchive", "Show an archived address again", "Address restored.",
			func(ctx context.Context, a *App, id models.ID) error { return a.orch.ArchiveEmail(ctx, id, false) }),
		emailCommand(opts, "delete", "Remove an address", "Address removed.",
			func(ctx context.Context, a *App, id models.ID) error { return a.orch.DeleteEmail(ctx, id) }),
		emailCommand(opts, "verify", "Send the verification message again", "Verification sent.",
			func(ctx context.Context, a *App, id models.ID) error { return a.orch.ResendVerification(ctx, id) }),
	)
	return cmd
}

func newAppsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List connected applications",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			apps := a.store.State().User.Apps
			return f.Render(apps, func(w io.Writer) {
				for _, app := range apps {
					fmt.Fprintf(w, "%s %s %s\n", app.ID, app.AppName, app.AppURL)
				}
			})
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "link APP_ID NAME URL",
		Short: "Record an application connected through its redirect flow",
		Args:  cobra.ExactArgs(3),
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			app := models.LinkedApp{ID: models.ID(args[0]), AppName: args[1], AppURL: args[2]}
			a.orch.LinkApp(app)
			return f.Render(app, func(w io.Writer) { fmt.Fprintf(w, "Linked %s.\n", app.AppName) })
		}),
	})
	return cmd
}
