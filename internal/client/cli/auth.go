package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
)

func newLoginCommand(opts *RootOptions) *cobra.Command {
	var token, redirect string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in through the browser, or with an access token",
		Long: `Log in to the backpack server.

Without flags, prints the authorization URL. Open it, approve access and
paste the address the browser lands on. --token stores a token obtained
elsewhere; --redirect completes a login with the landing address directly.`,
		Args: cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			return a.Login(ctx, f, token, redirect)
		}),
	}
	cmd.Flags().StringVar(&token, "token", "", "access token")
	cmd.Flags().StringVar(&redirect, "redirect", "", "redirect URL returned by the server")
	return cmd
}

// Login completes one of the login flows and loads the backpack.
func (a *App) Login(ctx context.Context, f *OutputFormatter, token, redirect string) error {
	switch {
	case token != "":
		if err := a.session.SetToken(ctx, token); err != nil {
			return WrapExitError(ExitCommandError, "invalid token", err)
		}

	case redirect == "":
		url, err := a.session.LoginURL(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(f.GetErrWriter(), "Open this address in your browser:\n\n  %s\n\n", url)
		redirect, err = GetSecret(a.reader, "Paste the address you were redirected to", f.GetErrWriter())
		if err != nil {
			return WrapExitError(ExitCommandError, "no redirect address", err)
		}
		fallthrough

	default:
		if err := a.session.CompleteLoginFromURL(ctx, redirect); err != nil {
			if errors.Is(err, common.ErrAuthStateInvalid) {
				return WrapExitError(ExitAuth, "login expired or was started elsewhere, try again", err)
			}
			return WrapExitError(ExitAuth, "login failed", err)
		}
	}

	if _, err := a.loader.Load(ctx); err != nil {
		return err
	}

	route, _ := a.session.PrevRoute(ctx)
	st := a.store.State()
	return f.Render(map[string]any{"user": st.User, "prevRoute": route}, func(w io.Writer) {
		fmt.Fprintf(w, "Logged in as %s.\n", st.User.PrimaryEmail())
		if route != "" {
			fmt.Fprintf(w, "Continue with: backpack %s\n", route)
		}
	})
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and delete all local data",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if st := a.store.State(); st.ToSync > 0 {
				fmt.Fprintf(f.GetErrWriter(), "Warning: %d unsynced changes will be lost.\n", st.ToSync)
			}
			url, err := a.session.Logout(ctx)
			if err != nil {
				return err
			}
			return f.Render(map[string]string{"logoutUrl": url}, func(w io.Writer) {
				fmt.Fprintf(w, "Logged out. To end the browser session too, open:\n  %s\n", url)
			})
		}),
	}
}

// StatusReport is the machine-readable form of `status`.
type StatusReport struct {
	LoggedIn    bool       `json:"loggedIn"`
	Mode        Mode       `json:"mode"`
	ToSync      int        `json:"toSync"`
	LastSync    *time.Time `json:"lastSync"`
	TokenExpiry *time.Time `json:"tokenExpiry,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show login, mode and unsynced changes",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			loggedIn := a.isLoggedIn(ctx)
			if loggedIn {
				if !a.store.State().Loaded {
					if cached, ok, err := store.LoadSnapshot(ctx, a.cache); err == nil && ok {
						a.store.Dispatch(store.SetState{State: cached})
					}
				}
			}

			st := a.store.State()
			report := StatusReport{LoggedIn: loggedIn, Mode: a.Mode(), ToSync: st.ToSync, LastSync: st.LastSync, Error: st.Error}
			if exp, ok, err := a.session.TokenExpiry(ctx); err == nil && ok {
				report.TokenExpiry = &exp
			}

			return f.Render(report, func(w io.Writer) {
				printStatus(w, st, loggedIn, report.Mode)
				if report.TokenExpiry != nil {
					fmt.Fprintf(w, "Token expires: %s\n", report.TokenExpiry.Local().Format(time.RFC1123))
				}
			})
		}),
	}
}

func newLoadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "load",
		Aliases: []string{"refresh"},
		Short:   "Fetch the whole backpack from the server",
		Args:    cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			a.loader.Wait()

			st := a.store.State()
			if st.IsOffline {
				return WrapExitError(ExitOffline, "offline mode, run `backpack sync` first", common.ErrOnlineOnly)
			}
			if st.ToSync > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d unsynced changes, run `backpack sync` first", st.ToSync))
			}
			if err := a.loader.Refresh(ctx); err != nil {
				return err
			}

			st = a.store.State()
			return f.Render(StatusReport{LoggedIn: true, Mode: a.Mode(), LastSync: st.LastSync}, func(w io.Writer) {
				fmt.Fprintf(w, "Loaded %d awards, %d entries, %d shares.\n", len(st.VisibleAwards()), len(st.VisibleEntries()), len(st.Shares.Items))
			})
		}),
	}
}
