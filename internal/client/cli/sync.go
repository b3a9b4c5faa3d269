package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// SyncReport is the machine-readable result of `sync`.
type SyncReport struct {
	EntriesSynced int      `json:"entriesSynced"`
	AwardsSynced  int      `json:"awardsSynced"`
	Failed        []string `json:"failed,omitempty"`
	ToSync        int      `json:"toSync"`
	Mode          Mode     `json:"mode"`
}

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send changes made offline to the server",
		Long: `Replay every entry and award changed while offline. Entries go first so
that pledges point at server ids before their awards are sent. A successful
run switches back to online mode.`,
		Args: cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			return a.Sync(ctx, f)
		}),
	}
}

// Sync reconciles queued changes and reports the outcome.
func (a *App) Sync(ctx context.Context, f *OutputFormatter) error {
	res, err := a.orch.Reconcile(ctx)

	report := SyncReport{EntriesSynced: res.EntriesSynced, AwardsSynced: res.AwardsSynced, ToSync: a.store.State().ToSync, Mode: a.Mode()}
	for _, fe := range res.Failed {
		report.Failed = append(report.Failed, fe.Error())
	}

	switch {
	case errors.Is(err, common.ErrSyncInterrupted) || api.IsConnectivity(err):
		a.setReachable(ctx, false)
		return WrapExitError(ExitOffline, fmt.Sprintf("sync interrupted, %d changes left", report.ToSync), err)
	case errors.Is(err, api.ErrUnauthorized):
		return a.session.Reauthorize(ctx)
	case err != nil:
		if f.Format != "json" {
			printSyncReport(f.Writer, report)
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("%d changes failed to sync", len(res.Failed)), err)
	}

	a.setReachable(ctx, true)
	return f.Render(report, func(w io.Writer) { printSyncReport(w, report) })
}

func printSyncReport(w io.Writer, r SyncReport) {
	fmt.Fprintf(w, "Synced %d entries and %d awards.\n", r.EntriesSynced, r.AwardsSynced)
	for _, msg := range r.Failed {
		fmt.Fprintf(w, "  failed: %s\n", msg)
	}
	if r.ToSync > 0 {
		fmt.Fprintf(w, "%d changes still waiting.\n", r.ToSync)
	}
}

func newOfflineCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Show or switch offline mode",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			return renderMode(a, f)
		}),
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "on",
			Short: "Work offline; changes are queued until `offline off`",
			Args:  cobra.NoArgs,
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				a.orch.SetOffline(true)
				return renderMode(a, f)
			}),
		},
		&cobra.Command{
			Use:   "off",
			Short: "Sync queued changes and go back online",
			Args:  cobra.NoArgs,
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				return a.Sync(ctx, f)
			}),
		},
	)
	return cmd
}

func renderMode(a *App, f *OutputFormatter) error {
	st := a.store.State()
	return f.Render(map[string]any{"mode": a.Mode(), "toSync": st.ToSync}, func(w io.Writer) {
		fmt.Fprintf(w, "Mode: %s, %d unsynced changes\n", a.Mode(), st.ToSync)
	})
}

