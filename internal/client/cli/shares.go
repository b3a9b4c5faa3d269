package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/backpack/internal/client/models"
)

func newSharesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shares",
		Short: "Manage published awards and entries",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List shares",
		Args:  cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			st := a.store.State()
			shares := make([]models.Share, 0, len(st.Shares.Items))
			for _, id := range st.Shares.Items {
				if s, ok := st.Share(id); ok && (all || !s.IsDeleted) {
					shares = append(shares, s)
				}
			}
			return f.Render(shares, func(w io.Writer) { printShares(w, shares) })
		}),
	}
	list.Flags().BoolVar(&all, "all", false, "include removed shares")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "delete SHARE_ID",
			Short: "Unpublish a share",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
				if err := a.ensureLoaded(ctx); err != nil {
					return err
				}
				if err := a.orch.DeleteShare(ctx, models.ID(args[0])); err != nil {
					return err
				}
				return f.Render(map[string]string{"deleted": args[0]}, func(w io.Writer) { fmt.Fprintf(w, "Share %s removed.\n", args[0]) })
			}),
		},
	)
	return cmd
}
