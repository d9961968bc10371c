package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/poll"
)

// DashboardOptions holds flags for the dashboard command.
type DashboardOptions struct {
	*RootOptions
	Watch bool
}

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DashboardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show today's numbers and the latest orders (staff)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "keep refreshing the dashboard")

	return cmd
}

func runDashboard(cmd *cobra.Command, opts *DashboardOptions) error {
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		if _, err := e.staff(ctx); err != nil {
			return err
		}
		fetch := poll.Dashboard(e.client)
		if !opts.Watch {
			d, err := fetch(ctx)
			if err != nil {
				return err
			}
			return e.out.Success(d, func(w io.Writer) { renderDashboard(w, d) })
		}
		return watch(ctx, e, "dashboard", fetch, opts.Config.DashboardInterval, func(d model.Dashboard) bool {
			_ = e.out.Success(d, func(w io.Writer) {
				renderDashboard(w, d)
				renderUpdated(w, time.Now())
			})
			return false
		})
	})
}
