package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/lifecycle"
	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/poll"
)

// TrackOptions holds flags for the track command.
type TrackOptions struct {
	*RootOptions
	Phone    string
	Watch    bool
	Interval time.Duration
}

// NewTrackCommand creates the track command.
func NewTrackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "track [order-id]",
		Short: "Show where an order is",
		Long: `Show how far an order has come along the delivery pipeline.

With --watch the order is re-read until it is delivered or rejected.
Without an order id, --phone lists every order placed with that number.

Example:
  foodking track 0b8f3c1e-5d2a-4f7e-9c1b-2a6d8e4f0a11
  foodking track 0b8f3c1e-5d2a-4f7e-9c1b-2a6d8e4f0a11 --watch
  foodking track --phone 9876543210`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) > 1:
				return NewExitError(ExitCommandError, "track takes at most one order id")
			case len(args) == 1 && opts.Phone != "":
				return NewExitError(ExitCommandError, "give either an order id or --phone, not both")
			case len(args) == 0 && opts.Phone == "":
				return NewExitError(ExitCommandError, "give an order id or --phone")
			case opts.Phone != "" && opts.Watch:
				return NewExitError(ExitCommandError, "--watch needs an order id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Phone != "" {
				return runTrackPhone(cmd, opts)
			}
			return runTrack(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Phone, "phone", "", "list the orders placed with this phone number")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "keep refreshing until the order is finished")
	cmd.Flags().DurationVar(&opts.Interval, "interval", poll.DefaultTrackInterval, "refresh period with --watch")

	return cmd
}

func runTrack(cmd *cobra.Command, opts *TrackOptions, id string) error {
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		fetch := poll.Order(e.client, id)
		if !opts.Watch {
			o, err := fetch(ctx)
			if err != nil {
				return err
			}
			return e.out.Success(o, func(w io.Writer) { renderTracking(w, o) })
		}

		var last model.OrderStatus
		return watch(ctx, e, "track", fetch, opts.Interval, func(o model.Order) bool {
			if o.Status != last {
				last = o.Status
				_ = e.out.Success(o, func(w io.Writer) { renderTracking(w, o) })
			}
			return lifecycle.IsTerminal(o.Status)
		})
	})
}

func runTrackPhone(cmd *cobra.Command, opts *TrackOptions) error {
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		orders, err := e.client.OrdersByPhone(ctx, opts.Phone)
		if err != nil {
			return err
		}
		return e.out.Success(orders, func(w io.Writer) {
			if len(orders) == 0 {
				fmt.Fprintf(w, "No orders found for %s.\n", opts.Phone)
				return
			}
			for i, o := range orders {
				if i > 0 {
					fmt.Fprintln(w)
				}
				renderTracking(w, o)
				fmt.Fprintf(w, "Placed %s, %s\n", o.CreatedAt.Format(timeLayout), money(o.TotalAmount))
			}
		})
	})
}
