package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/auth"
	"github.com/roach88/foodking/internal/lifecycle"
	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/poll"
)

// OrdersOptions holds flags for the orders list command.
type OrdersOptions struct {
	*RootOptions
	Status string
	Limit  int
	Watch  bool
}

// NewOrdersCommand creates the staff orders command and its subcommands.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List and manage orders (staff)",
		Long: `List orders and move them through the kitchen pipeline:

  Pending -> Accepted -> Preparing -> Out for Delivery -> Delivered

A pending order can also be rejected. Requires 'foodking login'.

Example:
  foodking orders --status pending
  foodking orders --watch
  foodking orders advance <order-id>
  foodking orders reject <order-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrdersList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "only show orders with this status")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most this many orders")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "keep refreshing the list")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <order-id>",
		Short: "Show an order in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderShow(cmd, rootOpts, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "advance <order-id> [status]",
		Short: "Move an order to its next status, or to the given one",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target model.OrderStatus
			if len(args) == 2 {
				s, err := model.ParseStatus(args[1])
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid status", err)
				}
				target = s
			}
			return runOrderTransition(cmd, rootOpts, args[0], target)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reject <order-id>",
		Short: "Reject a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderTransition(cmd, rootOpts, args[0], model.StatusRejected)
		},
	})

	return cmd
}

func (o *OrdersOptions) filter() (model.OrderFilter, error) {
	f := model.OrderFilter{Limit: o.Limit}
	if o.Limit < 0 {
		return f, NewExitError(ExitCommandError, "--limit must not be negative")
	}
	if o.Status != "" {
		s, err := model.ParseStatus(o.Status)
		if err != nil {
			return f, WrapExitError(ExitCommandError, "invalid --status", err)
		}
		f.Status = s
	}
	return f, nil
}

func runOrdersList(cmd *cobra.Command, opts *OrdersOptions) error {
	f, err := opts.filter()
	if err != nil {
		return err
	}
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		if _, err := e.staff(ctx); err != nil {
			return err
		}
		fetch := poll.Orders(e.client, f)
		if !opts.Watch {
			orders, err := fetch(ctx)
			if err != nil {
				return err
			}
			return e.out.Success(orders, func(w io.Writer) { renderOrders(w, orders) })
		}
		return watch(ctx, e, "orders", fetch, opts.Config.OrdersInterval, func(orders []model.Order) bool {
			_ = e.out.Success(orders, func(w io.Writer) {
				renderOrders(w, orders)
				renderUpdated(w, time.Now())
			})
			return false
		})
	})
}

func runOrderShow(cmd *cobra.Command, opts *RootOptions, id string) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		if _, err := e.staff(ctx); err != nil {
			return err
		}
		o, err := e.client.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		return e.out.Success(o, func(w io.Writer) { renderOrder(w, o) })
	})
}

// runOrderTransition moves order id to target, or one step forward when
// target is empty.
func runOrderTransition(cmd *cobra.Command, opts *RootOptions, id string, target model.OrderStatus) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		session, err := e.staff(ctx)
		if err != nil {
			return err
		}
		o, err := e.client.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		from := o.Status

		tr := newTransitioner(e, session)
		switch target {
		case "":
			err = tr.Advance(ctx, &o)
		case model.StatusRejected:
			err = tr.Reject(ctx, &o)
		default:
			err = tr.Request(ctx, &o, target)
		}
		if err != nil {
			return err
		}
		return e.out.Success(o, func(w io.Writer) {
			fmt.Fprintf(w, "Order %s: %s -> %s\n", o.ID, from, o.Status)
			if next := lifecycle.ActionLabel(o.Status); next != "" {
				fmt.Fprintf(w, "Next: %s\n", next)
			}
		})
	})
}

func newTransitioner(e *env, session *auth.Session) *lifecycle.Transitioner {
	return lifecycle.NewTransitioner(e.client, session,
		lifecycle.WithLogger(e.logger),
		lifecycle.WithResync(func(ctx context.Context, orderID string) {
			fmt.Fprintf(e.out.GetErrWriter(), "Order %s was changed by someone else, refreshed from the server.\n", orderID)
		}),
	)
}
