package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/cart"
	"github.com/roach88/foodking/internal/checkout"
	"github.com/roach88/foodking/internal/model"
)

// NewCartCommand creates the cart command and its subcommands.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and edit the cart",
		Long: `Show and edit the cart. The cart is kept in local state and survives
restarts until the order is placed.

Example:
  foodking cart add pizza-margherita
  foodking cart set pizza-margherita 2
  foodking cart`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartShow(cmd, rootOpts)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the cart with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartShow(cmd, rootOpts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <item-id>",
		Short: "Add one unit of a menu item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartAdd(cmd, rootOpts, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartRemove(cmd, rootOpts, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <item-id> <quantity>",
		Short: "Set the quantity of an item (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid quantity %q", args[1]))
			}
			return runCartSet(cmd, rootOpts, args[0], qty)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartClear(cmd, rootOpts)
		},
	})

	return cmd
}

func viewOf(c *cart.Store) cartView {
	items := c.Items()
	if items == nil {
		items = []model.CartItem{}
	}
	q := checkout.QuoteFor(items)
	return cartView{
		Items:    items,
		Count:    c.Count(),
		Subtotal: q.Subtotal,
		Tax:      q.Tax,
		Total:    q.Total,
	}
}

func quantityOf(c *cart.Store, id string) int {
	for _, it := range c.Items() {
		if it.ID == id {
			return it.Quantity
		}
	}
	return 0
}

func runCartShow(cmd *cobra.Command, opts *RootOptions) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		v := viewOf(e.cart(ctx))
		return e.out.Success(v, func(w io.Writer) { renderCart(w, v) })
	})
}

func runCartAdd(cmd *cobra.Command, opts *RootOptions, id string) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		item, err := findMenuItem(ctx, e.client, id)
		if err != nil {
			return err
		}
		if !item.Available {
			return model.NewValidationError("cli.cart.add", fmt.Sprintf("%s is currently unavailable", item.Name))
		}
		c := e.cart(ctx)
		if err := c.Add(ctx, item.CartItem()); err != nil {
			return err
		}
		v := viewOf(c)
		return e.out.Success(v, func(w io.Writer) {
			fmt.Fprintf(w, "Added %s (%d in cart).\n", item.Name, quantityOf(c, id))
		})
	})
}

func runCartRemove(cmd *cobra.Command, opts *RootOptions, id string) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		c := e.cart(ctx)
		if quantityOf(c, id) == 0 {
			return model.NewNotFoundError("cli.cart.remove", "cart item", id)
		}
		if err := c.Remove(ctx, id); err != nil {
			return err
		}
		v := viewOf(c)
		return e.out.Success(v, func(w io.Writer) {
			fmt.Fprintf(w, "Removed %s.\n", id)
		})
	})
}

func runCartSet(cmd *cobra.Command, opts *RootOptions, id string, qty int) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		c := e.cart(ctx)
		if err := c.SetQuantity(ctx, id, qty); err != nil {
			return err
		}
		v := viewOf(c)
		return e.out.Success(v, func(w io.Writer) { renderCart(w, v) })
	})
}

func runCartClear(cmd *cobra.Command, opts *RootOptions) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		c := e.cart(ctx)
		if err := c.Clear(ctx); err != nil {
			return err
		}
		v := viewOf(c)
		return e.out.Success(v, func(w io.Writer) { fmt.Fprintln(w, "Cart cleared.") })
	})
}
