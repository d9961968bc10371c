package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/model"
)

// MenuOptions holds flags for the menu command.
type MenuOptions struct {
	*RootOptions
	Category  string
	Available bool
}

// MenuItemOptions holds flags for menu add and menu edit.
type MenuItemOptions struct {
	*RootOptions
	Name        string
	Price       string
	Category    string
	Description string
	Image       string
	Unavailable bool
	Available   bool // edit only
}

// NewMenuCommand creates the menu command and its staff subcommands.
func NewMenuCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MenuOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "List the dishes on the menu",
		Long: `List the dishes the restaurant serves.

Staff can also change the menu after 'foodking login'.

Example:
  foodking menu
  foodking menu --category Pizza --available
  foodking menu add --name "Masala Chai" --price 30 --category Drinks
  foodking menu edit drink-lassi --price 70
  foodking menu toggle drink-cola`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "only show this category")
	cmd.Flags().BoolVar(&opts.Available, "available", false, "hide dishes that are currently unavailable")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one dish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenuShow(cmd, rootOpts, args[0])
		},
	})
	cmd.AddCommand(newMenuAddCommand(rootOpts))
	cmd.AddCommand(newMenuEditCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <item-id>",
		Short: "Remove a dish from the menu (staff)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenuDelete(cmd, rootOpts, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <item-id>",
		Short: "Switch a dish between available and unavailable (staff)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenuToggle(cmd, rootOpts, args[0])
		},
	})

	return cmd
}

func newMenuAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MenuItemOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a dish to the menu (staff)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenuAdd(cmd, opts)
		},
	}
	addMenuItemFlags(cmd, opts)
	return cmd
}

func newMenuEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MenuItemOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "edit <item-id>",
		Short: "Change a dish (staff)",
		Long: `Change a dish. Only the flags given are changed; the rest of the dish
is kept as the server has it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenuEdit(cmd, opts, args[0])
		},
	}
	addMenuItemFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.Available, "available", false, "make the dish orderable again")
	return cmd
}

func addMenuItemFlags(cmd *cobra.Command, opts *MenuItemOptions) {
	cmd.Flags().StringVar(&opts.Name, "name", "", "dish name")
	cmd.Flags().StringVar(&opts.Price, "price", "", "price in rupees")
	cmd.Flags().StringVar(&opts.Category, "category", "", "menu category, e.g. Burgers")
	cmd.Flags().StringVar(&opts.Description, "description", "", "short description")
	cmd.Flags().StringVar(&opts.Image, "image", "", "picture URL")
	cmd.Flags().BoolVar(&opts.Unavailable, "unavailable", false, "list the dish but do not take orders for it")
}

// apply overlays the flags the user set on req.
func (o *MenuItemOptions) apply(cmd *cobra.Command, req *model.MenuItemRequest) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		req.Name = o.Name
	}
	if flags.Changed("price") {
		price, err := decimal.NewFromString(o.Price)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid price %q", o.Price), err)
		}
		req.Price = price
	}
	if flags.Changed("category") {
		req.Category = o.Category
	}
	if flags.Changed("description") {
		req.Description = o.Description
	}
	if flags.Changed("image") {
		req.Image = o.Image
	}
	if flags.Changed("available") && flags.Changed("unavailable") {
		return NewExitError(ExitCommandError, "--available and --unavailable cannot be combined")
	}
	if flags.Changed("unavailable") {
		req.Available = !o.Unavailable
	}
	if flags.Changed("available") {
		req.Available = o.Available
	}
	return nil
}

func runMenu(cmd *cobra.Command, opts *MenuOptions) error {
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		items, err := e.client.ListMenu(ctx, model.MenuFilter{
			Category:      opts.Category,
			AvailableOnly: opts.Available,
		})
		if err != nil {
			return err
		}
		return e.out.Success(items, func(w io.Writer) { renderMenu(w, items) })
	})
}

func runMenuShow(cmd *cobra.Command, opts *RootOptions, id string) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		it, err := e.client.GetMenuItem(ctx, id)
		if err != nil {
			return err
		}
		return e.out.Success(it, func(w io.Writer) { renderMenuItem(w, it) })
	})
}

func runMenuAdd(cmd *cobra.Command, opts *MenuItemOptions) error {
	req := model.MenuItemRequest{Available: true}
	if err := opts.apply(cmd, &req); err != nil {
		return err
	}
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		if _, err := e.staff(ctx); err != nil {
			return err
		}
		it, err := e.client.CreateMenuItem(ctx, req)
		if err != nil {
			return err
		}
		return e.out.Success(it, func(w io.Writer) {
			fmt.Fprintf(w, "Added %s as %s.\n", it.Name, it.ID)
		})
	})
}

func runMenuEdit(cmd *cobra.Command, opts *MenuItemOptions, id string) error {
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		if _, err := e.staff(ctx); err != nil {
			return err
		}
		current, err := e.client.GetMenuItem(ctx, id)
		if err != nil {
			return err
		}
		req := current.Request()
		if err := opts.apply(cmd, &req); err != nil {
			return err
		}
		it, err := e.client.UpdateMenuItem(ctx, id, req)
		if err != nil {
			return err
		}
		return e.out.Success(it, func(w io.Writer) { renderMenuItem(w, it) })
	})
}

func runMenuDelete(cmd *cobra.Command, opts *RootOptions, id string) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		if _, err := e.staff(ctx); err != nil {
			return err
		}
		if err := e.client.DeleteMenuItem(ctx, id); err != nil {
			return err
		}
		return e.out.Success(map[string]string{"deleted": id}, func(w io.Writer) {
			fmt.Fprintf(w, "Deleted %s.\n", id)
		})
	})
}

func runMenuToggle(cmd *cobra.Command, opts *RootOptions, id string) error {
	return withEnv(cmd, opts, func(ctx context.Context, e *env) error {
		if _, err := e.staff(ctx); err != nil {
			return err
		}
		it, err := e.client.ToggleAvailability(ctx, id)
		if err != nil {
			return err
		}
		state := "unavailable"
		if it.Available {
			state = "available"
		}
		return e.out.Success(it, func(w io.Writer) {
			fmt.Fprintf(w, "%s is now %s.\n", it.Name, state)
		})
	})
}
