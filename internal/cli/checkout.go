package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/checkout"
	"github.com/roach88/foodking/internal/model"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	Name    string
	Phone   string
	Address string
	Email   string
	Payment string
	Lat     float64
	Lng     float64
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Long: `Place an order for everything in the cart. The cart is emptied once the
server confirms the order.

Without --lat/--lng the configured default location is sent.

Example:
  foodking checkout --name "Asha" --phone 9876543210 --address "12 MG Road"
  foodking checkout --name "Asha" --phone 9876543210 --address "12 MG Road" --payment Online`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "your name")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "contact phone number")
	cmd.Flags().StringVar(&opts.Address, "address", "", "delivery address")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email for the receipt (optional)")
	cmd.Flags().StringVar(&opts.Payment, "payment", string(model.PaymentCOD), "payment method (COD|Online)")
	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "delivery latitude")
	cmd.Flags().Float64Var(&opts.Lng, "lng", 0, "delivery longitude")

	return cmd
}

func runCheckout(cmd *cobra.Command, opts *CheckoutOptions) error {
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		cfg := opts.Config
		copts := []checkout.Option{
			checkout.WithGeoTimeout(cfg.GeoTimeout),
			checkout.WithDefaultLocation(cfg.DefaultLocation),
			checkout.WithLogger(e.logger),
		}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			loc := model.Location{Lat: opts.Lat, Lng: opts.Lng}
			copts = append(copts, checkout.WithLocator(checkout.LocatorFunc(func(context.Context) (model.Location, error) {
				return loc, nil
			})))
		}

		orch := checkout.New(e.cart(ctx), e.client, copts...)
		conf, err := orch.Submit(ctx, model.DeliveryInfo{
			Name:          opts.Name,
			Phone:         opts.Phone,
			Address:       opts.Address,
			Email:         opts.Email,
			PaymentMethod: model.PaymentMethod(opts.Payment),
		})
		if err != nil {
			return err
		}

		return e.out.Success(conf.Order, func(w io.Writer) {
			fmt.Fprintf(w, "Order placed: %s\n", conf.OrderID)
			fmt.Fprintf(w, "Status: %s\n", conf.Status)
			fmt.Fprintf(w, "Total:  %s\n", money(conf.Total))
			fmt.Fprintf(w, "Track it with: foodking track %s\n", conf.OrderID)
		})
	})
}
