package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/model"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Email    string
	Password string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as restaurant staff",
		Long: `Log in as restaurant staff. The session token is kept in local state
until it expires or you log out.

The password can also be given in FOODKING_PASSWORD.

Example:
  foodking login --email admin@foodking.com --password admin123`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "staff email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "staff password")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *LoginOptions) error {
	password := opts.Password
	if password == "" {
		password = opts.Config.Password
	}
	return withEnv(cmd, opts.RootOptions, func(ctx context.Context, e *env) error {
		staff, err := e.session(ctx).Login(ctx, opts.Email, password)
		if err != nil {
			return err
		}
		return e.out.Success(staff, func(w io.Writer) {
			fmt.Fprintf(w, "Logged in as %s <%s>.\n", staff.Name, staff.Email)
		})
	})
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the staff session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, rootOpts, func(ctx context.Context, e *env) error {
				if err := e.session(ctx).Logout(ctx); err != nil {
					return err
				}
				return e.out.Success(map[string]bool{"authenticated": false}, func(w io.Writer) {
					fmt.Fprintln(w, "Logged out.")
				})
			})
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in staff member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, rootOpts, func(ctx context.Context, e *env) error {
				s, err := e.staff(ctx)
				if err != nil {
					return err
				}
				staff, ok := s.Staff()
				if !ok {
					return model.NewAuthError("cli.whoami", "not logged in")
				}
				return e.out.Success(staff, func(w io.Writer) {
					fmt.Fprintf(w, "%s <%s>\n", staff.Name, staff.Email)
				})
			})
		},
	}
}
