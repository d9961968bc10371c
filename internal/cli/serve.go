package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/devserver"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Ready, when set, receives the bound address once the server listens.
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local FoodKing API with a demo menu",
		Long: `Run an in-memory FoodKing API for trying the client out. It serves a
demo menu and one staff account. Nothing is persisted.

Example:
  foodking serve --addr :5000
  FOODKING_API_URL=http://localhost:5000/api foodking menu`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "localhost:5000", "listen address")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := devserver.NewDemo(devserver.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to seed demo server", err)
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signalContext(parentCtx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	addr := ln.Addr().String()
	logger.Info("demo server listening", "addr", addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving FoodKing API on http://%s/api\n", addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Staff login: %s / %s\n", devserver.DemoEmail, devserver.DemoPassword)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.Ready != nil {
		opts.Ready(addr)
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	logger.Info("demo server stopped")
	return nil
}
