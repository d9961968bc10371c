package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/foodking/internal/api"
	"github.com/roach88/foodking/internal/auth"
	"github.com/roach88/foodking/internal/cart"
	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/store"
)

// env is what a command needs to talk to the server and the local state.
type env struct {
	opts   *RootOptions
	logger *slog.Logger
	out    *OutputFormatter
	client *api.Client
	kv     store.KV
	close  func() error

	// sess is the staff session once session has been called.
	sess *auth.Session
}

// openEnv builds the api client and opens local state.
func openEnv(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*env, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := api.New(cfg.APIURL, api.WithTimeout(cfg.HTTPTimeout), api.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid api url", err)
	}

	e := &env{
		opts:   opts,
		logger: logger,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
			Logger:    logger,
		},
		client: client,
	}

	if cfg.RedisAddr != "" {
		r, err := store.OpenRedis(ctx, store.RedisOptions{Addr: cfg.RedisAddr, Prefix: "foodking:"})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open redis state", err)
		}
		e.kv, e.close = r, r.Close
		e.out.VerboseLog("Using redis state at %s", cfg.RedisAddr)
		return e, nil
	}

	if dir := filepath.Dir(cfg.StatePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create state directory", err)
		}
	}
	st, err := store.Open(cfg.StatePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open state database", err)
	}
	e.kv, e.close = st, st.Close
	e.out.VerboseLog("Using state database %s", cfg.StatePath)
	return e, nil
}

// Close releases local state.
func (e *env) Close() {
	if e.close == nil {
		return
	}
	if err := e.close(); err != nil {
		e.logger.Error("error closing state", "error", err)
	}
}

// cart opens the persisted cart.
func (e *env) cart(ctx context.Context) *cart.Store {
	return cart.Open(ctx, e.kv, cart.WithLogger(e.logger))
}

// session restores the staff session and binds it to the client.
func (e *env) session(ctx context.Context) *auth.Session {
	s := auth.Open(ctx, e.kv, e.client, auth.WithLogger(e.logger))
	e.client.UseCredentials(s)
	e.sess = s
	return s
}

// staff restores the staff session and fails unless it is authenticated.
func (e *env) staff(ctx context.Context) (*auth.Session, error) {
	s := e.session(ctx)
	if s.Authenticated() {
		return s, nil
	}
	if s.Token() != "" {
		// Token kept because the server could not be reached.
		if err := s.Validate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, model.NewAuthError("cli", "log in as staff first (foodking login)")
}

// withEnv runs fn with an opened env.
func withEnv(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}

// findMenuItem looks id up on the server's menu.
func findMenuItem(ctx context.Context, client *api.Client, id string) (model.MenuItem, error) {
	items, err := client.ListMenu(ctx, model.MenuFilter{})
	if err != nil {
		return model.MenuItem{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.MenuItem{}, model.NewNotFoundError("cli.menu", "menu item", id)
}
