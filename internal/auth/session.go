package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/store"
)

// StorageKey is where the bearer token is persisted.
const StorageKey = "adminToken"

// Authenticator is the part of the REST API a session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, model.Staff, error)
	Me(ctx context.Context, token string) (model.Staff, error)
}

// State is a snapshot of the session delivered to subscribers.
type State struct {
	Authenticated bool
	Staff         model.Staff
}

// Session is the staff session. It is safe for concurrent use.
type Session struct {
	kv     store.KV
	server Authenticator
	logger *slog.Logger

	mu        sync.Mutex
	token     string
	staff     model.Staff
	valid     bool
	listeners map[int]func(State)
	nextID    int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Open restores the persisted token, if any, and validates it against the
// server.
//
// A token the server rejects is deleted. A token that could not be checked
// (network failure) is kept, but the session reports unauthenticated until
// Validate succeeds.
func Open(ctx context.Context, kv store.KV, server Authenticator, opts ...Option) *Session {
	s := &Session{
		kv:        kv,
		server:    server,
		logger:    slog.Default(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := kv.Get(ctx, StorageKey)
	switch {
	case err != nil:
		s.logger.Warn("could not read saved session", "error", err)
		return s
	case !ok:
		return s
	}
	s.token = strings.TrimSpace(string(raw))
	if s.token == "" {
		return s
	}
	if err := s.Validate(ctx); err != nil {
		s.logger.Info("saved session not restored", "error", err)
	}
	return s
}

// Validate checks the current token with the server. On AUTH failure the
// token is forgotten.
func (s *Session) Validate(ctx context.Context) error {
	const op = "auth.validate"

	token := s.Token()
	if token == "" {
		return model.NewAuthError(op, "no staff session")
	}
	staff, err := s.server.Me(ctx, token)
	if err != nil {
		if model.IsAuth(err) {
			s.forget(ctx, token)
		}
		return err
	}

	s.mu.Lock()
	if s.token != token {
		// Logged out or replaced while we were asking.
		s.mu.Unlock()
		return model.NewAuthError(op, "")
	}
	s.staff = staff
	s.valid = true
	s.mu.Unlock()

	s.notify()
	return nil
}

// Login authenticates with email and password and persists the token.
func (s *Session) Login(ctx context.Context, email, password string) (model.Staff, error) {
	const op = "auth.login"

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.Staff{}, model.NewValidationError(op, "email and password are required")
	}

	token, staff, err := s.server.Login(ctx, email, password)
	if err != nil {
		return model.Staff{}, err
	}
	if err := s.kv.Put(ctx, StorageKey, []byte(token)); err != nil {
		return model.Staff{}, fmt.Errorf("%s: save session: %w", op, err)
	}

	s.mu.Lock()
	s.token = token
	s.staff = staff
	s.valid = true
	s.mu.Unlock()

	s.logger.Info("staff logged in", "staff_id", staff.ID, "email", staff.Email)
	s.notify()
	return staff, nil
}

// Logout forgets the session locally. The server keeps no session state
// for bearer tokens, so nothing is sent.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	s.staff = model.Staff{}
	s.valid = false
	s.mu.Unlock()

	err := s.kv.Delete(ctx, StorageKey)
	if had {
		s.notify()
	}
	if err != nil {
		return fmt.Errorf("auth.logout: delete session: %w", err)
	}
	return nil
}

// Invalidate destroys the session after the server rejected its token.
func (s *Session) Invalidate(ctx context.Context) {
	s.forget(ctx, s.Token())
}

// forget clears the session if it still holds token.
func (s *Session) forget(ctx context.Context, token string) {
	s.mu.Lock()
	if token == "" || s.token != token {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.staff = model.Staff{}
	s.valid = false
	s.mu.Unlock()

	s.logger.Warn("staff session expired")
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		s.logger.Warn("could not delete saved session", "error", err)
	}
	s.notify()
}

// Token returns the bearer token, or "" without one.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether the token has been confirmed by the server.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}

// Staff returns the logged-in identity.
func (s *Session) Staff() (model.Staff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staff, s.valid
}

// Subscribe registers fn to be called after every change of state. The
// returned function unregisters it.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	st := State{Authenticated: s.valid, Staff: s.staff}
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
