package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foodking/internal/api"
	"github.com/roach88/foodking/internal/devserver"
	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	backend *devserver.Server
	client  *api.Client
	kv      *store.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := devserver.NewDemo(devserver.WithLogger(discard))
	require.NoError(t, err)
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	client, err := api.New(ts.URL+"/api", api.WithLogger(discard))
	require.NoError(t, err)
	return &fixture{backend: backend, client: client, kv: store.NewMemory()}
}

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	s := Open(context.Background(), f.kv, f.client, WithLogger(discard))
	f.client.UseCredentials(s)
	return s
}

func savedToken(t *testing.T, kv store.KV) (string, bool) {
	t.Helper()
	v, ok, err := kv.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	return string(v), ok
}

func TestOpen_NoSavedToken(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Token())
	assert.Zero(t, f.backend.Requests(), "nothing to validate")
}

func TestLogin_PersistsToken(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	staff, err := s.Login(context.Background(), devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)

	assert.Equal(t, devserver.DemoEmail, staff.Email)
	assert.True(t, s.Authenticated())
	token, ok := savedToken(t, f.kv)
	require.True(t, ok)
	assert.Equal(t, s.Token(), token)

	got, ok := s.Staff()
	assert.True(t, ok)
	assert.Equal(t, staff, got)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	_, err := s.Login(context.Background(), devserver.DemoEmail, "nope")

	require.Error(t, err)
	assert.True(t, model.IsAuth(err))
	assert.Equal(t, "Invalid credentials", model.UserMessage(err))
	assert.False(t, s.Authenticated())
	_, ok := savedToken(t, f.kv)
	assert.False(t, ok)
}

func TestLogin_BlankCredentialsSendNothing(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	_, err := s.Login(context.Background(), "  ", "")

	assert.True(t, model.IsValidation(err))
	assert.Zero(t, f.backend.Requests())
}

func TestOpen_RestoresValidToken(t *testing.T) {
	f := newFixture(t)
	first := f.open(t)
	_, err := first.Login(context.Background(), devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)

	second := f.open(t)

	assert.True(t, second.Authenticated())
	assert.Equal(t, first.Token(), second.Token())
	staff, _ := second.Staff()
	assert.Equal(t, devserver.DemoEmail, staff.Email)
}

func TestOpen_DropsRejectedToken(t *testing.T) {
	f := newFixture(t)
	first := f.open(t)
	_, err := first.Login(context.Background(), devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)
	f.backend.Expire()

	second := f.open(t)

	assert.False(t, second.Authenticated())
	assert.Empty(t, second.Token())
	_, ok := savedToken(t, f.kv)
	assert.False(t, ok)
}

func TestOpen_KeepsTokenWhenServerUnreachable(t *testing.T) {
	f := newFixture(t)
	first := f.open(t)
	_, err := first.Login(context.Background(), devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)
	f.backend.FailNext(http.StatusServiceUnavailable, 1)

	second := f.open(t)

	assert.False(t, second.Authenticated())
	assert.Equal(t, first.Token(), second.Token())
	_, ok := savedToken(t, f.kv)
	assert.True(t, ok)

	require.NoError(t, second.Validate(context.Background()))
	assert.True(t, second.Authenticated())
}

func TestInvalidate_On401FromAnyCall(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	_, err := s.Login(context.Background(), devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)

	var states []State
	cancel := s.Subscribe(func(st State) { states = append(states, st) })
	defer cancel()

	f.backend.Expire()
	_, err = f.client.ListOrders(context.Background(), model.OrderFilter{})

	require.Error(t, err)
	assert.True(t, model.IsAuth(err))
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Token())
	_, ok := savedToken(t, f.kv)
	assert.False(t, ok)
	require.Len(t, states, 1)
	assert.False(t, states[0].Authenticated)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	_, err := s.Login(context.Background(), devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background()))

	assert.False(t, s.Authenticated())
	_, ok := savedToken(t, f.kv)
	assert.False(t, ok)
	require.NoError(t, s.Logout(context.Background()), "logout twice is fine")
}

func TestSubscribe_CancelStopsNotifications(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	calls := 0
	cancel := s.Subscribe(func(State) { calls++ })
	_, err := s.Login(context.Background(), devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	cancel()
	cancel()
	require.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, 1, calls)
}

// brokenKV fails every write.
type brokenKV struct{ *store.Memory }

func (brokenKV) Put(context.Context, string, []byte) error { return errors.New("read-only") }

func TestLogin_PersistFailureLeavesSessionLoggedOut(t *testing.T) {
	f := newFixture(t)
	s := Open(context.Background(), brokenKV{store.NewMemory()}, f.client, WithLogger(discard))

	_, err := s.Login(context.Background(), devserver.DemoEmail, devserver.DemoPassword)

	require.Error(t, err)
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Token())
}
