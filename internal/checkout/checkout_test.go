package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foodking/internal/api"
	"github.com/roach88/foodking/internal/cart"
	"github.com/roach88/foodking/internal/devserver"
	"github.com/roach88/foodking/internal/model"
	"github.com/roach88/foodking/internal/store"
	"github.com/roach88/foodking/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// recorder is an OrderCreator that records requests.
type recorder struct {
	mu    sync.Mutex
	reqs  []model.CreateOrderRequest
	keys  []string
	err   error
	block chan struct{}
}

func (r *recorder) CreateOrder(ctx context.Context, req model.CreateOrderRequest, key string) (model.Order, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.keys = append(r.keys, key)
	block, err := r.block, r.err
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return model.Order{}, err
	}
	return model.Order{
		ID:          "order-1",
		Status:      model.StatusPending,
		TotalAmount: decimal.NewFromInt(420),
	}, nil
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

func menuItem(id string, price int64) model.CartItem {
	return model.CartItem{ID: id, Name: "Item " + id, Price: decimal.NewFromInt(price), Category: "Pizza", Quantity: 1}
}

func filledCart(t *testing.T) (*cart.Store, store.KV) {
	t.Helper()
	ctx := context.Background()
	kv := store.NewMemory()
	c := cart.Open(ctx, kv, cart.WithLogger(discard))
	require.NoError(t, c.Add(ctx, menuItem("pizza", 250)))
	require.NoError(t, c.Add(ctx, menuItem("lassi", 50)))
	require.NoError(t, c.Add(ctx, menuItem("lassi", 50)))
	require.NoError(t, c.Add(ctx, menuItem("lassi", 50)))
	return c, kv
}

var info = model.DeliveryInfo{
	Name:    "Asha",
	Phone:   "9876543210",
	Address: "12 MG Road, Motihari",
}

func TestSubmit_EmptyCartSendsNothing(t *testing.T) {
	srv := &recorder{}
	o := New(cart.Open(context.Background(), store.NewMemory()), srv, WithLogger(discard))

	_, err := o.Submit(context.Background(), info)

	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Zero(t, srv.calls())
}

func TestSubmit_MissingFieldsSendNothing(t *testing.T) {
	c, _ := filledCart(t)
	srv := &recorder{}
	o := New(c, srv, WithLogger(discard))

	_, err := o.Submit(context.Background(), model.DeliveryInfo{Address: "somewhere"})

	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, "please provide your name, phone", model.UserMessage(err))
	assert.Zero(t, srv.calls())
	assert.Equal(t, 2, c.Len(), "cart untouched")
}

func TestSubmit_UnknownPaymentMethod(t *testing.T) {
	c, _ := filledCart(t)
	srv := &recorder{}
	o := New(c, srv, WithLogger(discard))

	in := info
	in.PaymentMethod = "Cheque"
	_, err := o.Submit(context.Background(), in)

	assert.True(t, model.IsValidation(err))
	assert.Zero(t, srv.calls())
}

func TestSubmit_SuccessClearsCart(t *testing.T) {
	c, kv := filledCart(t)
	srv := &recorder{}
	keys := testutil.NewSequentialKeys("checkout")
	o := New(c, srv, WithLogger(discard), WithKeyGenerator(keys.Next))

	conf, err := o.Submit(context.Background(), info)
	require.NoError(t, err)

	assert.Equal(t, "order-1", conf.OrderID)
	assert.Equal(t, model.StatusPending, conf.Status)
	assert.True(t, decimal.NewFromInt(420).Equal(conf.Total))

	require.Equal(t, 1, srv.calls())
	req := srv.reqs[0]
	assert.Equal(t, []model.OrderItemRequest{
		{ItemID: "pizza", Quantity: 1},
		{ItemID: "lassi", Quantity: 3},
	}, req.Items)
	assert.Equal(t, "Asha", req.CustomerName)
	assert.Equal(t, model.PaymentCOD, req.PaymentMethod)
	assert.Equal(t, model.DefaultLocation, req.CustomerLocation)
	assert.Equal(t, []string{"checkout-1"}, srv.keys)

	assert.Zero(t, c.Len())
	_, ok, err := kv.Get(context.Background(), cart.StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmit_FailureLeavesCartUnchanged(t *testing.T) {
	c, kv := filledCart(t)
	before, _, err := kv.Get(context.Background(), cart.StorageKey)
	require.NoError(t, err)

	srv := &recorder{err: model.NewNetworkError("api.create_order", errors.New("connection refused"))}
	o := New(c, srv, WithLogger(discard))

	_, err = o.Submit(context.Background(), info)

	require.Error(t, err)
	assert.True(t, model.IsNetwork(err))
	assert.NotEmpty(t, model.UserMessage(err))
	assert.Equal(t, 1, srv.calls())
	assert.Equal(t, 2, c.Len())
	after, _, err := kv.Get(context.Background(), cart.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// brokenKV accepts reads and refuses every write and delete.
type brokenKV struct {
	*store.Memory
	broken bool
}

func (b *brokenKV) Put(ctx context.Context, key string, value []byte) error {
	if b.broken {
		return errors.New("read-only file system")
	}
	return b.Memory.Put(ctx, key, value)
}

func (b *brokenKV) Delete(ctx context.Context, key string) error {
	if b.broken {
		return errors.New("read-only file system")
	}
	return b.Memory.Delete(ctx, key)
}

func TestSubmit_UnclearableCartIsNotResubmitted(t *testing.T) {
	ctx := context.Background()
	kv := &brokenKV{Memory: store.NewMemory()}
	c := cart.Open(ctx, kv, cart.WithLogger(discard))
	require.NoError(t, c.Add(ctx, menuItem("pizza", 250)))
	kv.broken = true

	srv := &recorder{}
	o := New(c, srv, WithLogger(discard))

	conf, err := o.Submit(ctx, info)
	require.NoError(t, err, "the order was placed")
	assert.Equal(t, "order-1", conf.OrderID)
	assert.Zero(t, c.Len())

	_, err = o.Submit(ctx, info)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, "your cart is empty", model.UserMessage(err))
	assert.Equal(t, 1, srv.calls(), "no second create-order request")
}

func TestSubmit_DefaultKeyIsUUIDv7(t *testing.T) {
	c, _ := filledCart(t)
	srv := &recorder{}
	o := New(c, srv, WithLogger(discard))

	_, err := o.Submit(context.Background(), info)
	require.NoError(t, err)

	id, err := uuid.Parse(srv.keys[0])
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestSubmit_ConcurrentSubmitIsRejected(t *testing.T) {
	c, _ := filledCart(t)
	srv := &recorder{block: make(chan struct{})}
	o := New(c, srv, WithLogger(discard))

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), info)
		done <- err
	}()
	require.Eventually(t, func() bool { return srv.calls() == 1 }, time.Second, time.Millisecond)

	_, err := o.Submit(context.Background(), info)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, "checkout already in progress", model.UserMessage(err))

	close(srv.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, srv.calls())
}

func TestSubmit_Location(t *testing.T) {
	here := model.Location{Lat: 12.9716, Lng: 77.5946}

	tests := []struct {
		name    string
		locator Locator
		want    model.Location
	}{
		{
			name:    "fix",
			locator: LocatorFunc(func(context.Context) (model.Location, error) { return here, nil }),
			want:    here,
		},
		{
			name:    "denied",
			locator: LocatorFunc(func(context.Context) (model.Location, error) { return model.Location{}, errors.New("permission denied") }),
			want:    model.DefaultLocation,
		},
		{
			name: "timeout",
			locator: LocatorFunc(func(context.Context) (model.Location, error) {
				time.Sleep(200 * time.Millisecond)
				return here, nil
			}),
			want: model.DefaultLocation,
		},
		{
			name:    "out of range",
			locator: LocatorFunc(func(context.Context) (model.Location, error) { return model.Location{Lat: 123, Lng: 0}, nil }),
			want:    model.DefaultLocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := filledCart(t)
			srv := &recorder{}
			o := New(c, srv, WithLogger(discard), WithLocator(tt.locator), WithGeoTimeout(20*time.Millisecond))

			_, err := o.Submit(context.Background(), info)
			require.NoError(t, err)
			assert.Equal(t, tt.want, srv.reqs[0].CustomerLocation)
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name                 string
		items                []model.CartItem
		subtotal, tax, total int64
	}{
		{name: "empty", items: nil},
		{name: "round number", items: []model.CartItem{{ID: "a", Price: decimal.NewFromInt(400), Quantity: 1}}, subtotal: 400, tax: 20, total: 420},
		{name: "half rupee rounds up", items: []model.CartItem{{ID: "a", Price: decimal.NewFromInt(250), Quantity: 1}}, subtotal: 250, tax: 13, total: 263},
		{name: "quantities", items: []model.CartItem{
			{ID: "a", Price: decimal.NewFromInt(250), Quantity: 2},
			{ID: "b", Price: decimal.NewFromInt(90), Quantity: 1},
		}, subtotal: 590, tax: 30, total: 620},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuoteFor(tt.items)
			assert.True(t, decimal.NewFromInt(tt.subtotal).Equal(q.Subtotal), "subtotal %s", q.Subtotal)
			assert.True(t, decimal.NewFromInt(tt.tax).Equal(q.Tax), "tax %s", q.Tax)
			assert.True(t, decimal.NewFromInt(tt.total).Equal(q.Total), "total %s", q.Total)
		})
	}
}

func TestSubmit_AgainstDevServer(t *testing.T) {
	ctx := context.Background()
	backend, err := devserver.NewDemo(devserver.WithLogger(discard))
	require.NoError(t, err)
	ts := httptest.NewServer(backend)
	defer ts.Close()

	client, err := api.New(ts.URL+"/api", api.WithLogger(discard))
	require.NoError(t, err)

	menu, err := client.ListMenu(ctx, model.MenuFilter{})
	require.NoError(t, err)
	byID := make(map[string]model.MenuItem)
	for _, m := range menu {
		byID[m.ID] = m
	}

	kv := store.NewMemory()
	c := cart.Open(ctx, kv, cart.WithLogger(discard))
	require.NoError(t, c.Add(ctx, byID["pizza-margherita"].CartItem()))
	require.NoError(t, c.Add(ctx, byID["pizza-margherita"].CartItem()))
	require.NoError(t, c.Add(ctx, byID["side-fries"].CartItem()))

	o := New(c, client, WithLogger(discard))
	quote := o.Quote()
	assert.True(t, decimal.NewFromInt(620).Equal(quote.Total))

	conf, err := o.Submit(ctx, info)
	require.NoError(t, err)

	assert.True(t, quote.Total.Equal(conf.Total), "server total %s", conf.Total)
	assert.Equal(t, model.StatusPending, conf.Status)
	assert.Zero(t, c.Len())

	placed, ok := backend.Order(conf.OrderID)
	require.True(t, ok)
	assert.Equal(t, 3, placed.ItemCount())
	assert.Equal(t, model.DefaultLocation, placed.CustomerLocation)
}

func TestSubmit_ServerRejectionLeavesCart(t *testing.T) {
	ctx := context.Background()
	backend, err := devserver.NewDemo(devserver.WithLogger(discard))
	require.NoError(t, err)
	ts := httptest.NewServer(backend)
	defer ts.Close()

	client, err := api.New(ts.URL+"/api", api.WithLogger(discard))
	require.NoError(t, err)

	c := cart.Open(ctx, store.NewMemory(), cart.WithLogger(discard))
	require.NoError(t, c.Add(ctx, menuItem("no-such-dish", 100)))

	_, err = New(c, client, WithLogger(discard)).Submit(ctx, info)

	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Contains(t, model.UserMessage(err), "no-such-dish")
	assert.Equal(t, 1, c.Len())
}
