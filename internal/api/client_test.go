package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/foodking/internal/devserver"
	"github.com/roach88/foodking/internal/model"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// staticCreds is a Credentials with a fixed token.
type staticCreds struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (c *staticCreds) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *staticCreds) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.token = ""
}

// capture records the last request and answers with a canned response.
type capture struct {
	mu     sync.Mutex
	last   *http.Request
	status int
	body   string
}

func (c *capture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.last = r.Clone(context.Background())
	status, body := c.status, c.body
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (c *capture) request() *http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func newCaptured(t *testing.T, status int, body string, opts ...Option) (*Client, *capture) {
	t.Helper()
	h := &capture{status: status, body: body}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := New(ts.URL+"/api", append([]Option{WithLogger(discard)}, opts...)...)
	require.NoError(t, err)
	return c, h
}

const orderJSON = `{"_id":"o1","items":[{"itemId":"a","name":"A","price":100,"quantity":2}],` +
	`"subtotal":200,"tax":10,"totalAmount":210,"customerName":"Asha","customerPhone":"1",` +
	`"deliveryAddress":"x","customerLocation":{"lat":1,"lng":2},"paymentMethod":"COD",` +
	`"status":"Out for Delivery","createdAt":"2025-03-01T12:00:00Z"}`

func TestNew_RejectsBadURLs(t *testing.T) {
	for _, u := range []string{"", "localhost:5000", "ftp://host/api", "://nope"} {
		_, err := New(u)
		assert.Error(t, err, u)
	}
	c, err := New("http://localhost:5000/api/")
	require.NoError(t, err)
	assert.Equal(t, "/api", c.base.Path)
}

func TestBearerHeader(t *testing.T) {
	c, h := newCaptured(t, http.StatusOK, `{"success":true,"data":[]}`)
	ctx := context.Background()

	_, err := c.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, h.request().Header.Get("Authorization"), "no credentials, no header")

	c.UseCredentials(&staticCreds{})
	_, err = c.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, h.request().Header.Get("Authorization"), "empty token, no header")

	c.UseCredentials(&staticCreds{token: "t0k"})
	_, err = c.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer t0k", h.request().Header.Get("Authorization"))
}

func TestLogin_IsAnonymous(t *testing.T) {
	c, h := newCaptured(t, http.StatusOK, `{"success":true,"token":"new","admin":{"_id":"s1","name":"Admin","email":"a@b.c"}}`,
		WithCredentials(&staticCreds{token: "old"}))

	token, staff, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	assert.Equal(t, "new", token)
	assert.Equal(t, "Admin", staff.Name)
	assert.Empty(t, h.request().Header.Get("Authorization"))
	assert.Equal(t, "/api/auth/login", h.request().URL.Path)
}

func TestMe_UsesExplicitToken(t *testing.T) {
	creds := &staticCreds{token: "bound"}
	c, h := newCaptured(t, http.StatusUnauthorized, `{"success":false,"message":"Not authorized"}`, WithCredentials(creds))

	_, err := c.Me(context.Background(), "restored")

	assert.True(t, model.IsAuth(err))
	assert.Equal(t, "Bearer restored", h.request().Header.Get("Authorization"))
	assert.Zero(t, creds.invalidated, "an explicit token belongs to the caller")
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		update bool
		code   model.ErrorCode
		msg    string
	}{
		{name: "401", status: 401, body: `{"success":false,"message":"Not authorized"}`, code: model.CodeAuth, msg: "Not authorized"},
		{name: "401 no body", status: 401, code: model.CodeAuth, msg: "your session has expired, please log in again"},
		{name: "404", status: 404, body: `{"success":false,"message":"Order not found"}`, code: model.CodeNotFound, msg: "Order not found"},
		{name: "400", status: 400, body: `{"success":false,"message":"Bad filter"}`, code: model.CodeValidation, msg: "Bad filter"},
		{name: "400 on update", status: 400, body: `{"success":false,"message":"Cannot change order"}`, update: true, code: model.CodeInvalidTransition, msg: "Cannot change order"},
		{name: "409 on update", status: 409, update: true, code: model.CodeInvalidTransition, msg: "the server refused this status change"},
		{name: "422 on update", status: 422, update: true, code: model.CodeInvalidTransition},
		{name: "403 on update", status: 403, update: true, code: model.CodeValidation},
		{name: "500", status: 500, body: `oops`, code: model.CodeNetwork, msg: "could not reach the server, please try again"},
		{name: "503", status: 503, code: model.CodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCaptured(t, tt.status, tt.body)
			var err error
			if tt.update {
				_, err = c.UpdateStatus(context.Background(), "o1", model.StatusAccepted)
			} else {
				_, err = c.ListOrders(context.Background(), model.OrderFilter{})
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, model.CodeOf(err), err.Error())
			if tt.msg != "" {
				assert.Equal(t, tt.msg, model.UserMessage(err))
			}
		})
	}
}

func TestUnauthorizedInvalidatesCredentials(t *testing.T) {
	creds := &staticCreds{token: "stale"}
	c, _ := newCaptured(t, http.StatusUnauthorized, `{"success":false,"message":"Not authorized"}`, WithCredentials(creds))

	_, err := c.DashboardStats(context.Background())

	assert.True(t, model.IsAuth(err))
	assert.Equal(t, 1, creds.invalidated)
	assert.Empty(t, creds.Token())
}

func TestTransportFailures(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := New(url+"/api", WithLogger(discard))
	require.NoError(t, err)
	_, err = c.ListMenu(context.Background(), model.MenuFilter{})
	assert.True(t, model.IsNetwork(err))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()
	c, err = New(slow.URL+"/api", WithLogger(discard), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	_, err = c.ListMenu(context.Background(), model.MenuFilter{})
	assert.True(t, model.IsNetwork(err))
}

func TestInvalidResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
		code model.ErrorCode
	}{
		{name: "not json", body: `<html>`, code: model.CodeNetwork},
		{name: "no data", body: `{"success":true}`, code: model.CodeNetwork},
		{name: "unknown status", body: `{"success":true,"data":{"_id":"o1","status":"Lost"}}`, code: model.CodeNetwork},
		{name: "empty id", body: `{"success":true,"data":{"_id":"","status":"Pending"}}`, code: model.CodeNetwork},
		{name: "negative total", body: `{"success":true,"data":{"_id":"o1","status":"Pending","totalAmount":-1}}`, code: model.CodeNetwork},
		{name: "success false", body: `{"success":false,"message":"Nope"}`, code: model.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCaptured(t, http.StatusOK, tt.body)
			_, err := c.GetOrder(context.Background(), "o1")
			require.Error(t, err)
			assert.Equal(t, tt.code, model.CodeOf(err), err.Error())
		})
	}
}

func TestGetOrder_Decodes(t *testing.T) {
	c, h := newCaptured(t, http.StatusOK, `{"success":true,"data":`+orderJSON+`}`)

	o, err := c.GetOrder(context.Background(), "o1")
	require.NoError(t, err)

	assert.Equal(t, "/api/orders/o1", h.request().URL.Path)
	assert.Equal(t, model.StatusOutForDelivery, o.Status)
	assert.Equal(t, 2, o.ItemCount())
	assert.Equal(t, "210", o.TotalAmount.String())
	assert.Equal(t, model.Location{Lat: 1, Lng: 2}, o.CustomerLocation)
}

func TestListOrders_Query(t *testing.T) {
	c, h := newCaptured(t, http.StatusOK, `{"success":true,"data":[]}`)

	_, err := c.ListOrders(context.Background(), model.OrderFilter{Status: model.StatusOutForDelivery, Limit: 5})
	require.NoError(t, err)

	q := h.request().URL.Query()
	assert.Equal(t, "Out for Delivery", q.Get("status"))
	assert.Equal(t, "5", q.Get("limit"))
}

func TestCreateOrder_SendsIdempotencyKey(t *testing.T) {
	c, h := newCaptured(t, http.StatusCreated, `{"success":true,"data":`+orderJSON+`}`)

	_, err := c.CreateOrder(context.Background(), model.CreateOrderRequest{}, "key-1")
	require.NoError(t, err)

	assert.Equal(t, "key-1", h.request().Header.Get(IdempotencyHeader))
	assert.Equal(t, http.MethodPost, h.request().Method)
	assert.Equal(t, "application/json", h.request().Header.Get("Content-Type"))
}

func TestSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	c, _ := newCaptured(t, http.StatusOK, `{"success":true,"data":[]}`, WithTracerProvider(tp))
	_, err := c.ListMenu(context.Background(), model.MenuFilter{})
	require.NoError(t, err)

	failing, _ := newCaptured(t, http.StatusNotFound, `{"success":false,"message":"Order not found"}`, WithTracerProvider(tp))
	_, err = failing.GetOrder(context.Background(), "nope")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "api.list_menu", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "api.get_order", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "Order not found", spans[1].Status().Description)
}

func TestAgainstDevServer(t *testing.T) {
	ctx := context.Background()
	backend, err := devserver.NewDemo(devserver.WithLogger(discard))
	require.NoError(t, err)
	ts := httptest.NewServer(backend)
	defer ts.Close()

	c, err := New(ts.URL+"/api", WithLogger(discard))
	require.NoError(t, err)

	token, staff, err := c.Login(ctx, devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, devserver.DemoEmail, staff.Email)
	c.UseCredentials(&staticCreds{token: token})

	me, err := c.Me(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, staff, me)

	order, err := c.CreateOrder(ctx, model.CreateOrderRequest{
		CustomerName:    "Asha",
		CustomerPhone:   "1",
		DeliveryAddress: "x",
		Items:           []model.OrderItemRequest{{ItemID: "dessert-brownie", Quantity: 1}},
	}, "k")
	require.NoError(t, err)

	updated, err := c.UpdateStatus(ctx, order.ID, model.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, updated.Status)

	_, err = c.UpdateStatus(ctx, order.ID, model.StatusDelivered)
	assert.True(t, model.IsInvalidTransition(err))

	stats, err := c.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TodayOrders)
	assert.Equal(t, "158", stats.TodayRevenue.String())

	_, err = c.GetOrder(ctx, "missing")
	assert.True(t, model.IsNotFound(err))
}

func TestPathIDsAreEscaped(t *testing.T) {
	c, h := newCaptured(t, http.StatusNotFound, `{"success":false,"message":"Order not found"}`)
	ctx := context.Background()

	_, err := c.GetOrder(ctx, "../menu")
	assert.True(t, model.IsNotFound(err))
	assert.Equal(t, "/api/orders/..%2Fmenu", h.request().URL.EscapedPath())

	_, err = c.UpdateStatus(ctx, "a b/c", model.StatusAccepted)
	assert.True(t, model.IsNotFound(err))
	assert.Equal(t, "/api/orders/a%20b%2Fc/status", h.request().URL.EscapedPath())

	_ = c.DeleteMenuItem(ctx, "x/../y")
	assert.Equal(t, "/api/menu/x%2F..%2Fy", h.request().URL.EscapedPath())

	_, _ = c.OrdersByPhone(ctx, "+91 98765")
	assert.Equal(t, "/api/orders/customer/+91%2098765", h.request().URL.EscapedPath())
}

func TestMenuWrites_ValidateBeforeSending(t *testing.T) {
	c, h := newCaptured(t, http.StatusOK, `{"success":true,"data":{}}`)
	ctx := context.Background()

	_, err := c.CreateMenuItem(ctx, model.MenuItemRequest{Name: "Chai", Category: "Drinks"})
	assert.True(t, model.IsValidation(err))
	_, err = c.UpdateMenuItem(ctx, "drink-lassi", model.MenuItemRequest{Price: decimal.NewFromInt(10)})
	assert.True(t, model.IsValidation(err))
	_, err = c.OrdersByPhone(ctx, "  ")
	assert.True(t, model.IsValidation(err))

	assert.Nil(t, h.request(), "nothing sent")
}

func TestMenuWritesAgainstDevServer(t *testing.T) {
	ctx := context.Background()
	backend, err := devserver.NewDemo(devserver.WithLogger(discard))
	require.NoError(t, err)
	ts := httptest.NewServer(backend)
	defer ts.Close()

	c, err := New(ts.URL+"/api", WithLogger(discard))
	require.NoError(t, err)

	chai := model.MenuItemRequest{Name: "Masala Chai", Price: decimal.NewFromInt(30), Category: "Drinks", Available: true}
	_, err = c.CreateMenuItem(ctx, chai)
	assert.True(t, model.IsAuth(err), "staff only")

	token, _, err := c.Login(ctx, devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)
	c.UseCredentials(&staticCreds{token: token})

	created, err := c.CreateMenuItem(ctx, chai)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Available)

	chai.Price = decimal.NewFromInt(35)
	updated, err := c.UpdateMenuItem(ctx, created.ID, chai)
	require.NoError(t, err)
	assert.Equal(t, "35", updated.Price.String())

	toggled, err := c.ToggleAvailability(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Available)

	got, err := c.GetMenuItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, toggled, got)

	require.NoError(t, c.DeleteMenuItem(ctx, created.ID))
	_, err = c.GetMenuItem(ctx, created.ID)
	assert.True(t, model.IsNotFound(err))

	order, err := c.CreateOrder(ctx, model.CreateOrderRequest{
		CustomerName:    "Asha",
		CustomerPhone:   "9876543210",
		DeliveryAddress: "x",
		Items:           []model.OrderItemRequest{{ItemID: "side-fries", Quantity: 1}},
	}, "")
	require.NoError(t, err)

	c.UseCredentials(nil)
	mine, err := c.OrdersByPhone(ctx, "9876543210")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)
}
