package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/foodking/internal/model"
)

// DefaultGeoTimeout bounds how long Submit waits for a location fix.
const DefaultGeoTimeout = 3 * time.Second

// TaxRate is applied to the subtotal and rounded to whole rupees.
var TaxRate = decimal.NewFromFloat(0.05)

// Cart is the part of the cart store checkout needs. After Clear returns,
// Items must be empty whether or not Clear reported an error.
type Cart interface {
	Items() []model.CartItem
	Clear(ctx context.Context) error
}

// OrderCreator places orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req model.CreateOrderRequest, key string) (model.Order, error)
}

// Locator reports the device position.
type Locator interface {
	Locate(ctx context.Context) (model.Location, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (model.Location, error)

// Locate calls f.
func (f LocatorFunc) Locate(ctx context.Context) (model.Location, error) {
	return f(ctx)
}

// Quote is the price breakdown of a cart.
type Quote struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// QuoteFor prices items.
func QuoteFor(items []model.CartItem) Quote {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	tax := subtotal.Mul(TaxRate).Round(0)
	return Quote{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

// Confirmation is the result of a successful checkout.
type Confirmation struct {
	OrderID string
	Total   decimal.Decimal
	Status  model.OrderStatus
	Order   model.Order
}

// Orchestrator runs checkouts against one cart.
type Orchestrator struct {
	cart       Cart
	server     OrderCreator
	locator    Locator
	geoTimeout time.Duration
	fallback   model.Location
	newKey     func() (string, error)
	logger     *slog.Logger

	inFlight atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocator sets the position source. Without one the default location
// is always used.
func WithLocator(l Locator) Option {
	return func(o *Orchestrator) { o.locator = l }
}

// WithGeoTimeout bounds the wait for a location fix.
func WithGeoTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.geoTimeout = d }
}

// WithDefaultLocation sets the coordinates sent when no fix is available.
func WithDefaultLocation(loc model.Location) Option {
	return func(o *Orchestrator) { o.fallback = loc }
}

// WithKeyGenerator replaces the idempotency key source.
func WithKeyGenerator(fn func() (string, error)) Option {
	return func(o *Orchestrator) { o.newKey = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator.
func New(cart Cart, server OrderCreator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cart:       cart,
		server:     server,
		geoTimeout: DefaultGeoTimeout,
		fallback:   model.DefaultLocation,
		newKey:     newUUIDKey,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newUUIDKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Quote prices the current cart.
func (o *Orchestrator) Quote() Quote {
	return QuoteFor(o.cart.Items())
}

// Submit places an order for the current cart.
func (o *Orchestrator) Submit(ctx context.Context, info model.DeliveryInfo) (Confirmation, error) {
	const op = "checkout.submit"

	if !o.inFlight.CompareAndSwap(false, true) {
		return Confirmation{}, model.NewValidationError(op, "checkout already in progress")
	}
	defer o.inFlight.Store(false)

	items := o.cart.Items()
	if len(items) == 0 {
		return Confirmation{}, model.NewValidationError(op, "your cart is empty")
	}
	if missing := info.Missing(); len(missing) > 0 {
		return Confirmation{}, model.NewValidationError(op, "please provide your "+strings.Join(missing, ", "))
	}
	payment := info.PaymentMethod
	if payment == "" {
		payment = model.PaymentCOD
	}
	if !payment.Valid() {
		return Confirmation{}, model.NewValidationError(op, fmt.Sprintf("unsupported payment method %q", payment))
	}

	key, err := o.newKey()
	if err != nil {
		return Confirmation{}, fmt.Errorf("%s: idempotency key: %w", op, err)
	}

	req := model.CreateOrderRequest{
		CustomerName:     strings.TrimSpace(info.Name),
		CustomerPhone:    strings.TrimSpace(info.Phone),
		CustomerEmail:    strings.TrimSpace(info.Email),
		DeliveryAddress:  strings.TrimSpace(info.Address),
		CustomerLocation: o.locate(ctx),
		Items:            make([]model.OrderItemRequest, 0, len(items)),
		PaymentMethod:    payment,
	}
	for _, it := range items {
		req.Items = append(req.Items, model.OrderItemRequest{ItemID: it.ID, Quantity: it.Quantity})
	}

	order, err := o.server.CreateOrder(ctx, req, key)
	if err != nil {
		o.logger.Warn("checkout failed", "idempotency_key", key, "error", err)
		return Confirmation{}, err
	}
	o.logger.Info("order placed", "order_id", order.ID, "total", order.TotalAmount.String())

	// The order exists, so a failed clear is not a failed checkout. Clear
	// empties the in-memory cart regardless, so a second Submit is refused.
	if err := o.cart.Clear(ctx); err != nil {
		o.logger.Warn("order placed but cart not cleared", "order_id", order.ID, "error", err)
	}

	return Confirmation{
		OrderID: order.ID,
		Total:   order.TotalAmount,
		Status:  order.Status,
		Order:   order,
	}, nil
}

type fix struct {
	loc model.Location
	err error
}

// locate returns the device position, or the fallback when the locator is
// missing, fails, times out or reports impossible coordinates.
func (o *Orchestrator) locate(ctx context.Context) model.Location {
	if o.locator == nil {
		return o.fallback
	}
	ctx, cancel := context.WithTimeout(ctx, o.geoTimeout)
	defer cancel()

	result := make(chan fix, 1)
	go func() {
		loc, err := o.locator.Locate(ctx)
		result <- fix{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		o.logger.Debug("location timed out, using default", "timeout", o.geoTimeout)
		return o.fallback
	case f := <-result:
		if f.err != nil {
			o.logger.Debug("location unavailable, using default", "error", f.err)
			return o.fallback
		}
		if f.loc.Lat < -90 || f.loc.Lat > 90 || f.loc.Lng < -180 || f.loc.Lng > 180 {
			o.logger.Debug("location out of range, using default", "lat", f.loc.Lat, "lng", f.loc.Lng)
			return o.fallback
		}
		return f.loc
	}
}
