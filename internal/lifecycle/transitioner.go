package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/foodking/internal/model"
)

// Server is the part of the REST API a Transitioner needs.
type Server interface {
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
}

// Session is the staff session that authorizes transitions.
type Session interface {
	Authenticated() bool
	Invalidate(ctx context.Context)
}

// Transitioner issues staff status changes.
type Transitioner struct {
	server   Server
	session  Session
	onResync func(ctx context.Context, orderID string)
	logger   *slog.Logger
}

// TransitionerOption configures a Transitioner.
type TransitionerOption func(*Transitioner)

// WithResync registers a hook called after the server rejects a change the
// client believed legal, typically a poll subscription's Refresh.
func WithResync(fn func(ctx context.Context, orderID string)) TransitionerOption {
	return func(t *Transitioner) { t.onResync = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) TransitionerOption {
	return func(t *Transitioner) { t.logger = l }
}

// NewTransitioner creates a Transitioner.
func NewTransitioner(server Server, session Session, opts ...TransitionerOption) *Transitioner {
	t := &Transitioner{server: server, session: session, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Request moves o to next.
//
// Without an authenticated session it fails with AUTH and does nothing.
// An illegal transition fails with INVALID_TRANSITION before any request.
// Otherwise the change is sent to the server and o is replaced by the
// server's confirmed order. On any failure o is unchanged, except when the
// server rejects the change: then o is refreshed from the server so the
// caller sees the status the server actually has.
func (t *Transitioner) Request(ctx context.Context, o *model.Order, next model.OrderStatus) error {
	const op = "lifecycle.request"

	if t.session == nil || !t.session.Authenticated() {
		return model.NewAuthError(op, "log in as staff to change an order's status")
	}
	if !CanTransition(o.Status, next) {
		return model.NewInvalidTransitionError(op, o.Status, next)
	}

	confirmed, err := t.server.UpdateStatus(ctx, o.ID, next)
	switch {
	case err == nil:
	case model.IsAuth(err):
		t.session.Invalidate(ctx)
		return err
	case model.IsInvalidTransition(err):
		t.logger.Warn("server rejected status change", "order_id", o.ID, "from", o.Status, "to", next, "error", err)
		t.resync(ctx, o)
		return err
	default:
		return err
	}

	if confirmed.ID != o.ID {
		return &model.Error{
			Code:    model.CodeNetwork,
			Op:      op,
			Message: "the server sent a response this client does not understand",
			Err:     fmt.Errorf("asked to update order %s, server answered for %s", o.ID, confirmed.ID),
		}
	}

	from := o.Status
	*o = confirmed
	t.logger.Info("order status changed", "order_id", o.ID, "from", from, "to", o.Status)
	return nil
}

// Advance moves o one step forward along the pipeline.
func (t *Transitioner) Advance(ctx context.Context, o *model.Order) error {
	next, ok := Next(o.Status)
	if !ok {
		return &model.Error{
			Code:    model.CodeInvalidTransition,
			Op:      "lifecycle.advance",
			Message: fmt.Sprintf("an order that is %s cannot move any further", o.Status),
		}
	}
	return t.Request(ctx, o, next)
}

// Reject rejects a pending order.
func (t *Transitioner) Reject(ctx context.Context, o *model.Order) error {
	return t.Request(ctx, o, model.StatusRejected)
}

// resync re-reads o from the server after a rejection and notifies the hook.
func (t *Transitioner) resync(ctx context.Context, o *model.Order) {
	fresh, err := t.server.GetOrder(ctx, o.ID)
	if err != nil {
		t.logger.Warn("resync after rejected status change failed", "order_id", o.ID, "error", err)
	} else {
		*o = fresh
	}
	if t.onResync != nil {
		t.onResync(ctx, o.ID)
	}
}
