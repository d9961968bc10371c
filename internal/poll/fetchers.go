package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/foodking/internal/model"
)

const (
	// DefaultOrdersInterval is the refresh period of the staff order list.
	DefaultOrdersInterval = 30 * time.Second

	// DefaultDashboardInterval is the refresh period of the dashboard.
	DefaultDashboardInterval = 60 * time.Second

	// DefaultTrackInterval is the refresh period of a customer tracking view.
	DefaultTrackInterval = 15 * time.Second

	// RecentOrders is how many orders the dashboard shows.
	RecentOrders = 5
)

// OrderLister lists orders.
type OrderLister interface {
	ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
}

// DashboardSource provides what the staff dashboard shows.
type DashboardSource interface {
	OrderLister
	DashboardStats(ctx context.Context) (model.DashboardStats, error)
}

// OrderGetter reads a single order.
type OrderGetter interface {
	GetOrder(ctx context.Context, id string) (model.Order, error)
}

// Orders fetches the order list matching f.
func Orders(src OrderLister, f model.OrderFilter) Fetcher[[]model.Order] {
	return func(ctx context.Context) ([]model.Order, error) {
		return src.ListOrders(ctx, f)
	}
}

// Dashboard fetches today's stats and the most recent orders. Both must
// succeed for the tick to count.
func Dashboard(src DashboardSource) Fetcher[model.Dashboard] {
	return func(ctx context.Context) (model.Dashboard, error) {
		stats, err := src.DashboardStats(ctx)
		if err != nil {
			return model.Dashboard{}, fmt.Errorf("dashboard stats: %w", err)
		}
		recent, err := src.ListOrders(ctx, model.OrderFilter{Limit: RecentOrders})
		if err != nil {
			return model.Dashboard{}, fmt.Errorf("recent orders: %w", err)
		}
		return model.Dashboard{Stats: stats, Recent: recent}, nil
	}
}

// Order fetches a single order, for customer tracking.
func Order(src OrderGetter, id string) Fetcher[model.Order] {
	return func(ctx context.Context) (model.Order, error) {
		return src.GetOrder(ctx, id)
	}
}
