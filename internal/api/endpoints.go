package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/roach88/foodking/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	Admin   model.Staff `json:"admin"`
}

type meResponse struct {
	Success bool        `json:"success"`
	Admin   model.Staff `json:"admin"`
}

// Login exchanges staff credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, model.Staff, error) {
	raw, err := c.do(ctx, call{
		op:        "login",
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      loginRequest{Email: email, Password: password},
		anonymous: true,
	})
	if err != nil {
		return "", model.Staff{}, err
	}
	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", model.Staff{}, invalidResponse("login", err)
	}
	if resp.Token == "" {
		return "", model.Staff{}, invalidResponse("login", fmt.Errorf("empty token"))
	}
	return resp.Token, resp.Admin, nil
}

// Me validates token and returns the identity it belongs to.
func (c *Client) Me(ctx context.Context, token string) (model.Staff, error) {
	if token == "" {
		return model.Staff{}, model.NewAuthError("api.me", "no staff session")
	}
	raw, err := c.do(ctx, call{
		op:     "me",
		method: http.MethodGet,
		path:   "/auth/me",
		token:  token,
	})
	if err != nil {
		return model.Staff{}, err
	}
	var resp meResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return model.Staff{}, invalidResponse("me", err)
	}
	return resp.Admin, nil
}

// ListMenu returns the menu, optionally filtered.
func (c *Client) ListMenu(ctx context.Context, f model.MenuFilter) ([]model.MenuItem, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.AvailableOnly {
		q.Set("available", "true")
	}
	raw, err := c.do(ctx, call{op: "list_menu", method: http.MethodGet, path: "/menu", query: q})
	if err != nil {
		return nil, err
	}
	var items []model.MenuItem
	if err := decodeData("list_menu", raw, &items); err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, invalidResponse("list_menu", err)
		}
	}
	return items, nil
}

// GetMenuItem returns one dish.
func (c *Client) GetMenuItem(ctx context.Context, id string) (model.MenuItem, error) {
	raw, err := c.do(ctx, call{op: "get_menu_item", method: http.MethodGet, path: menuPath(id)})
	if err != nil {
		return model.MenuItem{}, err
	}
	return decodeMenuItem("get_menu_item", raw)
}

// CreateMenuItem adds a dish to the menu (staff).
func (c *Client) CreateMenuItem(ctx context.Context, req model.MenuItemRequest) (model.MenuItem, error) {
	if err := req.Validate(); err != nil {
		return model.MenuItem{}, model.NewValidationError("api.create_menu_item", err.Error())
	}
	raw, err := c.do(ctx, call{op: "create_menu_item", method: http.MethodPost, path: "/menu", body: req})
	if err != nil {
		return model.MenuItem{}, err
	}
	return decodeMenuItem("create_menu_item", raw)
}

// UpdateMenuItem replaces every field of dish id (staff).
func (c *Client) UpdateMenuItem(ctx context.Context, id string, req model.MenuItemRequest) (model.MenuItem, error) {
	if err := req.Validate(); err != nil {
		return model.MenuItem{}, model.NewValidationError("api.update_menu_item", err.Error())
	}
	raw, err := c.do(ctx, call{op: "update_menu_item", method: http.MethodPut, path: menuPath(id), body: req})
	if err != nil {
		return model.MenuItem{}, err
	}
	return decodeMenuItem("update_menu_item", raw)
}

// DeleteMenuItem removes dish id from the menu (staff). Orders that already
// contain it keep their snapshot.
func (c *Client) DeleteMenuItem(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{op: "delete_menu_item", method: http.MethodDelete, path: menuPath(id)})
	return err
}

// ToggleAvailability flips whether dish id can be ordered (staff) and
// returns the dish as the server now has it.
func (c *Client) ToggleAvailability(ctx context.Context, id string) (model.MenuItem, error) {
	raw, err := c.do(ctx, call{
		op:     "toggle_availability",
		method: http.MethodPatch,
		path:   menuPath(id) + "/toggle-availability",
	})
	if err != nil {
		return model.MenuItem{}, err
	}
	return decodeMenuItem("toggle_availability", raw)
}

// CreateOrder submits a new order. key de-duplicates retries of the same
// checkout on the server.
func (c *Client) CreateOrder(ctx context.Context, req model.CreateOrderRequest, key string) (model.Order, error) {
	h := http.Header{}
	if key != "" {
		h.Set(IdempotencyHeader, key)
	}
	raw, err := c.do(ctx, call{
		op:     "create_order",
		method: http.MethodPost,
		path:   "/orders",
		body:   req,
		header: h,
	})
	if err != nil {
		return model.Order{}, err
	}
	return decodeOrder("create_order", raw)
}

// ListOrders returns orders, newest first, optionally filtered.
func (c *Client) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	raw, err := c.do(ctx, call{op: "list_orders", method: http.MethodGet, path: "/orders", query: q})
	if err != nil {
		return nil, err
	}
	var orders []model.Order
	if err := decodeData("list_orders", raw, &orders); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return nil, invalidResponse("list_orders", err)
		}
	}
	return orders, nil
}

// GetOrder returns a single order.
func (c *Client) GetOrder(ctx context.Context, id string) (model.Order, error) {
	raw, err := c.do(ctx, call{op: "get_order", method: http.MethodGet, path: orderPath(id)})
	if err != nil {
		return model.Order{}, err
	}
	return decodeOrder("get_order", raw)
}

// OrdersByPhone returns the orders placed with phone, newest first. It is
// how a customer finds an order whose id they no longer have.
func (c *Client) OrdersByPhone(ctx context.Context, phone string) ([]model.Order, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, model.NewValidationError("api.orders_by_phone", "please provide your phone number")
	}
	raw, err := c.do(ctx, call{
		op:     "orders_by_phone",
		method: http.MethodGet,
		path:   "/orders/customer/" + url.PathEscape(phone),
	})
	if err != nil {
		return nil, err
	}
	var orders []model.Order
	if err := decodeData("orders_by_phone", raw, &orders); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return nil, invalidResponse("orders_by_phone", err)
		}
	}
	return orders, nil
}

// UpdateStatus asks the server to move order id to status and returns the
// order as the server now has it.
func (c *Client) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, error) {
	raw, err := c.do(ctx, call{
		op:           "update_status",
		method:       http.MethodPut,
		path:         orderPath(id) + "/status",
		body:         map[string]string{"status": string(status)},
		statusUpdate: true,
	})
	if err != nil {
		return model.Order{}, err
	}
	return decodeOrder("update_status", raw)
}

// DashboardStats returns today's aggregates.
func (c *Client) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	raw, err := c.do(ctx, call{op: "dashboard_stats", method: http.MethodGet, path: "/orders/stats/dashboard"})
	if err != nil {
		return model.DashboardStats{}, err
	}
	var stats model.DashboardStats
	if err := decodeData("dashboard_stats", raw, &stats); err != nil {
		return model.DashboardStats{}, err
	}
	if stats.TodayOrders < 0 || stats.PendingOrders < 0 || stats.DeliveredToday < 0 || stats.TodayRevenue.IsNegative() {
		return model.DashboardStats{}, invalidResponse("dashboard_stats", fmt.Errorf("negative aggregate"))
	}
	return stats, nil
}

func orderPath(id string) string {
	return "/orders/" + url.PathEscape(id)
}

func menuPath(id string) string {
	return "/menu/" + url.PathEscape(id)
}

func decodeMenuItem(op string, raw []byte) (model.MenuItem, error) {
	var it model.MenuItem
	if err := decodeData(op, raw, &it); err != nil {
		return model.MenuItem{}, err
	}
	if err := it.Validate(); err != nil {
		return model.MenuItem{}, invalidResponse(op, err)
	}
	return it, nil
}

func decodeOrder(op string, raw []byte) (model.Order, error) {
	var o model.Order
	if err := decodeData(op, raw, &o); err != nil {
		return model.Order{}, err
	}
	if err := o.Validate(); err != nil {
		return model.Order{}, invalidResponse(op, err)
	}
	return o, nil
}
