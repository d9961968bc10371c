package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// MenuItem is a dish as served by GET /menu.
type MenuItem struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image,omitempty"`
	Available   bool            `json:"isAvailable"`
}

// CartItem converts a menu entry into a cart entry with quantity 1.
func (m MenuItem) CartItem() CartItem {
	return CartItem{
		ID:       m.ID,
		Name:     m.Name,
		Price:    m.Price,
		Category: m.Category,
		Image:    m.Image,
		Quantity: 1,
	}
}

// MenuItemRequest is the body of POST /menu and PUT /menu/:id. Image is a
// URL; uploading the picture itself is not part of this API.
type MenuItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   bool            `json:"isAvailable"`
}

// Request returns the write body that reproduces m.
func (m MenuItem) Request() MenuItemRequest {
	return MenuItemRequest{
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Category:    m.Category,
		Image:       m.Image,
		Available:   m.Available,
	}
}

// CartItem is one menu item plus a quantity, keyed by the item id.
type CartItem struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
}

// LineTotal returns price × quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// PaymentMethod is how the customer pays on delivery or upfront.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "Online"
)

// Valid reports whether p is a supported payment method.
func (p PaymentMethod) Valid() bool {
	return p == PaymentCOD || p == PaymentOnline
}

// Location is a latitude/longitude pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultLocation is used whenever the device position is unavailable.
var DefaultLocation = Location{Lat: 26.5678, Lng: 84.3779}

// DeliveryInfo is what the customer types at checkout.
type DeliveryInfo struct {
	Name          string
	Phone         string
	Address       string
	Email         string
	PaymentMethod PaymentMethod
}

// OrderLine is an item snapshot taken when the order was placed.
type OrderLine struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Order is a server-owned purchase record.
type Order struct {
	ID               string          `json:"_id"`
	Lines            []OrderLine     `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	CustomerName     string          `json:"customerName"`
	CustomerPhone    string          `json:"customerPhone"`
	DeliveryAddress  string          `json:"deliveryAddress"`
	CustomerLocation Location        `json:"customerLocation"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	Status           OrderStatus     `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ItemCount returns the number of units across all lines.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Staff is the identity attached to an auth session.
type Staff struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DashboardStats are the aggregates shown on the staff dashboard.
type DashboardStats struct {
	TodayOrders    int             `json:"todayOrders"`
	PendingOrders  int             `json:"pendingOrders"`
	TodayRevenue   decimal.Decimal `json:"todayRevenue"`
	DeliveredToday int             `json:"deliveredToday"`
}

// Dashboard is one refresh of the staff dashboard.
type Dashboard struct {
	Stats  DashboardStats `json:"stats"`
	Recent []Order        `json:"recent"`
}

// OrderFilter narrows GET /orders. Zero values mean "no filter".
type OrderFilter struct {
	Status OrderStatus
	Limit  int
}

// MenuFilter narrows GET /menu.
type MenuFilter struct {
	Category      string
	AvailableOnly bool
}

// OrderItemRequest is one line of a create-order request. Price and name
// are resolved by the server.
type OrderItemRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	CustomerName     string             `json:"customerName"`
	CustomerPhone    string             `json:"customerPhone"`
	CustomerEmail    string             `json:"customerEmail,omitempty"`
	DeliveryAddress  string             `json:"deliveryAddress"`
	CustomerLocation Location           `json:"customerLocation"`
	Items            []OrderItemRequest `json:"items"`
	PaymentMethod    PaymentMethod      `json:"paymentMethod"`
}
