package devserver

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/foodking/internal/model"
)

// Demo staff credentials installed by NewDemo.
const (
	DemoEmail    = "admin@foodking.com"
	DemoPassword = "admin123"
)

var demoMenu = []model.MenuItem{
	{ID: "burger-classic", Name: "Classic Burger", Description: "Grilled patty, cheddar, house sauce", Price: decimal.NewFromInt(180), Category: "Burgers", Available: true},
	{ID: "burger-paneer", Name: "Paneer Tikka Burger", Description: "Tandoori paneer, mint mayo", Price: decimal.NewFromInt(160), Category: "Burgers", Available: true},
	{ID: "pizza-margherita", Name: "Margherita", Description: "Tomato, mozzarella, basil", Price: decimal.NewFromInt(250), Category: "Pizza", Available: true},
	{ID: "pizza-farmhouse", Name: "Farmhouse", Description: "Capsicum, onion, mushroom, corn", Price: decimal.NewFromInt(320), Category: "Pizza", Available: true},
	{ID: "starter-wings", Name: "Peri Peri Wings", Price: decimal.NewFromInt(220), Category: "Starters", Available: true},
	{ID: "side-fries", Name: "Masala Fries", Price: decimal.NewFromInt(90), Category: "Sides", Available: true},
	{ID: "drink-lassi", Name: "Sweet Lassi", Price: decimal.NewFromInt(60), Category: "Drinks", Available: true},
	{ID: "drink-cola", Name: "Cola", Price: decimal.NewFromInt(50), Category: "Drinks", Available: false},
	{ID: "dessert-brownie", Name: "Sizzling Brownie", Price: decimal.NewFromInt(150), Category: "Desserts", Available: true},
}

// NewDemo creates a server with a sample menu and one staff account
// (DemoEmail / DemoPassword).
func NewDemo(opts ...Option) (*Server, error) {
	s := New(opts...)
	for _, item := range demoMenu {
		s.AddMenuItem(item)
	}
	if _, err := s.AddStaff("Admin", DemoEmail, DemoPassword); err != nil {
		return nil, fmt.Errorf("seed staff: %w", err)
	}
	return s, nil
}
