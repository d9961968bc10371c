package model

import (
	"fmt"
	"strings"
)

// Validate checks the cart entry invariants.
func (c CartItem) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("cart item: empty id")
	}
	if c.Price.IsNegative() {
		return fmt.Errorf("cart item %s: negative price %s", c.ID, c.Price)
	}
	if c.Quantity < 1 {
		return fmt.Errorf("cart item %s: quantity %d < 1", c.ID, c.Quantity)
	}
	return nil
}

// Validate checks a menu item received from the server.
func (m MenuItem) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("menu item: empty id")
	}
	if m.Price.IsNegative() {
		return fmt.Errorf("menu item %s: negative price %s", m.ID, m.Price)
	}
	return nil
}

// Validate checks a menu write before it is sent.
func (r MenuItemRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("menu item: missing %s", strings.Join(missing, ", "))
	}
	if !r.Price.IsPositive() {
		return fmt.Errorf("menu item %s: price must be positive, got %s", r.Name, r.Price)
	}
	return nil
}

// Validate checks an order snapshot received from the server.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("order: empty id")
	}
	if !o.Status.Valid() {
		return fmt.Errorf("order %s: unknown status %q", o.ID, o.Status)
	}
	if o.TotalAmount.IsNegative() {
		return fmt.Errorf("order %s: negative total %s", o.ID, o.TotalAmount)
	}
	for i, l := range o.Lines {
		if l.Quantity < 1 {
			return fmt.Errorf("order %s: line %d quantity %d < 1", o.ID, i, l.Quantity)
		}
	}
	return nil
}

// Missing returns the required delivery fields that are blank.
func (d DeliveryInfo) Missing() []string {
	var missing []string
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(d.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(d.Address) == "" {
		missing = append(missing, "address")
	}
	return missing
}
