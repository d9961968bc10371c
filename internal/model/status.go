package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OrderStatus is a stage of the delivery pipeline.
// The string value is the label used on the wire.
type OrderStatus string

const (
	StatusPending        OrderStatus = "Pending"
	StatusAccepted       OrderStatus = "Accepted"
	StatusPreparing      OrderStatus = "Preparing"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusRejected       OrderStatus = "Rejected"
)

// Statuses lists every status in pipeline order, Rejected last.
var Statuses = []OrderStatus{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
	StatusRejected,
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// ParseStatus accepts a wire label or a loose spelling of it
// ("out-for-delivery", "OutForDelivery", "delivered").
func ParseStatus(v string) (OrderStatus, error) {
	key := normalizeStatus(v)
	for _, s := range Statuses {
		if normalizeStatus(string(s)) == key {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", v)
}

func normalizeStatus(v string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(v)))
}

// UnmarshalJSON rejects labels outside the known set.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("order status: %w", err)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
