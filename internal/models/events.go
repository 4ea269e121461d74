package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeProductDeleted     = "PRODUCT_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after a checkout commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID   int64           `json:"order_id"`
	UserID    int64           `json:"user_id"`
	UserEmail string          `json:"user_email"`
	CartTotal decimal.Decimal `json:"cart_total"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Items     []OrderItemData `json:"items"`
}

// ProductIDs returns the distinct products touched by the order
func (e *OrderPlacedEvent) ProductIDs() []int64 {
	seen := make(map[int64]bool, len(e.Items))
	ids := make([]int64, 0, len(e.Items))
	for _, item := range e.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

// OrderStatusChangedEvent published when an admin changes fulfillment state
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderStatus string `json:"order_status"`
}

// ProductDeletedEvent carries the image public ids left behind in the asset store
type ProductDeletedEvent struct {
	BaseEvent
	ProductID int64    `json:"product_id"`
	PublicIDs []string `json:"public_ids"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64           `json:"product_id"`
	Count     int             `json:"count"`
	Price     decimal.Decimal `json:"price"`
}
