package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced   = "ORDER_PLACED"
	EventTypeStockDepleted = "STOCK_DEPLETED"
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
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []OrderItemData `json:"items"`
}

// StockDepletedEvent published when a checkout drives a product's stock to zero
type StockDepletedEvent struct {
	BaseEvent
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	OrderID   int64  `json:"order_id"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
