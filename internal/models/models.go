package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalog
type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	SKU         string          `db:"sku" json:"sku"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	CategoryID  int64           `db:"category_id" json:"category_id"`
	Featured    bool            `db:"featured" json:"featured"`
	Views       int64           `db:"views" json:"views"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// CartLine is one (user, product, quantity) record pending purchase.
// The pair (user_id, product_id) is unique; repeat adds increment quantity.
type CartLine struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// CartView is a cart line joined with its product, for display and totals
type CartView struct {
	CartLine
	ProductName string          `db:"product_name" json:"product_name"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
}

// Order is immutable once created: total and items are price snapshots
// taken at checkout time and never reflect later catalog edits.
type Order struct {
	ID         int64           `db:"id" json:"id"`
	UserID     int64           `db:"user_id" json:"user_id"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	Placed     bool            `db:"placed" json:"placed"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// OrderItem captures quantity and unit price at the moment of purchase
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// WishlistEntry marks a product as liked by a user
type WishlistEntry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// User is an account identity
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	FirstName    string    `db:"first_name" json:"first_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Customer is the one-to-one profile record for a user account
type Customer struct {
	UserID           int64     `db:"user_id" json:"user_id"`
	Phone            string    `db:"phone" json:"phone"`
	Address          string    `db:"address" json:"address"`
	ProfileCompleted bool      `db:"profile_completed" json:"profile_completed"`
	JoinedAt         time.Time `db:"joined_at" json:"joined_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
