package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
)

// CheckoutStore provides the transactional boundary for order placement
type CheckoutStore interface {
	WithinCheckoutTx(ctx context.Context, fn func(tx store.CheckoutTx) error) error
}

// OrderStore provides read access to committed orders
type OrderStore interface {
	GetOrderForUser(ctx context.Context, orderID, userID int64) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// CartStore provides cart line persistence and the data the soft stock check
// falls back to when the cache is unavailable
type CartStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductStock(ctx context.Context, id int64) (int, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetCartView(ctx context.Context, userID int64) ([]models.CartView, error)
	UpsertCartLine(ctx context.Context, userID, productID int64, qty int) (*models.CartLine, bool, error)
	DeleteCartLine(ctx context.Context, lineID, userID int64) (bool, error)
}

// CatalogStore provides read-mostly catalog access
type CatalogStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, search string, categoryID int64, limit, offset int) ([]models.Product, int, error)
	RecentProducts(ctx context.Context, limit int) ([]models.Product, error)
	FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error)
	IncrementProductViews(ctx context.Context, id int64) (int64, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	WishlistProductIDs(ctx context.Context, userID int64) ([]int64, error)
}

// WishlistStore provides wishlist persistence
type WishlistStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	AddWishlistEntry(ctx context.Context, userID, productID int64) (bool, error)
	DeleteWishlistEntry(ctx context.Context, userID, productID int64) error
	WishlistProducts(ctx context.Context, userID int64) ([]models.Product, error)
}

// AccountStore provides user and customer profile persistence
type AccountStore interface {
	CreateUserWithProfile(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	EnsureCustomer(ctx context.Context, userID int64) (*models.Customer, bool, error)
	GetCustomer(ctx context.Context, userID int64) (*models.Customer, error)
	CompleteProfile(ctx context.Context, userID int64, phone, address string) (bool, error)
}

// SessionStore holds login sessions keyed by opaque token
type SessionStore interface {
	SetSession(ctx context.Context, token string, userID int64, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (int64, error)
	DeleteSession(ctx context.Context, token string) error
}

// StockCache is the non-authoritative stock mirror used for the add-to-cart
// soft check. The checkout transaction never consults it.
type StockCache interface {
	Stock(ctx context.Context, productID int64) (int, error)
	SetStock(ctx context.Context, productID int64, stock int) error
}

// EventPublisher publishes domain events after a checkout commits
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishStockDepleted(ctx context.Context, event *models.StockDepletedEvent) error
}
