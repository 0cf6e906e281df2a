package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

// CheckoutTx exposes the operations available inside a single order-placement
// transaction. Stock reads through ProductForUpdate take row locks, so the
// stock check and the later decrement cannot be interleaved by a concurrent
// checkout touching the same product.
type CheckoutTx interface {
	CartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	DecrementStock(ctx context.Context, productID int64, qty int) error
	ClearCart(ctx context.Context, userID int64) error
}

// WithinCheckoutTx runs fn inside one database transaction. Any error from fn
// rolls back every write made so far; the transaction commits only when fn
// returns nil.
func (s *Store) WithinCheckoutTx(ctx context.Context, fn func(tx CheckoutTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&checkoutTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout transaction: %w", err)
	}
	return nil
}

type checkoutTx struct {
	tx *sqlx.Tx
}

func (c *checkoutTx) CartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := c.tx.SelectContext(ctx, &lines,
		"SELECT * FROM cart_lines WHERE user_id = $1 ORDER BY product_id", userID)
	return lines, err
}

func (c *checkoutTx) ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := c.tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 FOR UPDATE", productID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	return &product, nil
}

func (c *checkoutTx) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, total_price, placed)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return c.tx.GetContext(ctx, order, query,
		order.UserID, order.TotalPrice, order.Placed)
}

func (c *checkoutTx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return c.tx.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.Price)
}

func (c *checkoutTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res, err := c.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock for product %d: %w", productID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// The row was locked and validated before this point, so a miss here
		// means the stock guard caught a bug rather than a routine shortage.
		return fmt.Errorf("stock underflow prevented for product %d", productID)
	}
	return nil
}

func (c *checkoutTx) ClearCart(ctx context.Context, userID int64) error {
	_, err := c.tx.ExecContext(ctx, "DELETE FROM cart_lines WHERE user_id = $1", userID)
	return err
}
