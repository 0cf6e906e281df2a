package store

import (
	"context"

	"storefront/internal/models"
)

// GetCartView retrieves the user's cart lines joined with product data
func (s *Store) GetCartView(ctx context.Context, userID int64) ([]models.CartView, error) {
	var lines []models.CartView
	err := s.db.SelectContext(ctx, &lines, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.added_at,
		       p.name AS product_name, p.price, p.stock
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.added_at, c.id`, userID)
	return lines, err
}

// UpsertCartLine creates a cart line or adds qty to an existing one.
// The second return value reports whether a new line was created, so call
// sites branch on found|created explicitly (xmax = 0 only on fresh rows).
func (s *Store) UpsertCartLine(ctx context.Context, userID, productID int64, qty int) (*models.CartLine, bool, error) {
	var row struct {
		models.CartLine
		Created bool `db:"created"`
	}

	err := s.db.GetContext(ctx, &row, `
		INSERT INTO cart_lines (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
		RETURNING id, user_id, product_id, quantity, added_at, (xmax = 0) AS created`,
		userID, productID, qty)
	if err != nil {
		return nil, false, err
	}
	return &row.CartLine, row.Created, nil
}

// DeleteCartLine deletes a line only if it belongs to the given user.
// Returns false when nothing matched, which covers both a missing line and a
// cross-user attempt.
func (s *Store) DeleteCartLine(ctx context.Context, lineID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE id = $1 AND user_id = $2", lineID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
