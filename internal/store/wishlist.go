package store

import (
	"context"

	"storefront/internal/models"
)

// AddWishlistEntry inserts a wishlist entry if absent. Returns true when the
// entry was created, false when the (user, product) pair already existed.
func (s *Store) AddWishlistEntry(ctx context.Context, userID, productID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO wishlist_entries (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteWishlistEntry removes a wishlist entry
func (s *Store) DeleteWishlistEntry(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM wishlist_entries WHERE user_id = $1 AND product_id = $2",
		userID, productID)
	return err
}

// WishlistProductIDs lists the product IDs a user has wishlisted
func (s *Store) WishlistProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		"SELECT product_id FROM wishlist_entries WHERE user_id = $1 ORDER BY added_at", userID)
	return ids, err
}

// WishlistProducts lists the products a user has wishlisted
func (s *Store) WishlistProducts(ctx context.Context, userID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, `
		SELECT p.*
		FROM wishlist_entries w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.added_at`, userID)
	return products, err
}
