package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Wishlist toggle outcomes
const (
	WishlistAdded   = "added"
	WishlistRemoved = "removed"
)

// WishlistService handles the per-user liked-products set
type WishlistService struct {
	store  WishlistStore
	logger *zap.Logger
}

// NewWishlistService creates a new wishlist service
func NewWishlistService(store WishlistStore) *WishlistService {
	return &WishlistService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Toggle adds the product to the user's wishlist if absent, removes it if
// present. Toggling twice restores the original membership state.
func (s *WishlistService) Toggle(ctx context.Context, userID, productID int64) (string, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.Toggle")
	defer span.End()

	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return "", err
	}

	created, err := s.store.AddWishlistEntry(ctx, userID, productID)
	if err != nil {
		return "", fmt.Errorf("failed to add wishlist entry: %w", err)
	}

	action := WishlistAdded
	if !created {
		if err := s.store.DeleteWishlistEntry(ctx, userID, productID); err != nil {
			return "", fmt.Errorf("failed to remove wishlist entry: %w", err)
		}
		action = WishlistRemoved
	}

	util.WishlistTogglesTotal.WithLabelValues(action).Inc()
	s.logger.Debug("Wishlist toggled",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.String("action", action))

	return action, nil
}

// List retrieves the user's wishlisted products
func (s *WishlistService) List(ctx context.Context, userID int64) ([]models.Product, error) {
	return s.store.WishlistProducts(ctx, userID)
}
