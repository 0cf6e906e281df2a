package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CartService handles cart mutations and reads. The stock check here is a
// soft check for UX only; checkout re-validates under row locks.
type CartService struct {
	store      CartStore
	stockCache StockCache
	logger     *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, stockCache StockCache) *CartService {
	return &CartService{
		store:      store,
		stockCache: stockCache,
		logger:     util.GetLogger(),
	}
}

// CartSummary is a user's cart with its running total
type CartSummary struct {
	Lines []models.CartView `json:"lines"`
	Total decimal.Decimal   `json:"total"`
}

// AddToCart creates or increments the user's cart line for a product after a
// soft stock check. Returns the line and whether it was newly created.
func (s *CartService) AddToCart(ctx context.Context, userID, productID int64, qty int) (*models.CartLine, bool, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	if qty < 1 {
		return nil, false, ErrInvalidQuantity
	}

	stock, err := s.currentStock(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if stock <= 0 {
		util.CartAddRejectedTotal.Inc()
		return nil, false, ErrOutOfStock
	}

	line, created, err := s.store.UpsertCartLine(ctx, userID, productID, qty)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert cart line: %w", err)
	}

	util.CartAddsTotal.Inc()
	s.logger.Debug("Cart line upserted",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", line.Quantity),
		zap.Bool("created", created))

	return line, created, nil
}

// currentStock reads the stock mirror, falling back to the database when the
// cache misses or errors
func (s *CartService) currentStock(ctx context.Context, productID int64) (int, error) {
	stock, err := s.stockCache.Stock(ctx, productID)
	if err == nil {
		return stock, nil
	}

	s.logger.Warn("Stock cache miss, falling back to DB",
		zap.Int64("product_id", productID),
		zap.Error(err))

	return s.store.GetProductStock(ctx, productID)
}

// RemoveFromCart deletes a cart line owned by the user. A line that does not
// exist or belongs to another user is a silent no-op.
func (s *CartService) RemoveFromCart(ctx context.Context, userID, lineID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveFromCart")
	defer span.End()

	deleted, err := s.store.DeleteCartLine(ctx, lineID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	if !deleted {
		s.logger.Debug("Cart line removal matched nothing",
			zap.Int64("user_id", userID),
			zap.Int64("line_id", lineID))
	}
	return nil
}

// GetCart retrieves the user's cart lines with product data and the total at
// current catalog prices
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartSummary, error) {
	lines, err := s.store.GetCartView(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return &CartSummary{Lines: lines, Total: total}, nil
}

// SyncStockMirror seeds the stock cache from the database, bounded fan-out
func (s *CartService) SyncStockMirror(ctx context.Context) error {
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(10)

	for _, product := range products {
		product := product
		g.Go(func() error {
			if err := s.stockCache.SetStock(ctx, product.ID, product.Stock); err != nil {
				return fmt.Errorf("failed to seed stock for product %d: %w", product.ID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("Stock mirror synced", zap.Int("products", len(products)))
	return nil
}
