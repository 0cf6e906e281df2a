package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CatalogService handles catalog browsing: home lists, search, pagination,
// product detail with view counting
type CatalogService struct {
	store         CatalogStore
	pageSize      int
	homeCount     int
	featuredCount int
	logger        *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, pageSize, homeCount, featuredCount int) *CatalogService {
	return &CatalogService{
		store:         store,
		pageSize:      pageSize,
		homeCount:     homeCount,
		featuredCount: featuredCount,
		logger:        util.GetLogger(),
	}
}

// HomeView aggregates everything the storefront landing page shows
type HomeView struct {
	Products    []models.Product  `json:"products"`
	Featured    []models.Product  `json:"featured"`
	Categories  []models.Category `json:"categories"`
	WishlistIDs []int64           `json:"wishlist_ids,omitempty"`
}

// Home builds the landing page data. When query is non-empty the product list
// is a name search instead of the recent slice. userID 0 means anonymous and
// skips the wishlist lookup.
func (s *CatalogService) Home(ctx context.Context, query string, userID int64) (*HomeView, error) {
	view := &HomeView{}

	if query != "" {
		products, _, err := s.store.ListProducts(ctx, query, 0, s.homeCount, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to search products: %w", err)
		}
		view.Products = products
	} else {
		products, err := s.store.RecentProducts(ctx, s.homeCount)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		view.Products = products
	}

	featured, err := s.store.FeaturedProducts(ctx, s.featuredCount)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured products: %w", err)
	}
	view.Featured = featured

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	view.Categories = categories

	if userID != 0 {
		ids, err := s.store.WishlistProductIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list wishlist: %w", err)
		}
		view.WishlistIDs = ids
	}

	return view, nil
}

// ProductPage is one page of filtered catalog results
type ProductPage struct {
	Products   []models.Product `json:"products"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
}

// ListProducts returns one page of products filtered by search and category
func (s *CatalogService) ListProducts(ctx context.Context, search string, categoryID int64, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}

	products, total, err := s.store.ListProducts(ctx, search, categoryID, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := (total + s.pageSize - 1) / s.pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &ProductPage{
		Products:   products,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

// GetProductDetail retrieves a product and counts the view
func (s *CatalogService) GetProductDetail(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	views, err := s.store.IncrementProductViews(ctx, productID)
	if err != nil {
		// The detail page still renders when the counter bump fails
		s.logger.Warn("Failed to increment product views",
			zap.Int64("product_id", productID),
			zap.Error(err))
	} else {
		product.Views = views
		util.ProductViewsTotal.Inc()
	}

	return product, nil
}

// ListCategories retrieves all categories
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}
