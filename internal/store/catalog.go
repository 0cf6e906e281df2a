package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"
)

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductStock reads the current stock count for a product
func (s *Store) GetProductStock(ctx context.Context, id int64) (int, error) {
	var stock int
	err := s.db.GetContext(ctx, &stock, "SELECT stock FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("product not found: %d", id)
	}
	return stock, err
}

// ListProducts retrieves a page of products filtered by a name search and/or
// category, newest first, along with the unfiltered match count for paging.
func (s *Store) ListProducts(ctx context.Context, search string, categoryID int64, limit, offset int) ([]models.Product, int, error) {
	where := "WHERE ($1 = '' OR name ILIKE '%' || $1 || '%') AND ($2 = 0 OR category_id = $2)"

	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM products "+where, search, categoryID); err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products "+where+" ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4",
		search, categoryID, limit, offset)
	return products, total, err
}

// RecentProducts retrieves the newest products for the home listing
func (s *Store) RecentProducts(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	return products, err
}

// FeaturedProducts retrieves products flagged as featured
func (s *Store) FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE featured ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	return products, err
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// IncrementProductViews bumps the view counter and returns the new count.
// Single-statement update so concurrent detail views never lose increments.
func (s *Store) IncrementProductViews(ctx context.Context, id int64) (int64, error) {
	var views int64
	err := s.db.GetContext(ctx, &views,
		"UPDATE products SET views = views + 1 WHERE id = $1 RETURNING views", id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("product not found: %d", id)
	}
	return views, err
}

// ListCategories retrieves all categories
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}
