package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCart is returned by PlaceOrder when the user has no cart lines
	ErrEmptyCart = errors.New("cart is empty")

	// ErrOutOfStock is returned by the add-to-cart soft check
	ErrOutOfStock = errors.New("product is out of stock")

	// ErrInvalidQuantity is returned when a cart mutation requests qty < 1
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInvalidCredentials covers both unknown username and bad password
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken is returned when registering an existing username
	ErrUsernameTaken = errors.New("username already taken")

	// ErrUnauthenticated is returned for missing or expired sessions
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrProfileAlreadyCompleted guards the one-way completion flag
	ErrProfileAlreadyCompleted = errors.New("profile already completed")
)

// StockShortage identifies one cart line whose quantity exceeds stock
type StockShortage struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError reports every cart line that failed the stock check.
// The checkout transaction rolls back entirely when this is returned, so the
// cart is left intact for the user to adjust.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = fmt.Sprintf("%s: requested %d, available %d", s.Name, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}
