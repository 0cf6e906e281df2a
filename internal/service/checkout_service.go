package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutService is the order transaction engine: it converts a user's cart
// into an immutable order, or commits nothing.
type CheckoutService struct {
	store          CheckoutStore
	orders         OrderStore
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(store CheckoutStore, orders OrderStore, eventPublisher EventPublisher) *CheckoutService {
	return &CheckoutService{
		store:          store,
		orders:         orders,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// PlaceOrderResult carries the committed order and its items so the caller
// can render confirmation without a second read
type PlaceOrderResult struct {
	Order *models.Order      `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// PlaceOrder validates and commits the user's cart as one atomic unit.
//
// Inside a single transaction: every cart line's product row is locked and
// its stock checked; any shortage fails the whole operation with
// *InsufficientStockError and no mutation. Only when every line passes does
// the commit pass create the order, snapshot item prices, decrement stock and
// delete the cart lines. An empty cart fails with ErrEmptyCart.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID int64) (*PlaceOrderResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	var result PlaceOrderResult
	var depleted []models.Product

	err := s.store.WithinCheckoutTx(ctx, func(tx store.CheckoutTx) error {
		lines, err := tx.CartLines(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to read cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Validation pass. Lines arrive ordered by product id, so locks are
		// always taken in the same order across concurrent checkouts.
		products := make(map[int64]*models.Product, len(lines))
		var shortages []StockShortage
		for _, line := range lines {
			product, err := tx.ProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			products[line.ProductID] = product

			if product.Stock < line.Quantity {
				shortages = append(shortages, StockShortage{
					ProductID: product.ID,
					Name:      product.Name,
					Requested: line.Quantity,
					Available: product.Stock,
				})
			}
		}
		if len(shortages) > 0 {
			return &InsufficientStockError{Shortages: shortages}
		}

		// Commit pass. Prices are snapshotted from the locked rows, so the
		// total and the item prices cannot drift apart.
		total := decimal.Zero
		for _, line := range lines {
			lineTotal := products[line.ProductID].Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
		}

		order := &models.Order{
			UserID:     userID,
			TotalPrice: total,
			Placed:     true,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			product := products[line.ProductID]

			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     product.Price,
			}
			if err := tx.CreateOrderItem(ctx, &item); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}

			if err := tx.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
				return err
			}
			if product.Stock == line.Quantity {
				depleted = append(depleted, *product)
			}

			items = append(items, item)
		}

		if err := tx.ClearCart(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		result.Order = order
		result.Items = items
		return nil
	})

	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", result.Order.ID),
		zap.Int64("user_id", userID),
		zap.String("total", result.Order.TotalPrice.String()),
		zap.Int("items", len(result.Items)))

	s.publishOrderEvents(ctx, &result, depleted)

	return &result, nil
}

// publishOrderEvents publishes post-commit events. Failures are logged only:
// the order is already durable and must not be rolled back by broker trouble.
func (s *CheckoutService) publishOrderEvents(ctx context.Context, result *PlaceOrderResult, depleted []models.Product) {
	items := make([]models.OrderItemData, len(result.Items))
	for i, item := range result.Items {
		items[i] = models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:    result.Order.ID,
		UserID:     result.Order.UserID,
		TotalPrice: result.Order.TotalPrice,
		Items:      items,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	for _, product := range depleted {
		util.StockDepletedTotal.Inc()
		depletedEvent := &models.StockDepletedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeStockDepleted,
				Timestamp: time.Now(),
			},
			ProductID: product.ID,
			SKU:       product.SKU,
			OrderID:   result.Order.ID,
		}
		if err := s.eventPublisher.PublishStockDepleted(ctx, depletedEvent); err != nil {
			s.logger.Error("Failed to publish StockDepleted event",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}
}

func failureReason(err error) string {
	var stockErr *InsufficientStockError
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	default:
		return "storage"
	}
}

// GetOrder retrieves one of the user's orders with its items
func (s *CheckoutService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.orders.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.orders.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// ListOrders retrieves the user's order history, newest first
func (s *CheckoutService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.orders.GetOrdersByUserID(ctx, userID)
}
