package worker

import (
	"context"
	"fmt"
	"log"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// StockMirrorWorker consumes order events and keeps the Redis stock mirror in
// step with the committed decrements, so the add-to-cart soft check stays
// close to reality between full syncs.
type StockMirrorWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewStockMirrorWorker creates a new stock mirror worker
func NewStockMirrorWorker(consumer *broker.Consumer, st *store.Store, redis *redisclient.Client) *StockMirrorWorker {
	w := &StockMirrorWorker{
		consumer: consumer,
		store:    st,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnStockDepleted(w.handleStockDepleted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *StockMirrorWorker) Start(ctx context.Context) error {
	log.Println("Starting stock mirror worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockMirrorWorker) Stop() error {
	log.Println("Stopping stock mirror worker...")
	return w.consumer.Close()
}

// handleOrderPlaced lowers the mirror by each committed item quantity,
// exactly once per event
func (w *StockMirrorWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	for _, item := range event.Items {
		if _, err := w.redis.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			w.logger.Error("Failed to decrement stock mirror",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	w.logger.Info("Stock mirror updated for order",
		zap.Int64("order_id", event.OrderID),
		zap.Int("items", len(event.Items)))
	return nil
}

// handleStockDepleted pins the mirror to zero from the authoritative count,
// covering any drift the per-item decrements accumulated
func (w *StockMirrorWorker) handleStockDepleted(ctx context.Context, event *models.StockDepletedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	stock, err := w.store.GetProductStock(ctx, event.ProductID)
	if err != nil {
		return fmt.Errorf("failed to read stock for product %d: %w", event.ProductID, err)
	}

	if err := w.redis.SetStock(ctx, event.ProductID, stock); err != nil {
		w.logger.Error("Failed to refresh stock mirror",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	w.logger.Info("Stock depleted",
		zap.Int64("product_id", event.ProductID),
		zap.String("sku", event.SKU),
		zap.Int64("order_id", event.OrderID))
	return nil
}
