package worker

import (
	"context"

	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// ProductEvictor drops cached products
type ProductEvictor interface {
	DeleteProducts(ctx context.Context, ids ...int64) error
}

// ImageDestroyer deletes images from the asset store
type ImageDestroyer interface {
	Destroy(ctx context.Context, publicID string) error
}

// Broadcaster pushes events to live admin sessions
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
}

// ReceiptSender mails order receipts
type ReceiptSender interface {
	SendOrderReceipt(ctx context.Context, event *models.OrderPlacedEvent) error
}

// EventWorker keeps derived state in step with the catalog: it evicts
// cached products whose stock moved and cleans up deleted products' images
type EventWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	cache        ProductEvictor
	assets       ImageDestroyer
	logger       *zap.Logger
}

// NewEventWorker creates a new event worker
func NewEventWorker(consumer *broker.Consumer, cache ProductEvictor, assets ImageDestroyer) *EventWorker {
	w := &EventWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		cache:        cache,
		assets:       assets,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler.OnProductDeleted(w.handleProductDeleted)
	return w
}

func (w *EventWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ids := event.ProductIDs()
	if err := w.cache.DeleteProducts(ctx, ids...); err != nil {
		return err
	}

	w.logger.Debug("Evicted products after order", zap.Int64("order_id", event.OrderID), zap.Int64s("product_ids", ids))
	return nil
}

// handleProductDeleted fails the message only when the cache eviction fails,
// which the consumer retries. Image removal errors are logged; an orphaned
// image is never served once the product row is gone.
func (w *EventWorker) handleProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error {
	if err := w.cache.DeleteProducts(ctx, event.ProductID); err != nil {
		return err
	}

	for _, publicID := range event.PublicIDs {
		if err := w.assets.Destroy(ctx, publicID); err != nil {
			w.logger.Warn("Failed to destroy product image",
				zap.Int64("product_id", event.ProductID),
				zap.String("public_id", publicID),
				zap.Error(err))
		}
	}
	return nil
}

// Start starts the worker
func (w *EventWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting event worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *EventWorker) Stop() error {
	w.logger.Info("Stopping event worker")
	return w.consumer.Close()
}

// NotificationWorker tells people about orders: the admin feed sees every
// order event and buyers get a receipt mail
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	feed         Broadcaster
	mailer       ReceiptSender
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, feed Broadcaster, mailer ReceiptSender) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		feed:         feed,
		mailer:       mailer,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	return w
}

func (w *NotificationWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	w.feed.Broadcast(event.EventType, event)

	if err := w.mailer.SendOrderReceipt(ctx, event); err != nil {
		w.logger.Error("Failed to send order receipt", zap.Int64("order_id", event.OrderID), zap.Error(err))
	}
	return nil
}

func (w *NotificationWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	w.feed.Broadcast(event.EventType, event)
	return nil
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}
