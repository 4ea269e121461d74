package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// errStockShort aborts a checkout transaction when a conditional decrement misses
var errStockShort = errors.New("stock changed during checkout")

// OrderService handles order business logic
type OrderService struct {
	store          DataStore
	cache          ProductCache
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store DataStore, cache ProductCache, eventPublisher EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// PlaceOrderRequest carries the payment confirmation of a checkout
type PlaceOrderRequest struct {
	PaymentIntent *models.PaymentIntent `json:"paymentIntent" binding:"required"`
}

// OrderStatusRequest represents an admin fulfillment update. Missing
// fields are reported by ChangeOrderStatus.
type OrderStatusRequest struct {
	OrderID     int64  `json:"orderId"`
	OrderStatus string `json:"orderStatus"`
}

// PlaceOrder turns the user's cart into an order. Order creation, the stock
// decrement and the cart removal commit together or not at all.
func (s *OrderService) PlaceOrder(ctx context.Context, user *models.User, payment models.PaymentIntent) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	var (
		order    *models.Order
		shortage string
	)
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		cart, err := repo.LockCartByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return newError(KindEmptyCart, "Cart is Empty")
			}
			return err
		}
		if len(cart.Products) == 0 {
			return newError(KindEmptyCart, "Cart is Empty")
		}

		order = &models.Order{
			CartTotal:       cart.CartTotal,
			OrderStatus:     models.DefaultOrderStatus,
			OrderedByID:     user.ID,
			StripePaymentID: payment.ID,
			Amount:          decimal.New(payment.Amount, -2),
			Status:          payment.Status,
			Currency:        payment.Currency,
			Products:        make([]models.ProductOnOrder, 0, len(cart.Products)),
		}
		for _, line := range cart.Products {
			order.Products = append(order.Products, models.ProductOnOrder{
				ProductID: line.ProductID,
				Count:     line.Count,
				Price:     line.Price,
			})
		}

		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		for _, item := range stockDemand(order.Products) {
			ok, err := repo.DecrementStock(ctx, item.productID, item.count)
			if err != nil {
				return err
			}
			if !ok {
				shortage = s.productTitle(ctx, repo, item.productID)
				return errStockShort
			}
		}

		_, err = repo.DeleteCartByUserID(ctx, user.ID)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, errStockShort):
			util.CheckoutFailuresTotal.WithLabelValues("out_of_stock").Inc()
			return nil, wrapError(KindOutOfStock, fmt.Sprintf("Sorry, %s out of stock", shortage), err)
		case KindOf(err) == KindEmptyCart:
			util.CheckoutFailuresTotal.WithLabelValues("empty_cart").Inc()
			return nil, err
		}
		util.CheckoutFailuresTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", user.ID),
		zap.String("total", order.CartTotal.String()))

	s.evictStock(ctx, order)
	s.publishOrderPlaced(ctx, user, order)
	return order, nil
}

// statusLabel bounds the metric label set. Free-form statuses share "other".
func statusLabel(status string) string {
	for _, known := range models.KnownOrderStatuses {
		if status == known {
			return known
		}
	}
	return "other"
}

type demand struct {
	productID int64
	count     int
}

// stockDemand sums line counts per distinct product, ordered by product id
// so concurrent checkouts take row locks in the same order
func stockDemand(lines []models.ProductOnOrder) []demand {
	counts := make(map[int64]int, len(lines))
	for _, line := range lines {
		counts[line.ProductID] += line.Count
	}

	out := make([]demand, 0, len(counts))
	for id, count := range counts {
		out = append(out, demand{productID: id, count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out
}

// evictStock drops the cached copies of the products whose stock just moved.
// The OrderPlaced consumer evicts them again, so a failure here only widens
// the stale window until that event is handled.
func (s *OrderService) evictStock(ctx context.Context, order *models.Order) {
	ids := make([]int64, 0, len(order.Products))
	for _, item := range stockDemand(order.Products) {
		ids = append(ids, item.productID)
	}
	if err := s.cache.DeleteProducts(ctx, ids...); err != nil {
		s.logger.Warn("Failed to evict cached products", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (s *OrderService) productTitle(ctx context.Context, repo store.Repository, productID int64) string {
	products, err := repo.GetProductsByIDs(ctx, []int64{productID})
	if err != nil || len(products) == 0 {
		return "product"
	}
	return products[0].Title
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, user *models.User, order *models.Order) {
	items := make([]models.OrderItemData, 0, len(order.Products))
	for _, line := range order.Products {
		items = append(items, models.OrderItemData{
			ProductID: line.ProductID,
			Count:     line.Count,
			Price:     line.Price,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		UserID:    user.ID,
		UserEmail: user.Email,
		CartTotal: order.CartTotal,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Items:     items,
	}

	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish OrderPlaced event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// GetOrders lists the user's orders. Having none is a rejection.
func (s *OrderService) GetOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.store.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, newError(KindInvalidInput, "Order not found")
	}
	return orders, nil
}

// ListAllOrders returns every order with its lines and a restricted buyer view
func (s *OrderService) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ChangeOrderStatus overwrites the fulfillment state. Any status string is accepted.
func (s *OrderService) ChangeOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ChangeOrderStatus")
	defer span.End()

	if orderID == 0 || strings.TrimSpace(status) == "" {
		return nil, newError(KindInvalidInput, "orderId and orderStatus are required")
	}

	order, err := s.store.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "Order not found")
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrderStatusChangesTotal.WithLabelValues(statusLabel(status)).Inc()
	s.logger.Info("Order status changed", zap.Int64("order_id", orderID), zap.String("status", status))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:     orderID,
		OrderStatus: status,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Int64("order_id", orderID), zap.Error(err))
	}
	return order, nil
}
