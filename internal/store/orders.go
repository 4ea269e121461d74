package store

import (
	"context"
	"fmt"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	orderColumns     = `id, cart_total, order_status, ordered_by_id, stripe_payment_id, amount, status, currency, created_at, updated_at`
	orderLineColumns = `id, order_id, product_id, count, price`
)

// CreateOrder creates a new order with its line items
func (s *queries) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (cart_total, order_status, ordered_by_id, stripe_payment_id, amount, status, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := sqlx.GetContext(ctx, s.q, order, query,
		order.CartTotal, order.OrderStatus, order.OrderedByID, order.StripePaymentID,
		order.Amount, order.Status, order.Currency)
	if err != nil {
		return translate(err)
	}

	lineQuery := `
		INSERT INTO product_on_orders (order_id, product_id, count, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range order.Products {
		line := &order.Products[i]
		line.OrderID = order.ID
		err := sqlx.GetContext(ctx, s.q, &line.ID, lineQuery, order.ID, line.ProductID, line.Count, line.Price)
		if err != nil {
			return fmt.Errorf("failed to create order line: %w", translate(err))
		}
	}
	return nil
}

// GetOrderByID retrieves an order with its line items
func (s *queries) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, s.q, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, translate(err)
	}

	orders := []models.Order{order}
	if err := s.loadOrderLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// UpdateOrderStatus overwrites the fulfillment status and returns the updated order
func (s *queries) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, s.q, &order,
		"UPDATE orders SET order_status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+orderColumns,
		status, id)
	if err != nil {
		return nil, translate(err)
	}
	order.Products = []models.ProductOnOrder{}
	return &order, nil
}

// ListOrdersByUserID retrieves a user's orders with line items and products
func (s *queries) ListOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := sqlx.SelectContext(ctx, s.q, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE ordered_by_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, translate(err)
	}

	if err := s.loadOrderLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrders retrieves every order with line items, products and the restricted buyer view
func (s *queries) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	if err := sqlx.SelectContext(ctx, s.q, &orders, "SELECT "+orderColumns+" FROM orders ORDER BY id"); err != nil {
		return nil, translate(err)
	}
	if err := s.loadOrderLines(ctx, orders); err != nil {
		return nil, err
	}

	userIDs := make([]int64, 0, len(orders))
	for _, o := range orders {
		userIDs = append(userIDs, o.OrderedByID)
	}
	if len(userIDs) == 0 {
		return orders, nil
	}

	var buyers []models.OrderedBy
	err := sqlx.SelectContext(ctx, s.q, &buyers,
		"SELECT id, email, address FROM users WHERE id = ANY($1)", pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load order users: %w", translate(err))
	}
	byID := make(map[int64]*models.OrderedBy, len(buyers))
	for i := range buyers {
		byID[buyers[i].ID] = &buyers[i]
	}
	for i := range orders {
		orders[i].OrderedBy = byID[orders[i].OrderedByID]
	}
	return orders, nil
}

// loadOrderLines attaches line items, each with its product, to the orders
func (s *queries) loadOrderLines(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderIDs := make([]int64, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
	}

	var lines []models.ProductOnOrder
	err := sqlx.SelectContext(ctx, s.q, &lines,
		"SELECT "+orderLineColumns+" FROM product_on_orders WHERE order_id = ANY($1) ORDER BY id", pq.Array(orderIDs))
	if err != nil {
		return fmt.Errorf("failed to load order lines: %w", translate(err))
	}

	productIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ProductID)
	}
	products, err := s.loadProducts(ctx, productIDs)
	if err != nil {
		return fmt.Errorf("failed to load order products: %w", err)
	}

	byOrder := make(map[int64][]models.ProductOnOrder, len(orders))
	for _, line := range lines {
		line.Product = products[line.ProductID]
		byOrder[line.OrderID] = append(byOrder[line.OrderID], line)
	}
	for i := range orders {
		orders[i].Products = byOrder[orders[i].ID]
		if orders[i].Products == nil {
			orders[i].Products = []models.ProductOnOrder{}
		}
	}
	return nil
}
