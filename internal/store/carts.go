package store

import (
	"context"
	"fmt"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	cartColumns     = `id, cart_total, ordered_by_id, created_at, updated_at`
	cartLineColumns = `id, cart_id, product_id, count, price`
)

// CreateCart inserts a cart and its line items
func (s *queries) CreateCart(ctx context.Context, cart *models.Cart) error {
	err := sqlx.GetContext(ctx, s.q, cart,
		"INSERT INTO carts (cart_total, ordered_by_id) VALUES ($1, $2) RETURNING id, created_at, updated_at",
		cart.CartTotal, cart.OrderedByID)
	if err != nil {
		return translate(err)
	}

	query := `
		INSERT INTO product_on_carts (cart_id, product_id, count, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range cart.Products {
		line := &cart.Products[i]
		line.CartID = cart.ID
		err := sqlx.GetContext(ctx, s.q, &line.ID, query, cart.ID, line.ProductID, line.Count, line.Price)
		if err != nil {
			return fmt.Errorf("failed to insert cart line: %w", translate(err))
		}
	}
	return nil
}

// GetCartByUserID retrieves a user's cart with line items and their products
func (s *queries) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.getCart(ctx, "SELECT "+cartColumns+" FROM carts WHERE ordered_by_id = $1", userID)
	if err != nil {
		return nil, err
	}

	productIDs := make([]int64, 0, len(cart.Products))
	for _, line := range cart.Products {
		productIDs = append(productIDs, line.ProductID)
	}
	byID, err := s.loadProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	for i := range cart.Products {
		cart.Products[i].Product = byID[cart.Products[i].ProductID]
	}

	return cart, nil
}

// LockCartByUserID retrieves a user's cart holding a row lock until the
// surrounding transaction ends. Only meaningful inside WithTx.
func (s *queries) LockCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	return s.getCart(ctx, "SELECT "+cartColumns+" FROM carts WHERE ordered_by_id = $1 FOR UPDATE", userID)
}

func (s *queries) getCart(ctx context.Context, query string, userID int64) (*models.Cart, error) {
	var cart models.Cart
	if err := sqlx.GetContext(ctx, s.q, &cart, query, userID); err != nil {
		return nil, translate(err)
	}

	cart.Products = []models.ProductOnCart{}
	err := sqlx.SelectContext(ctx, s.q, &cart.Products,
		"SELECT "+cartLineColumns+" FROM product_on_carts WHERE cart_id = $1 ORDER BY id", cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart lines: %w", translate(err))
	}
	return &cart, nil
}

// DeleteCartByUserID removes the user's cart; line items go with it by cascade.
// It returns the number of carts removed, zero when there was none.
func (s *queries) DeleteCartByUserID(ctx context.Context, userID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM carts WHERE ordered_by_id = $1", userID)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// loadProducts returns products keyed by ID for line item expansion
func (s *queries) loadProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	byID := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	var products []models.Product
	err := sqlx.SelectContext(ctx, s.q, &products,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, translate(err)
	}
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}
