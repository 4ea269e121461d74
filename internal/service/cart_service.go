package service

import (
	"context"
	"errors"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService builds and clears a user's cart
type CartService struct {
	store  DataStore
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store DataStore) *CartService {
	return &CartService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CartItemRequest is one submitted line. Price is what the client saw when
// the item was added and is stored as-is.
type CartItemRequest struct {
	ProductID int64           `json:"id" binding:"required"`
	Count     int             `json:"count" binding:"required,min=1"`
	Price     decimal.Decimal `json:"price"`
}

// CartRequest represents a cart save
type CartRequest struct {
	Cart []CartItemRequest `json:"cart" binding:"dive"`
}

// CartView is the client view of a saved cart
type CartView struct {
	Products  []models.ProductOnCart `json:"products"`
	CartTotal decimal.Decimal        `json:"cartTotal"`
}

// BuildCart replaces the user's cart with items. Every line is checked
// against stock before anything is written.
func (s *CartService) BuildCart(ctx context.Context, userID int64, items []CartItemRequest) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.BuildCart")
	defer span.End()

	if len(items) == 0 {
		util.CartRejectionsTotal.WithLabelValues("invalid").Inc()
		return nil, newError(KindInvalidInput, "Invalid cart")
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.checkStock(ctx, items); err != nil {
		return nil, err
	}

	cart := &models.Cart{
		OrderedByID: userID,
		Products:    make([]models.ProductOnCart, 0, len(items)),
	}
	for _, item := range items {
		cart.Products = append(cart.Products, models.ProductOnCart{
			ProductID: item.ProductID,
			Count:     item.Count,
			Price:     item.Price,
		})
	}
	cart.CartTotal = cartTotal(cart.Products)

	// The user row lock serializes concurrent saves, so the second one
	// deletes the first one's cart instead of tripping the unique owner key.
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		if _, err := repo.LockUserByID(ctx, userID); err != nil {
			return err
		}
		if _, err := repo.DeleteCartByUserID(ctx, userID); err != nil {
			return err
		}
		return repo.CreateCart(ctx, cart)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	util.CartsSavedTotal.Inc()
	s.logger.Info("Cart saved",
		zap.Int64("user_id", userID),
		zap.Int("lines", len(cart.Products)),
		zap.String("total", cart.CartTotal.String()))
	return cart, nil
}

// checkStock fails with OutOfStock on the first line whose product is
// missing or short
func (s *CartService) checkStock(ctx context.Context, items []CartItemRequest) error {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if item.Count < 1 {
			util.CartRejectionsTotal.WithLabelValues("invalid").Inc()
			return newError(KindInvalidInput, "Invalid cart")
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || item.Count > product.Quantity {
			title := "product"
			if ok {
				title = product.Title
			}
			util.CartRejectionsTotal.WithLabelValues("out_of_stock").Inc()
			return newError(KindOutOfStock, fmt.Sprintf("Sorry, %s out of stock", title))
		}
	}
	return nil
}

func cartTotal(lines []models.ProductOnCart) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Count))))
	}
	return total
}

// GetCart returns the user's cart lines with their products
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "Cart not found")
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return &CartView{Products: cart.Products, CartTotal: cart.CartTotal}, nil
}

// EmptyCart deletes the user's cart and reports how many carts went away.
// A user without a cart gets zero.
func (s *CartService) EmptyCart(ctx context.Context, userID int64) (int64, error) {
	deleted, err := s.store.DeleteCartByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to empty cart: %w", err)
	}

	s.logger.Info("Cart emptied", zap.Int64("user_id", userID), zap.Int64("deleted", deleted))
	return deleted, nil
}

// SaveAddress overwrites the user's shipping address
func (s *CartService) SaveAddress(ctx context.Context, userID int64, address string) error {
	if err := s.store.SetUserAddress(ctx, userID, address); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, "User not found")
		}
		return fmt.Errorf("failed to save address: %w", err)
	}
	return nil
}
