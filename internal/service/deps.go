package service

import (
	"context"

	"shop-service/internal/auth"
	"shop-service/internal/models"
	"shop-service/internal/store"
)

// DataStore is the repository plus its transaction primitive
type DataStore interface {
	store.Repository
	WithTx(ctx context.Context, fn func(store.Repository) error) error
}

// EventPublisher emits domain events after state changes commit
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error
}

// ProductCache is a read-through cache in front of product lookups
type ProductCache interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, bool, error)
	SetProduct(ctx context.Context, product *models.Product) error
	DeleteProducts(ctx context.Context, ids ...int64) error
}

// AssetStore holds uploaded product images
type AssetStore interface {
	UploadImage(ctx context.Context, image string) (*models.UploadedImage, error)
	Destroy(ctx context.Context, publicID string) error
}

// TokenManager issues and verifies bearer tokens
type TokenManager interface {
	Issue(id int64, email, role string) (string, error)
	Verify(raw string) (*auth.Claims, error)
}
