package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles categories, products and product images
type CatalogService struct {
	store          DataStore
	cache          ProductCache
	assets         AssetStore
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	store DataStore,
	cache ProductCache,
	assets AssetStore,
	eventPublisher EventPublisher,
) *CatalogService {
	return &CatalogService{
		store:          store,
		cache:          cache,
		assets:         assets,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CategoryRequest represents a category create form
type CategoryRequest struct {
	Name string `json:"name" binding:"required,min=3"`
}

// ProductRequest is the full field set of a product create or update.
// Price and quantity accept JSON numbers or numeric strings.
type ProductRequest struct {
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Price       decimal.Decimal        `json:"price"`
	Quantity    decimal.Decimal        `json:"quantity"`
	CategoryID  *int64                 `json:"categoryId"`
	Images      []models.UploadedImage `json:"images"`
}

// ProductByRequest selects the top products by one sort key
type ProductByRequest struct {
	Sort  string `json:"sort" binding:"required"`
	Order string `json:"order" binding:"required,oneof=asc desc"`
	Limit int    `json:"limit" binding:"required,min=1"`
}

// SearchRequest carries the optional search filters. Supplied filters are ANDed.
type SearchRequest struct {
	Query    string            `json:"query"`
	Category []int64           `json:"category"`
	Price    []decimal.Decimal `json:"price"`
}

// CreateCategory adds a category with a unique name
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateCategory")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(KindInvalidInput, "Category name is required")
	}
	if len([]rune(name)) < 3 {
		return nil, newError(KindInvalidInput, "Category name must be at least 3 characters")
	}

	_, err := s.store.GetCategoryByName(ctx, name)
	switch {
	case err == nil:
		return nil, newError(KindConflict, "Duplicated category name")
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check category: %w", err)
	}

	category := &models.Category{Name: name}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, wrapError(KindConflict, "Duplicated category name", err)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created", zap.Int64("category_id", category.ID), zap.String("name", name))
	return category, nil
}

// ListCategories returns every category, possibly none
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

// DeleteCategory removes a category; its products keep existing uncategorized
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) (*models.Category, error) {
	members, err := s.store.ListProducts(ctx, models.ProductQuery{CategoryIDs: []int64{id}})
	if err != nil {
		return nil, fmt.Errorf("failed to list category products: %w", err)
	}

	category, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "Category not found")
		}
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}

	// cached members still embed the deleted category
	ids := make([]int64, 0, len(members))
	for _, p := range members {
		ids = append(ids, p.ID)
	}
	s.invalidate(ctx, ids...)
	return category, nil
}

func (r *ProductRequest) apply(product *models.Product) error {
	if r.Price.IsNegative() {
		return newError(KindInvalidInput, "price must not be negative")
	}
	if r.Quantity.IsNegative() {
		return newError(KindInvalidInput, "quantity must not be negative")
	}

	product.Title = strings.TrimSpace(r.Title)
	product.Description = r.Description
	product.Price = r.Price
	product.Quantity = int(r.Quantity.IntPart())
	product.CategoryID = r.CategoryID

	product.Images = make([]models.ProductImage, 0, len(r.Images))
	for _, img := range r.Images {
		product.Images = append(product.Images, models.ProductImage{
			AssetID:   img.AssetID,
			PublicID:  img.PublicID,
			URL:       img.URL,
			SecureURL: img.SecureURL,
		})
	}
	return nil
}

// CreateProduct adds a product and any supplied images in one transaction
func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	product := &models.Product{}
	if err := req.apply(product); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		return repo.CreateProduct(ctx, product)
	})
	if err != nil {
		if errors.Is(err, store.ErrForeignKey) {
			return nil, wrapError(KindNotFound, "Category not found", err)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID))
	return product, nil
}

// GetProduct reads a product with category and images, through the cache
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	cached, ok, err := s.cache.GetProduct(ctx, id)
	if err != nil {
		util.ProductCacheRequests.WithLabelValues("error").Inc()
		s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	} else if ok {
		util.ProductCacheRequests.WithLabelValues("hit").Inc()
		return cached, nil
	} else {
		util.ProductCacheRequests.WithLabelValues("miss").Inc()
	}

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "Product not found")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return product, nil
}

// ListProducts returns one page of products, newest first
func (s *CatalogService) ListProducts(ctx context.Context, page, limit int) ([]models.Product, error) {
	if page < 1 || limit < 1 {
		return nil, newError(KindInvalidInput, "page and limit must be positive integers")
	}

	return s.store.ListProducts(ctx, models.ProductQuery{
		SortBy: "createdAt",
		Limit:  limit,
		Offset: limit * (page - 1),
	})
}

// UpdateProduct replaces every product field; supplied images are appended
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	var product *models.Product
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		existing, err := repo.GetProductByID(ctx, id)
		if err != nil {
			return err
		}
		if err := req.apply(existing); err != nil {
			return err
		}
		if err := repo.UpdateProduct(ctx, existing); err != nil {
			return err
		}

		product, err = repo.GetProductByID(ctx, id)
		return err
	})
	if err != nil {
		switch {
		case KindOf(err) != KindInternal:
			return nil, err
		case errors.Is(err, store.ErrNotFound):
			return nil, newError(KindNotFound, "Product not found")
		case errors.Is(err, store.ErrForeignKey):
			return nil, wrapError(KindNotFound, "Category not found", err)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidate(ctx, id)
	s.logger.Info("Product updated", zap.Int64("product_id", id))
	return product, nil
}

// DeleteProduct removes a product. Its images are destroyed asynchronously
// by whoever consumes the PRODUCT_DELETED event.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	product, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return newError(KindNotFound, "Product not found")
		case errors.Is(err, store.ErrForeignKey):
			return wrapError(KindConflict, "Product is referenced by existing orders", err)
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.invalidate(ctx, id)

	publicIDs := make([]string, 0, len(product.Images))
	for _, img := range product.Images {
		publicIDs = append(publicIDs, img.PublicID)
	}

	event := &models.ProductDeletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeProductDeleted,
			Timestamp: time.Now(),
		},
		ProductID: id,
		PublicIDs: publicIDs,
	}
	if err := s.eventPublisher.PublishProductDeleted(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish ProductDeleted event", zap.Int64("product_id", id), zap.Error(err))
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

// ListProductsBy returns the first limit products ordered by one sort key
func (s *CatalogService) ListProductsBy(ctx context.Context, req *ProductByRequest) ([]models.Product, error) {
	if _, ok := models.ProductSortColumns[req.Sort]; !ok {
		return nil, newError(KindInvalidInput, fmt.Sprintf("cannot sort by %q", req.Sort))
	}
	if req.Order != "asc" && req.Order != "desc" {
		return nil, newError(KindInvalidInput, "order must be asc or desc")
	}
	if req.Limit < 1 {
		return nil, newError(KindInvalidInput, "limit must be a positive integer")
	}

	return s.store.ListProducts(ctx, models.ProductQuery{
		SortBy:    req.Sort,
		Ascending: req.Order == "asc",
		Limit:     req.Limit,
	})
}

// Search runs every supplied filter as one query. Without filters it
// returns the whole catalog, newest first.
func (s *CatalogService) Search(ctx context.Context, req *SearchRequest) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Search")
	defer span.End()

	query := models.ProductQuery{
		Title:       strings.TrimSpace(req.Query),
		CategoryIDs: req.Category,
		SortBy:      "createdAt",
	}

	if len(req.Price) > 0 {
		if len(req.Price) != 2 {
			return nil, newError(KindInvalidInput, "price must be a [min, max] pair")
		}
		low, high := req.Price[0], req.Price[1]
		if low.GreaterThan(high) {
			return nil, newError(KindInvalidInput, "price minimum exceeds maximum")
		}
		query.MinPrice = &low
		query.MaxPrice = &high
	}

	return s.store.ListProducts(ctx, query)
}

// UploadImage pushes an image to the asset store
func (s *CatalogService) UploadImage(ctx context.Context, image string) (*models.UploadedImage, error) {
	if strings.TrimSpace(image) == "" {
		return nil, newError(KindInvalidInput, "image is required")
	}

	uploaded, err := s.assets.UploadImage(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	return uploaded, nil
}

// RemoveImage asks the asset store to delete an image. Failures are only logged.
func (s *CatalogService) RemoveImage(ctx context.Context, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return newError(KindInvalidInput, "public_id is required")
	}

	if err := s.assets.Destroy(ctx, publicID); err != nil {
		s.logger.Warn("Failed to remove image", zap.String("public_id", publicID), zap.Error(err))
	}
	return nil
}

// invalidate evicts products from the cache
func (s *CatalogService) invalidate(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	if err := s.cache.DeleteProducts(ctx, ids...); err != nil {
		s.logger.Warn("Product cache eviction failed", zap.Int64s("product_ids", ids), zap.Error(err))
	}
}
