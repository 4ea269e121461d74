package store

import (
	"context"
	"fmt"
	"strings"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	categoryColumns = `id, name, created_at, updated_at`
	productColumns  = `id, title, description, price, quantity, sold, category_id, created_at, updated_at`
	imageColumns    = `id, asset_id, public_id, url, secure_url, product_id, created_at`
)

// CreateCategory inserts a new category
func (s *queries) CreateCategory(ctx context.Context, category *models.Category) error {
	err := sqlx.GetContext(ctx, s.q, category,
		"INSERT INTO categories (name) VALUES ($1) RETURNING id, created_at, updated_at", category.Name)
	return translate(err)
}

// GetCategoryByID retrieves a category by ID
func (s *queries) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := sqlx.GetContext(ctx, s.q, &category, "SELECT "+categoryColumns+" FROM categories WHERE id = $1", id)
	if err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// GetCategoryByName retrieves a category by name
func (s *queries) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := sqlx.GetContext(ctx, s.q, &category, "SELECT "+categoryColumns+" FROM categories WHERE name = $1", name)
	if err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// ListCategories retrieves all categories
func (s *queries) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := sqlx.SelectContext(ctx, s.q, &categories, "SELECT "+categoryColumns+" FROM categories ORDER BY id")
	return categories, translate(err)
}

// DeleteCategory removes a category and returns the deleted row
func (s *queries) DeleteCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := sqlx.GetContext(ctx, s.q, &category,
		"DELETE FROM categories WHERE id = $1 RETURNING "+categoryColumns, id)
	if err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// CreateProduct inserts a product together with its images
func (s *queries) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (title, description, price, quantity, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, sold, created_at, updated_at`

	err := sqlx.GetContext(ctx, s.q, product, query,
		product.Title, product.Description, product.Price, product.Quantity, product.CategoryID)
	if err != nil {
		return translate(err)
	}

	return s.insertImages(ctx, product.ID, product.Images)
}

// UpdateProduct replaces a product's fields and appends any new images.
// Existing images are left in place.
func (s *queries) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET title = $1, description = $2, price = $3, quantity = $4, category_id = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING sold, created_at, updated_at`

	err := sqlx.GetContext(ctx, s.q, product, query,
		product.Title, product.Description, product.Price, product.Quantity, product.CategoryID, product.ID)
	if err != nil {
		return translate(err)
	}

	return s.insertImages(ctx, product.ID, product.Images)
}

func (s *queries) insertImages(ctx context.Context, productID int64, images []models.ProductImage) error {
	query := `
		INSERT INTO images (asset_id, public_id, url, secure_url, product_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	for i := range images {
		img := &images[i]
		img.ProductID = productID
		err := sqlx.GetContext(ctx, s.q, img, query, img.AssetID, img.PublicID, img.URL, img.SecureURL, productID)
		if err != nil {
			return fmt.Errorf("failed to insert image: %w", translate(err))
		}
	}
	return nil
}

// GetProductByID retrieves a product with its category and images
func (s *queries) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, s.q, &product, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, translate(err)
	}

	products := []models.Product{product}
	if err := s.loadProductRelations(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetProductsByIDs retrieves bare product rows, without relations
func (s *queries) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	products := []models.Product{}
	if len(ids) == 0 {
		return products, nil
	}

	err := sqlx.SelectContext(ctx, s.q, &products,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1)", pq.Array(ids))
	return products, translate(err)
}

// ListProducts runs a composed product query. Supplied filters are ANDed.
func (s *queries) ListProducts(ctx context.Context, query models.ProductQuery) ([]models.Product, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if query.Title != "" {
		add("strpos(title, $%d) > 0", query.Title)
	}
	if query.MinPrice != nil {
		add("price >= $%d", *query.MinPrice)
	}
	if query.MaxPrice != nil {
		add("price <= $%d", *query.MaxPrice)
	}
	if len(query.CategoryIDs) > 0 {
		add("category_id = ANY($%d)", pq.Array(query.CategoryIDs))
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM products")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	column, ok := models.ProductSortColumns[query.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if query.Ascending {
		direction = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", column, direction, direction)

	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	products := []models.Product{}
	if err := sqlx.SelectContext(ctx, s.q, &products, b.String(), args...); err != nil {
		return nil, translate(err)
	}

	if err := s.loadProductRelations(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// DeleteProduct removes a product and returns it as it was, images included
func (s *queries) DeleteProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := expectOne(s.q.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)); err != nil {
		return nil, err
	}
	return product, nil
}

// DecrementStock moves count units from quantity to sold. It only applies
// when enough stock remains and reports whether it did.
func (s *queries) DecrementStock(ctx context.Context, productID int64, count int) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $1, sold = sold + $1, updated_at = NOW()
		WHERE id = $2 AND quantity >= $1`,
		count, productID)
	if err != nil {
		return false, translate(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// loadProductRelations expands category and images in place
func (s *queries) loadProductRelations(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	productIDs := make([]int64, 0, len(products))
	categoryIDs := make([]int64, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
		if p.CategoryID != nil {
			categoryIDs = append(categoryIDs, *p.CategoryID)
		}
	}

	categories := map[int64]*models.Category{}
	if len(categoryIDs) > 0 {
		var rows []models.Category
		err := sqlx.SelectContext(ctx, s.q, &rows,
			"SELECT "+categoryColumns+" FROM categories WHERE id = ANY($1)", pq.Array(categoryIDs))
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", translate(err))
		}
		for i := range rows {
			categories[rows[i].ID] = &rows[i]
		}
	}

	var images []models.ProductImage
	err := sqlx.SelectContext(ctx, s.q, &images,
		"SELECT "+imageColumns+" FROM images WHERE product_id = ANY($1) ORDER BY id", pq.Array(productIDs))
	if err != nil {
		return fmt.Errorf("failed to load images: %w", translate(err))
	}
	byProduct := make(map[int64][]models.ProductImage)
	for _, img := range images {
		byProduct[img.ProductID] = append(byProduct[img.ProductID], img)
	}

	for i := range products {
		p := &products[i]
		if p.CategoryID != nil {
			p.Category = categories[*p.CategoryID]
		}
		p.Images = byProduct[p.ID]
		if p.Images == nil {
			p.Images = []models.ProductImage{}
		}
	}
	return nil
}
