package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"
)

// memState is the whole fake database. clone gives WithTx its rollback point.
type memState struct {
	users      map[int64]models.User
	categories map[int64]models.Category
	products   map[int64]models.Product
	carts      map[int64]models.Cart // keyed by owner
	orders     map[int64]models.Order
	nextID     int64
}

func newMemState() *memState {
	return &memState{
		users:      map[int64]models.User{},
		categories: map[int64]models.Category{},
		products:   map[int64]models.Product{},
		carts:      map[int64]models.Cart{},
		orders:     map[int64]models.Order{},
	}
}

func (m *memState) clone() *memState {
	c := newMemState()
	c.nextID = m.nextID
	for k, v := range m.users {
		c.users[k] = v
	}
	for k, v := range m.categories {
		c.categories[k] = v
	}
	for k, v := range m.products {
		v.Images = append([]models.ProductImage{}, v.Images...)
		c.products[k] = v
	}
	for k, v := range m.carts {
		v.Products = append([]models.ProductOnCart{}, v.Products...)
		c.carts[k] = v
	}
	for k, v := range m.orders {
		v.Products = append([]models.ProductOnOrder{}, v.Products...)
		c.orders[k] = v
	}
	return c
}

// fakeStore is an in-memory DataStore. failures injects an error the next
// time the named method runs.
type fakeStore struct {
	mu       sync.Mutex
	st       *memState
	failures map[string]error
	clock    time.Time
}

var _ DataStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		st:       newMemState(),
		failures: map[string]error{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) failOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

func (f *fakeStore) fail(method string) error {
	if err, ok := f.failures[method]; ok {
		delete(f.failures, method)
		return err
	}
	return nil
}

func (f *fakeStore) id() int64 {
	f.st.nextID++
	return f.st.nextID
}

func (f *fakeStore) now() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(store.Repository) error) error {
	f.mu.Lock()
	snapshot := f.st.clone()
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.st = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

// snapshot returns an independent copy for before/after comparisons
func (f *fakeStore) snapshot() *memState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st.clone()
}

func (f *fakeStore) CreateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateUser"); err != nil {
		return err
	}
	for _, u := range f.st.users {
		if u.Email == user.Email || u.Name == user.Name {
			return store.ErrDuplicate
		}
	}
	user.ID = f.id()
	user.CreatedAt = f.now()
	user.UpdatedAt = user.CreatedAt
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	f.st.users[user.ID] = *user
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := f.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (f *fakeStore) LockUserByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	err := f.fail("LockUserByID")
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.GetUserByID(ctx, id)
}

func (f *fakeStore) findUser(match func(models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.st.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.findUser(func(u models.User) bool { return u.Email == email })
}

func (f *fakeStore) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return f.findUser(func(u models.User) bool { return u.Name == name })
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []models.User{}
	for _, u := range f.st.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (f *fakeStore) updateUser(id int64, apply func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.st.users[id]
	if !ok {
		return store.ErrNotFound
	}
	apply(&u)
	u.UpdatedAt = f.now()
	f.st.users[id] = u
	return nil
}

func (f *fakeStore) SetUserEnabled(ctx context.Context, id int64, enabled bool) error {
	return f.updateUser(id, func(u *models.User) { u.Enabled = enabled })
}

func (f *fakeStore) SetUserRole(ctx context.Context, id int64, role string) error {
	return f.updateUser(id, func(u *models.User) { u.Role = role })
}

func (f *fakeStore) SetUserAddress(ctx context.Context, id int64, address string) error {
	return f.updateUser(id, func(u *models.User) { u.Address = address })
}

func (f *fakeStore) CreateCategory(ctx context.Context, category *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.st.categories {
		if c.Name == category.Name {
			return store.ErrDuplicate
		}
	}
	category.ID = f.id()
	category.CreatedAt = f.now()
	category.UpdatedAt = category.CreatedAt
	f.st.categories[category.ID] = *category
	return nil
}

func (f *fakeStore) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.st.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.st.categories {
		if c.Name == name {
			c := c
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	categories := []models.Category{}
	for _, c := range f.st.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func (f *fakeStore) DeleteCategory(ctx context.Context, id int64) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.st.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.st.categories, id)
	for pid, p := range f.st.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			f.st.products[pid] = p
		}
	}
	return &c, nil
}

func (f *fakeStore) checkCategory(id *int64) error {
	if id == nil {
		return nil
	}
	if _, ok := f.st.categories[*id]; !ok {
		return store.ErrForeignKey
	}
	return nil
}

func (f *fakeStore) addImages(product *models.Product, images []models.ProductImage) []models.ProductImage {
	for i := range images {
		images[i].ID = f.id()
		images[i].ProductID = product.ID
		images[i].CreatedAt = f.now()
	}
	return images
}

func (f *fakeStore) CreateProduct(ctx context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkCategory(product.CategoryID); err != nil {
		return err
	}
	product.ID = f.id()
	product.Sold = 0
	product.CreatedAt = f.now()
	product.UpdatedAt = product.CreatedAt
	product.Images = f.addImages(product, product.Images)

	stored := *product
	stored.Images = append([]models.ProductImage{}, product.Images...)
	stored.Category = nil
	f.st.products[product.ID] = stored
	return nil
}

func (f *fakeStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.st.products[product.ID]
	if !ok {
		return store.ErrNotFound
	}
	if err := f.checkCategory(product.CategoryID); err != nil {
		return err
	}

	existing.Title = product.Title
	existing.Description = product.Description
	existing.Price = product.Price
	existing.Quantity = product.Quantity
	existing.CategoryID = product.CategoryID
	existing.UpdatedAt = f.now()
	existing.Images = append(existing.Images, f.addImages(product, product.Images)...)
	f.st.products[product.ID] = existing
	return nil
}

// expand fills category and images the way the SQL store does
func (f *fakeStore) expand(p models.Product) models.Product {
	p.Images = append([]models.ProductImage{}, p.Images...)
	if p.CategoryID != nil {
		if c, ok := f.st.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	return p
}

func (f *fakeStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = f.expand(p)
	return &p, nil
}

func (f *fakeStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	products := []models.Product{}
	seen := map[int64]bool{}
	for _, id := range ids {
		if p, ok := f.st.products[id]; ok && !seen[id] {
			seen[id] = true
			p.Images = nil
			products = append(products, p)
		}
	}
	return products, nil
}

func (f *fakeStore) ListProducts(ctx context.Context, query models.ProductQuery) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListProducts"); err != nil {
		return nil, err
	}

	products := []models.Product{}
	for _, p := range f.st.products {
		if query.Title != "" && !strings.Contains(p.Title, query.Title) {
			continue
		}
		if query.MinPrice != nil && p.Price.LessThan(*query.MinPrice) {
			continue
		}
		if query.MaxPrice != nil && p.Price.GreaterThan(*query.MaxPrice) {
			continue
		}
		if len(query.CategoryIDs) > 0 {
			in := false
			for _, id := range query.CategoryIDs {
				if p.CategoryID != nil && *p.CategoryID == id {
					in = true
				}
			}
			if !in {
				continue
			}
		}
		products = append(products, f.expand(p))
	}

	less := func(a, b models.Product) bool {
		switch query.SortBy {
		case "title":
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case "price":
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case "quantity":
			if a.Quantity != b.Quantity {
				return a.Quantity < b.Quantity
			}
		case "sold":
			if a.Sold != b.Sold {
				return a.Sold < b.Sold
			}
		case "updatedAt":
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}
	sort.Slice(products, func(i, j int) bool {
		if query.Ascending {
			return less(products[i], products[j])
		}
		return less(products[j], products[i])
	})

	if query.Offset > 0 {
		if query.Offset >= len(products) {
			return []models.Product{}, nil
		}
		products = products[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(products) {
		products = products[:query.Limit]
	}
	return products, nil
}

func (f *fakeStore) DeleteProduct(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, o := range f.st.orders {
		for _, line := range o.Products {
			if line.ProductID == id {
				return nil, store.ErrForeignKey
			}
		}
	}

	for owner, c := range f.st.carts {
		kept := c.Products[:0:0]
		for _, line := range c.Products {
			if line.ProductID != id {
				kept = append(kept, line)
			}
		}
		c.Products = kept
		f.st.carts[owner] = c
	}
	delete(f.st.products, id)

	p = f.expand(p)
	return &p, nil
}

func (f *fakeStore) DecrementStock(ctx context.Context, productID int64, count int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DecrementStock"); err != nil {
		return false, err
	}
	p, ok := f.st.products[productID]
	if !ok || p.Quantity < count {
		return false, nil
	}
	p.Quantity -= count
	p.Sold += count
	f.st.products[productID] = p
	return true, nil
}

func (f *fakeStore) CreateCart(ctx context.Context, cart *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateCart"); err != nil {
		return err
	}
	if _, ok := f.st.carts[cart.OrderedByID]; ok {
		return store.ErrDuplicate
	}
	if _, ok := f.st.users[cart.OrderedByID]; !ok {
		return store.ErrForeignKey
	}

	cart.ID = f.id()
	cart.CreatedAt = f.now()
	cart.UpdatedAt = cart.CreatedAt
	for i := range cart.Products {
		if _, ok := f.st.products[cart.Products[i].ProductID]; !ok {
			return store.ErrForeignKey
		}
		cart.Products[i].ID = f.id()
		cart.Products[i].CartID = cart.ID
	}

	stored := *cart
	stored.Products = append([]models.ProductOnCart{}, cart.Products...)
	f.st.carts[cart.OrderedByID] = stored
	return nil
}

func (f *fakeStore) cart(userID int64, expand bool) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.st.carts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Products = append([]models.ProductOnCart{}, c.Products...)
	if expand {
		for i := range c.Products {
			if p, ok := f.st.products[c.Products[i].ProductID]; ok {
				p.Images = nil
				c.Products[i].Product = &p
			}
		}
	}
	return &c, nil
}

func (f *fakeStore) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	return f.cart(userID, true)
}

func (f *fakeStore) LockCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	return f.cart(userID, false)
}

func (f *fakeStore) DeleteCartByUserID(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteCartByUserID"); err != nil {
		return 0, err
	}
	if _, ok := f.st.carts[userID]; !ok {
		return 0, nil
	}
	delete(f.st.carts, userID)
	return 1, nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateOrder"); err != nil {
		return err
	}
	if _, ok := f.st.users[order.OrderedByID]; !ok {
		return store.ErrForeignKey
	}

	order.ID = f.id()
	order.CreatedAt = f.now()
	order.UpdatedAt = order.CreatedAt
	if order.OrderStatus == "" {
		order.OrderStatus = models.DefaultOrderStatus
	}
	for i := range order.Products {
		order.Products[i].ID = f.id()
		order.Products[i].OrderID = order.ID
	}

	stored := *order
	stored.Products = append([]models.ProductOnOrder{}, order.Products...)
	f.st.orders[order.ID] = stored
	return nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.Products = append([]models.ProductOnOrder{}, o.Products...)
	return &o, nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.OrderStatus = status
	o.UpdatedAt = f.now()
	f.st.orders[id] = o

	o.Products = []models.ProductOnOrder{}
	return &o, nil
}

func (f *fakeStore) listOrders(match func(models.Order) bool, withBuyer bool) []models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	orders := []models.Order{}
	for _, o := range f.st.orders {
		if !match(o) {
			continue
		}
		o.Products = append([]models.ProductOnOrder{}, o.Products...)
		if withBuyer {
			u := f.st.users[o.OrderedByID]
			o.OrderedBy = &models.OrderedBy{ID: u.ID, Email: u.Email, Address: u.Address}
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

func (f *fakeStore) ListOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	return f.listOrders(func(o models.Order) bool { return o.OrderedByID == userID }, false), nil
}

func (f *fakeStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	return f.listOrders(func(models.Order) bool { return true }, true), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []interface{}
	err    error
}

func (p *fakePublisher) record(event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return p.record(event)
}

func (p *fakePublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return p.record(event)
}

func (p *fakePublisher) PublishProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error {
	return p.record(event)
}

type fakeCache struct {
	mu       sync.Mutex
	products map[int64]models.Product
	deleted  []int64
	err      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{products: map[int64]models.Product{}}
}

func (c *fakeCache) GetProduct(ctx context.Context, id int64) (*models.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *fakeCache) SetProduct(ctx context.Context, product *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.products[product.ID] = *product
	return nil
}

func (c *fakeCache) DeleteProducts(ctx context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.products, id)
	}
	c.deleted = append(c.deleted, ids...)
	return c.err
}

type fakeAssets struct {
	uploads   []string
	destroyed []string
	err       error
}

func (a *fakeAssets) UploadImage(ctx context.Context, image string) (*models.UploadedImage, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.uploads = append(a.uploads, image)
	return &models.UploadedImage{
		AssetID:   "asset-1",
		PublicID:  "shopping/image-1",
		URL:       "http://cdn.example/image-1.png",
		SecureURL: "https://cdn.example/image-1.png",
	}, nil
}

func (a *fakeAssets) Destroy(ctx context.Context, publicID string) error {
	a.destroyed = append(a.destroyed, publicID)
	return a.err
}

var errBoom = errors.New("boom")
