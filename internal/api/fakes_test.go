package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/shopspring/decimal"
)

var (
	alice = &models.User{ID: 1, Email: "alice@x.io", Name: "alice", Role: models.RoleUser, Enabled: true}
	admin = &models.User{ID: 2, Email: "admin@x.io", Name: "admin", Role: models.RoleAdmin, Enabled: true}
)

// fakeAuth maps tokens straight to users
type fakeAuth struct {
	tokens map[string]*models.User
}

func (f *fakeAuth) Register(ctx context.Context, req *service.RegisterRequest) error {
	if req.Email == alice.Email {
		return &service.Error{Kind: service.KindConflict, Message: "Duplicated Email"}
	}
	return nil
}

func (f *fakeAuth) Login(ctx context.Context, req *service.LoginRequest) (*service.LoginResponse, error) {
	return &service.LoginResponse{
		Message: "Login successful",
		User:    service.TokenUser{ID: alice.ID, Email: alice.Email, Role: alice.Role},
		Token:   "alice-token",
	}, nil
}

func (f *fakeAuth) Authenticate(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, &service.Error{Kind: service.KindUnauthenticated, Message: "Unauthorized, no token sent"}
	}
	user, ok := f.tokens[rawToken]
	if !ok {
		return nil, &service.Error{Kind: service.KindUnauthenticated, Message: "invalid token"}
	}
	if !user.Enabled {
		return nil, &service.Error{Kind: service.KindAccountDisabled, Message: "This user is banned"}
	}
	return user, nil
}

func (f *fakeAuth) CurrentUser(ctx context.Context, userID int64) (*models.UserProfile, error) {
	for _, u := range f.tokens {
		if u.ID == userID {
			return &models.UserProfile{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
		}
	}
	return nil, &service.Error{Kind: service.KindNotFound, Message: "User not found"}
}

// fakeCatalog records the last call it received
type fakeCatalog struct {
	created *service.ProductRequest
	search  *service.SearchRequest
	removed string
	page    int
	limit   int
	err     error
}

func (f *fakeCatalog) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	return &models.Category{ID: 1, Name: name}, f.err
}

func (f *fakeCatalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	return []models.Category{}, f.err
}

func (f *fakeCatalog) DeleteCategory(ctx context.Context, id int64) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: id, Name: "Books"}, nil
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, req *service.ProductRequest) (*models.Product, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Product{ID: 7, Title: req.Title, Price: req.Price}, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Product{ID: id, Title: "A"}, nil
}

func (f *fakeCatalog) ListProducts(ctx context.Context, page, limit int) ([]models.Product, error) {
	f.page, f.limit = page, limit
	return []models.Product{}, f.err
}

func (f *fakeCatalog) UpdateProduct(ctx context.Context, id int64, req *service.ProductRequest) (*models.Product, error) {
	return &models.Product{ID: id, Title: req.Title}, f.err
}

func (f *fakeCatalog) DeleteProduct(ctx context.Context, id int64) error {
	return f.err
}

func (f *fakeCatalog) ListProductsBy(ctx context.Context, req *service.ProductByRequest) ([]models.Product, error) {
	return []models.Product{}, f.err
}

func (f *fakeCatalog) Search(ctx context.Context, req *service.SearchRequest) ([]models.Product, error) {
	f.search = req
	return []models.Product{}, f.err
}

func (f *fakeCatalog) UploadImage(ctx context.Context, image string) (*models.UploadedImage, error) {
	return &models.UploadedImage{PublicID: "shopping/image-1"}, f.err
}

func (f *fakeCatalog) RemoveImage(ctx context.Context, publicID string) error {
	f.removed = publicID
	return f.err
}

func (f *fakeCatalog) ExportProducts(ctx context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK"))
	return err
}

type fakeCarts struct {
	items   []service.CartItemRequest
	deleted int64
	err     error
}

func (f *fakeCarts) BuildCart(ctx context.Context, userID int64, items []service.CartItemRequest) (*models.Cart, error) {
	f.items = items
	if f.err != nil {
		return nil, f.err
	}
	return &models.Cart{OrderedByID: userID}, nil
}

func (f *fakeCarts) GetCart(ctx context.Context, userID int64) (*service.CartView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.CartView{Products: []models.ProductOnCart{}, CartTotal: decimal.NewFromInt(20)}, nil
}

func (f *fakeCarts) EmptyCart(ctx context.Context, userID int64) (int64, error) {
	return f.deleted, f.err
}

func (f *fakeCarts) SaveAddress(ctx context.Context, userID int64, address string) error {
	return f.err
}

type fakeOrders struct {
	payment models.PaymentIntent
	user    *models.User
	err     error
}

func (f *fakeOrders) PlaceOrder(ctx context.Context, user *models.User, payment models.PaymentIntent) (*models.Order, error) {
	f.user, f.payment = user, payment
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: 11, OrderStatus: models.DefaultOrderStatus}, nil
}

func (f *fakeOrders) GetOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return []models.Order{{ID: 11}}, f.err
}

func (f *fakeOrders) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return []models.Order{}, f.err
}

func (f *fakeOrders) ChangeOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	if orderID == 0 || status == "" {
		return nil, &service.Error{Kind: service.KindInvalidInput, Message: "orderId and orderStatus are required"}
	}
	return &models.Order{ID: orderID, OrderStatus: status}, f.err
}

type fakeUsers struct {
	err error
}

func (f *fakeUsers) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	return []models.UserSummary{}, f.err
}

func (f *fakeUsers) ChangeUserStatus(ctx context.Context, req *service.ChangeStatusRequest) error {
	return f.err
}

func (f *fakeUsers) ChangeUserRole(ctx context.Context, req *service.ChangeRoleRequest) error {
	return f.err
}

type fakeLimiter struct {
	hits int64
	err  error
}

func (f *fakeLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.hits++
	return f.hits, 90 * time.Second, nil
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error {
	return f.err
}

type fakeFeed struct{}

func (fakeFeed) Serve(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

var errBoom = errors.New("boom")
