package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthService covers registration, login and token resolution
type AuthService interface {
	Register(ctx context.Context, req *service.RegisterRequest) error
	Login(ctx context.Context, req *service.LoginRequest) (*service.LoginResponse, error)
	Authenticate(ctx context.Context, rawToken string) (*models.User, error)
	CurrentUser(ctx context.Context, userID int64) (*models.UserProfile, error)
}

// CatalogService covers categories, products and their images
type CatalogService interface {
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateProduct(ctx context.Context, req *service.ProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, page, limit int) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id int64, req *service.ProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProductsBy(ctx context.Context, req *service.ProductByRequest) ([]models.Product, error)
	Search(ctx context.Context, req *service.SearchRequest) ([]models.Product, error)
	UploadImage(ctx context.Context, image string) (*models.UploadedImage, error)
	RemoveImage(ctx context.Context, publicID string) error
	ExportProducts(ctx context.Context, w io.Writer) error
}

// CartService covers the shopping cart and delivery address
type CartService interface {
	BuildCart(ctx context.Context, userID int64, items []service.CartItemRequest) (*models.Cart, error)
	GetCart(ctx context.Context, userID int64) (*service.CartView, error)
	EmptyCart(ctx context.Context, userID int64) (int64, error)
	SaveAddress(ctx context.Context, userID int64, address string) error
}

// OrderService covers checkout and fulfillment status
type OrderService interface {
	PlaceOrder(ctx context.Context, user *models.User, payment models.PaymentIntent) (*models.Order, error)
	GetOrders(ctx context.Context, userID int64) ([]models.Order, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)
	ChangeOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error)
}

// UserService covers account administration
type UserService interface {
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	ChangeUserStatus(ctx context.Context, req *service.ChangeStatusRequest) error
	ChangeUserRole(ctx context.Context, req *service.ChangeRoleRequest) error
}

// RateLimiter counts hits against a key in a fixed window
type RateLimiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Pinger is a dependency checked by the readiness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// FeedServer upgrades a request into a live order feed session
type FeedServer interface {
	Serve(w http.ResponseWriter, r *http.Request) error
}

// Policy holds the route-level knobs
type Policy struct {
	CatalogAdminOnly bool
	RateLimitWindow  time.Duration
	RateLimitMax     int
	AllowOrigins     []string
}

// Dependencies are everything the handlers call into
type Dependencies struct {
	Auth    AuthService
	Catalog CatalogService
	Carts   CartService
	Orders  OrderService
	Users   UserService
	Feed    FeedServer
	Limiter RateLimiter
	Checks  map[string]Pinger
	Policy  Policy
}

// Handler contains HTTP handlers
type Handler struct {
	auth    AuthService
	catalog CatalogService
	carts   CartService
	orders  OrderService
	users   UserService
	feed    FeedServer
	limiter RateLimiter
	checks  map[string]Pinger
	policy  Policy
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies) *Handler {
	useJSONFieldNames()

	return &Handler{
		auth:    deps.Auth,
		catalog: deps.Catalog,
		carts:   deps.Carts,
		orders:  deps.Orders,
		users:   deps.Users,
		feed:    deps.Feed,
		limiter: deps.Limiter,
		checks:  deps.Checks,
		policy:  deps.Policy,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(cors.New(h.corsConfig()))
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/register", h.rateLimit, h.register)
		api.POST("/login", h.rateLimit, h.login)
		api.GET("/current-user", h.authCheck, h.currentUser)
		api.GET("/current-admin", h.authCheck, h.adminCheck, h.currentUser)
	}

	admin := []gin.HandlerFunc{h.authCheck, h.adminCheck}
	write := h.catalogWrite()
	{
		api.POST("/category", chain(admin, h.createCategory)...)
		api.GET("/category", h.listCategories)
		api.DELETE("/category/:id", chain(write, h.deleteCategory)...)

		api.POST("/product", chain(write, h.createProduct)...)
		api.GET("/products/:page/:limit", h.listProducts)
		api.GET("/product/:id", h.getProduct)
		api.PUT("/product/:id", chain(write, h.updateProduct)...)
		api.DELETE("/product/:id", chain(write, h.deleteProduct)...)
		api.POST("/product-by", h.listProductsBy)
		api.POST("/search/filters", h.searchFilters)
		api.POST("/images", chain(admin, h.uploadImage)...)
		api.POST("/remove-image", chain(admin, h.removeImage)...)
	}

	{
		api.GET("/users", chain(admin, h.listUsers)...)
		api.POST("/change-status", chain(admin, h.changeUserStatus)...)
		api.POST("/change-role", chain(admin, h.changeUserRole)...)

		api.POST("/user/cart", h.authCheck, h.saveCart)
		api.GET("/user/cart", h.authCheck, h.getCart)
		api.DELETE("/user/cart", h.authCheck, h.emptyCart)
		api.POST("/user/address", h.authCheck, h.saveAddress)
		api.POST("/user/order", h.authCheck, h.placeOrder)
		api.GET("/user/order", h.authCheck, h.getOrders)
	}

	{
		api.PUT("/admin/order-status", chain(admin, h.changeOrderStatus)...)
		api.GET("/admin/order", chain(admin, h.listAllOrders)...)
		api.GET("/admin/products/export", chain(admin, h.exportProducts)...)
		api.GET("/admin/order/feed", chain(admin, h.orderFeed)...)
	}
}

func chain(guards []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, handler)
}

func (h *Handler) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}

	origins := h.policy.AllowOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency the service cannot run without
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.checks {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"checks": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
