package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// DefaultOrderStatus is the fulfillment state of a freshly placed order
const DefaultOrderStatus = "Not Process"

// KnownOrderStatuses are the fulfillment states the admin UI offers. Other
// strings are still stored as given.
var KnownOrderStatuses = []string{DefaultOrderStatus, "Processing", "Cancelled", "Completed"}

// User represents a registered account
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"`
	Picture   string    `db:"picture" json:"picture,omitempty"`
	Role      string    `db:"role" json:"role"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserProfile is the view returned by current-user
type UserProfile struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// UserSummary is the admin list view of a user; credentials and name are excluded
type UserSummary struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

// OrderedBy is the restricted user view embedded in admin order listings
type OrderedBy struct {
	ID      int64  `db:"id" json:"id"`
	Email   string `db:"email" json:"email"`
	Address string `db:"address" json:"address"`
}

// Category groups products
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Product represents a catalog item; Quantity is the stock on hand
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Sold        int             `db:"sold" json:"sold"`
	CategoryID  *int64          `db:"category_id" json:"categoryId"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`

	Category *Category      `db:"-" json:"category,omitempty"`
	Images   []ProductImage `db:"-" json:"images"`
}

// ProductImage holds the asset store identifiers of an uploaded image
type ProductImage struct {
	ID        int64     `db:"id" json:"id"`
	AssetID   string    `db:"asset_id" json:"asset_id"`
	PublicID  string    `db:"public_id" json:"public_id"`
	URL       string    `db:"url" json:"url"`
	SecureURL string    `db:"secure_url" json:"secure_url"`
	ProductID int64     `db:"product_id" json:"productId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// UploadedImage is what the asset store reports back after an upload
type UploadedImage struct {
	AssetID   string `json:"asset_id"`
	PublicID  string `json:"public_id"`
	URL       string `json:"url"`
	SecureURL string `json:"secure_url"`
}

// Cart is a user's pending basket. It is replaced wholesale on every save.
type Cart struct {
	ID          int64           `db:"id" json:"id"`
	CartTotal   decimal.Decimal `db:"cart_total" json:"cartTotal"`
	OrderedByID int64           `db:"ordered_by_id" json:"orderedById"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`

	Products []ProductOnCart `db:"-" json:"products"`
}

// ProductOnCart is a cart line item with the unit price captured at save time
type ProductOnCart struct {
	ID        int64           `db:"id" json:"id"`
	CartID    int64           `db:"cart_id" json:"cartId"`
	ProductID int64           `db:"product_id" json:"productId"`
	Count     int             `db:"count" json:"count"`
	Price     decimal.Decimal `db:"price" json:"price"`

	Product *Product `db:"-" json:"product,omitempty"`
}

// Order is a placed checkout
type Order struct {
	ID              int64           `db:"id" json:"id"`
	CartTotal       decimal.Decimal `db:"cart_total" json:"cartTotal"`
	OrderStatus     string          `db:"order_status" json:"orderStatus"`
	OrderedByID     int64           `db:"ordered_by_id" json:"orderedById"`
	StripePaymentID string          `db:"stripe_payment_id" json:"stripePaymentId"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          string          `db:"status" json:"status"`
	Currency        string          `db:"currency" json:"currency"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`

	Products  []ProductOnOrder `db:"-" json:"products"`
	OrderedBy *OrderedBy       `db:"-" json:"orderedBy,omitempty"`
}

// ProductOnOrder is an order line item with the unit price copied from the cart
type ProductOnOrder struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"orderId"`
	ProductID int64           `db:"product_id" json:"productId"`
	Count     int             `db:"count" json:"count"`
	Price     decimal.Decimal `db:"price" json:"price"`

	Product *Product `db:"-" json:"product,omitempty"`
}

// PaymentIntent is the payment provider confirmation submitted at checkout.
// Amount is in the currency's smallest unit.
type PaymentIntent struct {
	ID       string `json:"id" binding:"required"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status" binding:"required"`
	Currency string `json:"currency"`
}

// ProductSortColumns maps the public sort keys to product columns
var ProductSortColumns = map[string]string{
	"title":     "title",
	"price":     "price",
	"quantity":  "quantity",
	"sold":      "sold",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ProductQuery is a composed product predicate. Zero-valued fields do not filter.
type ProductQuery struct {
	Title       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	CategoryIDs []int64
	SortBy      string
	Ascending   bool
	Limit       int
	Offset      int
}
