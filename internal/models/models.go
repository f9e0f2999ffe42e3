package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status values. Forward flow is pending -> processing -> shipped ->
// delivered; cancelled is terminal and reachable from pending or processing
// only.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment status values.
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// User represents a user account
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Category groups products in the catalog
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `json:"id" db:"id"`
	CategoryID  int64           `json:"category_id" db:"category_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	IsAvailable bool            `json:"is_available" db:"is_available"`
	SKU         string          `json:"sku" db:"sku"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductImage is one of a product's gallery images, ordered by position.
type ProductImage struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	URL       string    `json:"url" db:"url"`
	AltText   string    `json:"alt_text" db:"alt_text"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Address is a user's saved shipping or billing address
type Address struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Label      string    `json:"label" db:"label"`
	Street     string    `json:"street" db:"street"`
	City       string    `json:"city" db:"city"`
	State      string    `json:"state" db:"state"`
	PostalCode string    `json:"postal_code" db:"postal_code"`
	Country    string    `json:"country" db:"country"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Cart represents a shopping cart, one per user
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartItem represents an item in a cart. Its price is never stored:
// cart lines are always priced from the live product price.
type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	CartID    int64     `json:"cart_id" db:"cart_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Order represents an order
type Order struct {
	ID                int64           `json:"id" db:"id"`
	OrderNumber       string          `json:"order_number" db:"order_number"`
	UserID            int64           `json:"user_id" db:"user_id"`
	OrderStatus       string          `json:"order_status" db:"order_status"`
	PaymentStatus     string          `json:"payment_status" db:"payment_status"`
	ShippingAddressID int64           `json:"shipping_address_id" db:"shipping_address_id"`
	BillingAddressID  int64           `json:"billing_address_id" db:"billing_address_id"`
	Subtotal          decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost      decimal.Decimal `json:"shipping_cost" db:"shipping_cost"`
	Total             decimal.Decimal `json:"total" db:"total"`
	Currency          string          `json:"currency" db:"currency"`
	Items             []OrderItem     `json:"items,omitempty"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem is a line item. Price is the product price snapshotted at order
// creation, immutable afterwards.
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"order_id" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Review is a user's rating of a product, one per user per product
type Review struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine is a cart item joined with the live product price.
type CartLine struct {
	CartItem
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartResponse represents a cart with its live-priced lines
type CartResponse struct {
	Cart  *Cart           `json:"cart"`
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// ReviewListResponse carries a product's reviews with their average rating.
type ReviewListResponse struct {
	Reviews       []Review        `json:"reviews"`
	AverageRating decimal.Decimal `json:"average_rating"`
}

// RegisterRequest is the payload for POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the payload for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh"`
}

// AuthResponse carries a user with a fresh token pair
type AuthResponse struct {
	User    *User  `json:"user,omitempty"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AddToCartRequest is the payload for POST /cart/items
type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// UpdateCartItemRequest is the payload for PUT /cart/items/{productID}
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// OrderLineRequest is one (product, quantity) pair in a direct order
type OrderLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	Items             []OrderLineRequest `json:"items"`
	ShippingAddressID int64              `json:"shipping_address_id"`
	BillingAddressID  int64              `json:"billing_address_id,omitempty"`
	ShippingCost      decimal.Decimal    `json:"shipping_cost"`
	Currency          string             `json:"currency"`
}

// CheckoutRequest is the payload for POST /checkout
type CheckoutRequest struct {
	ShippingAddressID int64           `json:"shipping_address_id"`
	BillingAddressID  int64           `json:"billing_address_id,omitempty"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	Currency          string          `json:"currency"`
}

// UpdateOrderStatusRequest is the payload for PUT /orders/{id}/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// CreateProductRequest is the payload for product create/update
type CreateProductRequest struct {
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsAvailable bool            `json:"is_available"`
	SKU         string          `json:"sku"`
}

// CreateProductImageRequest is the payload for image create/update
type CreateProductImageRequest struct {
	URL      string `json:"url"`
	AltText  string `json:"alt_text"`
	Position int    `json:"position"`
}

// CreateCategoryRequest is the payload for category create/update
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateReviewRequest is the payload for review create/update
type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CreateAddressRequest is the payload for address create/update
type CreateAddressRequest struct {
	Label      string `json:"label"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}
