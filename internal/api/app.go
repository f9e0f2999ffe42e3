package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shoplite/storefront-api/internal/auth"
	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/metrics"
	"github.com/shoplite/storefront-api/internal/middleware"
	"github.com/shoplite/storefront-api/internal/respond"
	"github.com/shoplite/storefront-api/internal/services"
	"github.com/shoplite/storefront-api/internal/storeerr"
	"github.com/shoplite/storefront-api/pkg/config"
)

// App holds application dependencies
type App struct {
	config          *config.Config
	db              *db.DB
	metrics         *metrics.AppMetrics
	tokens          *auth.TokenService
	userService     *services.UserService
	productService  *services.ProductService
	imageService    *services.ProductImageService
	categoryService *services.CategoryService
	cartService     *services.CartService
	orderService    *services.OrderService
	reviewService   *services.ReviewService
	addressService  *services.AddressService
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	database *db.DB,
	m *metrics.AppMetrics,
	tokens *auth.TokenService,
	us *services.UserService,
	ps *services.ProductService,
	is *services.ProductImageService,
	cats *services.CategoryService,
	cs *services.CartService,
	os *services.OrderService,
	rs *services.ReviewService,
	as *services.AddressService,
) *App {
	return &App{
		config:          cfg,
		db:              database,
		metrics:         m,
		tokens:          tokens,
		userService:     us,
		productService:  ps,
		imageService:    is,
		categoryService: cats,
		cartService:     cs,
		orderService:    os,
		reviewService:   rs,
		addressService:  as,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	r.HandleFunc("/health", a.HealthHandler).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", a.RegisterHandler).Methods("POST")
	api.HandleFunc("/auth/login", a.LoginHandler).Methods("POST")
	api.HandleFunc("/auth/refresh", a.RefreshHandler).Methods("POST")
	api.HandleFunc("/categories", a.ListCategoriesHandler).Methods("GET")
	api.HandleFunc("/categories/{id}", a.GetCategoryHandler).Methods("GET")
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/products/{id}/reviews", a.ListReviewsHandler).Methods("GET")
	api.HandleFunc("/products/{id}/images", a.ListProductImagesHandler).Methods("GET")

	// Authenticated routes
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.AuthMiddleware(a.tokens))

	authed.HandleFunc("/me", a.MeHandler).Methods("GET")

	authed.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	authed.HandleFunc("/cart", a.ClearCartHandler).Methods("DELETE")
	authed.HandleFunc("/cart/items", a.AddToCartHandler).Methods("POST")
	authed.HandleFunc("/cart/items/{productID}", a.UpdateCartItemHandler).Methods("PUT")
	authed.HandleFunc("/cart/items/{productID}", a.RemoveFromCartHandler).Methods("DELETE")

	authed.HandleFunc("/orders", a.CreateOrderHandler).Methods("POST")
	authed.HandleFunc("/orders", a.ListOrdersHandler).Methods("GET")
	authed.HandleFunc("/orders/{id}", a.GetOrderHandler).Methods("GET")
	authed.HandleFunc("/orders/{id}/cancel", a.CancelOrderHandler).Methods("POST")
	authed.HandleFunc("/checkout", a.CheckoutHandler).Methods("POST")

	authed.HandleFunc("/products/{id}/reviews", a.CreateReviewHandler).Methods("POST")
	authed.HandleFunc("/reviews/{id}", a.UpdateReviewHandler).Methods("PUT")
	authed.HandleFunc("/reviews/{id}", a.DeleteReviewHandler).Methods("DELETE")

	authed.HandleFunc("/addresses", a.ListAddressesHandler).Methods("GET")
	authed.HandleFunc("/addresses", a.CreateAddressHandler).Methods("POST")
	authed.HandleFunc("/addresses/{id}", a.UpdateAddressHandler).Methods("PUT")
	authed.HandleFunc("/addresses/{id}", a.DeleteAddressHandler).Methods("DELETE")

	// Staff routes
	staff := api.NewRoute().Subrouter()
	staff.Use(middleware.AuthMiddleware(a.tokens))
	staff.Use(middleware.RequireStaff)

	staff.HandleFunc("/categories", a.CreateCategoryHandler).Methods("POST")
	staff.HandleFunc("/categories/{id}", a.UpdateCategoryHandler).Methods("PUT")
	staff.HandleFunc("/categories/{id}", a.DeleteCategoryHandler).Methods("DELETE")
	staff.HandleFunc("/products", a.CreateProductHandler).Methods("POST")
	staff.HandleFunc("/products/{id}", a.UpdateProductHandler).Methods("PUT")
	staff.HandleFunc("/products/{id}", a.DeleteProductHandler).Methods("DELETE")
	staff.HandleFunc("/products/{id}/images", a.CreateProductImageHandler).Methods("POST")
	staff.HandleFunc("/images/{id}", a.UpdateProductImageHandler).Methods("PUT")
	staff.HandleFunc("/images/{id}", a.DeleteProductImageHandler).Methods("DELETE")
	staff.HandleFunc("/orders/{id}/status", a.UpdateOrderStatusHandler).Methods("PUT")
	staff.HandleFunc("/orders/{id}/pay", a.MarkOrderPaidHandler).Methods("POST")
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// pathID parses the named path variable as an int64.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", storeerr.ErrValidation, name)
	}
	return id, nil
}

// callerID returns the authenticated user's id.
func callerID(r *http.Request) (int64, error) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return 0, storeerr.ErrUnauthorized
	}
	return identity.UserID, nil
}
