package api

import (
	"net/http"
	"strconv"

	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/respond"
)

// ListProductsHandler handles GET /api/v1/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0
	var categoryID int64
	onlyAvailable := false

	q := r.URL.Query()
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	if o := q.Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil {
			offset = parsed
		}
	}
	if c := q.Get("category_id"); c != "" {
		if parsed, err := strconv.ParseInt(c, 10, 64); err == nil {
			categoryID = parsed
		}
	}
	if q.Get("available") == "true" {
		onlyAvailable = true
	}

	products, err := a.productService.List(r.Context(), limit, offset, categoryID, onlyAvailable)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	product, err := a.productService.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, product)
}

// CreateProductHandler handles POST /api/v1/products
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	product, err := a.productService.Create(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, product)
}

// UpdateProductHandler handles PUT /api/v1/products/{id}
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	product, err := a.productService.Update(r.Context(), id, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, product)
}

// DeleteProductHandler handles DELETE /api/v1/products/{id}
func (a *App) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.productService.Delete(r.Context(), id); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCategoriesHandler handles GET /api/v1/categories
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := a.categoryService.List(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, categories)
}

// GetCategoryHandler handles GET /api/v1/categories/{id}
func (a *App) GetCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	category, err := a.categoryService.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, category)
}

// CreateCategoryHandler handles POST /api/v1/categories
func (a *App) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	category, err := a.categoryService.Create(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, category)
}

// UpdateCategoryHandler handles PUT /api/v1/categories/{id}
func (a *App) UpdateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	category, err := a.categoryService.Update(r.Context(), id, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, category)
}

// DeleteCategoryHandler handles DELETE /api/v1/categories/{id}
func (a *App) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.categoryService.Delete(r.Context(), id); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListReviewsHandler handles GET /api/v1/products/{id}/reviews
func (a *App) ListReviewsHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	reviews, err := a.reviewService.ListByProduct(r.Context(), productID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, reviews)
}

// CreateReviewHandler handles POST /api/v1/products/{id}/reviews
func (a *App) CreateReviewHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	review, err := a.reviewService.Create(r.Context(), productID, userID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, review)
}

// UpdateReviewHandler handles PUT /api/v1/reviews/{id}
func (a *App) UpdateReviewHandler(w http.ResponseWriter, r *http.Request) {
	reviewID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	review, err := a.reviewService.Update(r.Context(), reviewID, userID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, review)
}

// DeleteReviewHandler handles DELETE /api/v1/reviews/{id}
func (a *App) DeleteReviewHandler(w http.ResponseWriter, r *http.Request) {
	reviewID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.reviewService.Delete(r.Context(), reviewID, userID); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
