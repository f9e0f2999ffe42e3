package api

import (
	"net/http"

	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/respond"
)

// ListProductImagesHandler handles GET /api/v1/products/{id}/images
func (a *App) ListProductImagesHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	images, err := a.imageService.ListByProduct(r.Context(), productID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, images)
}

// CreateProductImageHandler handles POST /api/v1/products/{id}/images
func (a *App) CreateProductImageHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateProductImageRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	image, err := a.imageService.Create(r.Context(), productID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, image)
}

// UpdateProductImageHandler handles PUT /api/v1/images/{id}
func (a *App) UpdateProductImageHandler(w http.ResponseWriter, r *http.Request) {
	imageID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateProductImageRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	image, err := a.imageService.Update(r.Context(), imageID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, image)
}

// DeleteProductImageHandler handles DELETE /api/v1/images/{id}
func (a *App) DeleteProductImageHandler(w http.ResponseWriter, r *http.Request) {
	imageID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.imageService.Delete(r.Context(), imageID); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
