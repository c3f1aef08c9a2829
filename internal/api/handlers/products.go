package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/dom/foodorder-backend/internal/api/respond"
	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/service"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	catalogService *service.CatalogService
}

func NewProductHandler(catalogService *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalogService: catalogService}
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.catalogService.ListProducts())
}

func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, CategoriesResponse{
		Categories: h.catalogService.Categories(),
	})
}

func (h *ProductHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	respond.JSON(w, http.StatusOK, h.catalogService.ProductsByCategory(category))
}

func (h *ProductHandler) ByBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")

	product, err := h.catalogService.LookupBarcode(r.Context(), barcode)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			respond.Error(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("ERROR [products.ByBarcode] barcode=%s: %v", barcode, err)
		respond.Error(w, http.StatusBadGateway, "error fetching product")
		return
	}

	respond.JSON(w, http.StatusOK, product)
}
