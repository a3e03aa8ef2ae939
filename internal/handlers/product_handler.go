package handlers

import (
	"net/http"
	"strconv"

	"delivery_api/internal/models"
	"delivery_api/internal/services"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	catalog services.CatalogService
}

func NewProductHandler(catalog services.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// List handles GET /api/products?category_id=&featured=&search=
func (h *ProductHandler) List(c *gin.Context) {
	var filter models.ProductFilter
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			badRequest(c, "invalid category_id")
			return
		}
		filter.CategoryID = uint(id)
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid featured flag")
			return
		}
		filter.Featured = featured
	}
	filter.Search = c.Query("search")
	if len(filter.Search) > 100 {
		badRequest(c, "search must be at most 100 characters")
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, products)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *ProductHandler) Categories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, categories)
}
