package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"shop_back_end/internal/middleware"
	"shop_back_end/internal/services"
)

type ProductHandler struct {
	catalog *services.CatalogService
	log     *slog.Logger
}

func NewProductHandler(catalog *services.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, log: orDefault(logger)}
}

// productRequest accepts price as a JSON number or a decimal string.
type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

func (r productRequest) input() services.ProductInput {
	return services.ProductInput{Name: r.Name, Description: r.Description, Price: r.Price}
}

// GET /products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /products (admin)
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.catalog.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Set(middleware.CtxAuditResourceID, p.ID.String())
	c.JSON(http.StatusCreated, p)
}

// PUT /products/:id (admin)
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /products/:id (admin)
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
