package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/middleware"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/service"
)

type ProductsHandler struct{ svc *service.ProductService }

func NewProductsHandler(svc *service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

func isAdmin(c *gin.Context) bool {
	claims := middleware.GetClaims(c)
	return claims != nil && claims.Role == string(model.RoleAdmin)
}

// Create godoc
// @Summary      Create a product (admin only)
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateProductRequest true "Product"
// @Success      201 {object} dto.ProductResponse
// @Failure      422 {object} apierror.ValidationError
// @Router       /v1/products [post]
func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update godoc
// @Summary      Update a product (admin only)
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Product UUID"
// @Param        body body dto.UpdateProductRequest true "Product"
// @Success      200 {object} dto.ProductResponse
// @Router       /v1/products/{id} [put]
func (h *ProductsHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Update(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary      List products with derived ARS prices
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        q      query string false "Name, code or barcode search"
// @Param        active query bool   false "Filter by active flag"
// @Success      200 {array} dto.ProductResponse
// @Router       /v1/products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter, isAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns one product by id.
func (h *ProductsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id, isAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LowStock godoc
// @Summary      Products at or below their minimum quantity
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.ProductResponse
// @Router       /v1/products/low-stock [get]
func (h *ProductsHandler) LowStock(c *gin.Context) {
	resp, err := h.svc.ListLowStock(c.Request.Context(), isAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Deactivate soft-disables a product. Products are never deleted.
func (h *ProductsHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Reactivate re-enables a previously deactivated product.
func (h *ProductsHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *ProductsHandler) setActive(c *gin.Context, active bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	claims := middleware.GetClaims(c)
	if err := h.svc.SetActive(c.Request.Context(), claims.UserID, id, active); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
