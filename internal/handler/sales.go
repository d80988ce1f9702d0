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

type SalesHandler struct{ svc *service.SaleService }

func NewSalesHandler(svc *service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// Create godoc
// @Summary      Create a sale in pending status
// @Description  Recomputes unit prices server side, decrements stock atomically with matching ledger rows. Rejects the whole cart on any insufficient line.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateSaleRequest true "Cart"
// @Success      201 {object} dto.SaleResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/sales [post]
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.CreateSale(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Collect godoc
// @Summary      Collect payment on a pending sale
// @Description  Cash needs received >= total; card/transfer need an operation number. Appends the receipt to the collector's open cash session.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CollectSaleRequest true "Collection"
// @Success      200 {object} dto.SaleResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/sales/collect [post]
func (h *SalesHandler) Collect(c *gin.Context) {
	var req dto.CollectSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.CollectSale(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel a pending sale
// @Description  Restores stock with matching ledger rows. Paid and verified sales cannot be cancelled.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Sale UUID"
// @Param        body body dto.CancelSaleRequest true "Reason"
// @Success      204
// @Failure      409 {object} apierror.APIError
// @Router       /v1/sales/{id} [delete]
func (h *SalesHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.CancelSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	if err := h.svc.CancelSale(c.Request.Context(), claims.UserID, id, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get returns one sale with its items.
func (h *SalesHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary      List sales in a date window
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        from query string false "From date YYYY-MM-DD (default: today)"
// @Param        to   query string false "To date YYYY-MM-DD"
// @Success      200 {array} dto.SaleResponse
// @Router       /v1/sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	// Cashiers only see their own sales; admins see everyone's.
	claims := middleware.GetClaims(c)
	var userID *uuid.UUID
	if claims.Role != string(model.RoleAdmin) {
		userID = &claims.UserID
	}
	resp, err := h.svc.ListSales(c.Request.Context(), from, to, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Pending returns all sales still awaiting collection or cancellation.
func (h *SalesHandler) Pending(c *gin.Context) {
	resp, err := h.svc.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
