package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/middleware"
	"github.com/weps89/lb-electronica/internal/service"
)

type StockHandler struct{ svc *service.StockService }

func NewStockHandler(svc *service.StockService) *StockHandler { return &StockHandler{svc: svc} }

// IngestLot godoc
// @Summary      Receive a purchase lot
// @Description  Allocates logistics cost across lines, overwrites product cost basis (last-cost), increments stock and appends ledger rows. Atomic per lot.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateStockEntryRequest true "Lot"
// @Success      201 {object} dto.StockEntryResponse
// @Failure      422 {object} apierror.ValidationError
// @Router       /v1/stock/entries [post]
func (h *StockHandler) IngestLot(c *gin.Context) {
	var req dto.CreateStockEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.IngestLot(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListEntries returns lots in a date window (default: today).
func (h *StockHandler) ListEntries(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListEntries(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetEntry returns one lot with its items.
func (h *StockHandler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.GetEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StockOut godoc
// @Summary      Register a stock-out (breakage, loss, internal use)
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.StockOutRequest true "Stock out"
// @Success      204
// @Failure      409 {object} apierror.APIError
// @Router       /v1/stock/out [post]
func (h *StockHandler) StockOut(c *gin.Context) {
	var req dto.StockOutRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	if err := h.svc.StockOut(c.Request.Context(), claims.UserID, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Adjust applies a signed manual stock correction.
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	if err := h.svc.AdjustStock(c.Request.Context(), claims.UserID, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListLedger godoc
// @Summary      Stock ledger movements
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        from       query string false "From date YYYY-MM-DD (default: today)"
// @Param        to         query string false "To date YYYY-MM-DD"
// @Param        product_id query string false "Filter by product UUID"
// @Success      200 {array} dto.LedgerMovementResponse
// @Router       /v1/stock/ledger [get]
func (h *StockHandler) ListLedger(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	var productID *uuid.UUID
	if raw := c.Query("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid product_id"))
			return
		}
		productID = &id
	}
	resp, err := h.svc.ListLedger(c.Request.Context(), from, to, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
