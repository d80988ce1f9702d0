package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/middleware"
	"github.com/weps89/lb-electronica/internal/service"
)

type ExchangeRatesHandler struct{ svc *service.ExchangeRateService }

func NewExchangeRatesHandler(svc *service.ExchangeRateService) *ExchangeRatesHandler {
	return &ExchangeRatesHandler{svc: svc}
}

// Set godoc
// @Summary      Set the current ARS/USD rate (admin only)
// @Tags         rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.SetExchangeRateRequest true "Rate"
// @Success      201 {object} dto.ExchangeRateResponse
// @Router       /v1/rates [post]
func (h *ExchangeRatesHandler) Set(c *gin.Context) {
	var req dto.SetExchangeRateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.SetRate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Current returns the rate used for pricing right now.
func (h *ExchangeRatesHandler) Current(c *gin.Context) {
	rate := h.svc.CurrentRate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ars_per_usd": rate})
}

// History returns the most recent rate rows, newest first.
func (h *ExchangeRatesHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
