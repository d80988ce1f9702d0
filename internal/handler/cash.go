package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/middleware"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/service"
)

type CashHandler struct{ svc *service.CashService }

func NewCashHandler(svc *service.CashService) *CashHandler { return &CashHandler{svc: svc} }

// Open godoc
// @Summary      Open a cash session with an opening float
// @Tags         cash
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.OpenCashSessionRequest true "Opening float"
// @Success      201 {object} dto.CashSessionResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cash/open [post]
func (h *CashHandler) Open(c *gin.Context) {
	var req dto.OpenCashSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.OpenSession(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Movement godoc
// @Summary      Record an income or expense on the open session
// @Tags         cash
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CashMovementRequest true "Movement"
// @Success      201 {object} dto.CashMovementResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cash/movements [post]
func (h *CashHandler) Movement(c *gin.Context) {
	var req dto.CashMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.RecordMovement(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary      Close the open session against a physical count
// @Description  expected = opening + incomes (excluding non-cash sale receipts) - expenses; difference = counted - expected.
// @Tags         cash
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CloseCashSessionRequest true "Counted cash"
// @Success      200 {object} dto.CashSessionResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cash/close [post]
func (h *CashHandler) Close(c *gin.Context) {
	var req dto.CloseCashSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.CloseSession(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Current returns the caller's open session, or 404 when none is open.
func (h *CashHandler) Current(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resp, err := h.svc.CurrentSession(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MyDay godoc
// @Summary      The caller's day rollup: sales, till movements, closure diffs
// @Tags         cash
// @Produce      json
// @Security     BearerAuth
// @Param        date query string false "Day YYYY-MM-DD (default: today)"
// @Success      200 {object} dto.MyDayResponse
// @Router       /v1/cash/my-day [get]
func (h *CashHandler) MyDay(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, day.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid date, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.MyDay(c.Request.Context(), claims.UserID, day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Sessions lists sessions in a date window. Cashiers only see their own.
func (h *CashHandler) Sessions(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	var userID *uuid.UUID
	if claims.Role != string(model.RoleAdmin) {
		userID = &claims.UserID
	}
	resp, err := h.svc.ListSessions(c.Request.Context(), from, to, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
