package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/service"
)

type CustomersHandler struct{ svc *service.CustomerService }

func NewCustomersHandler(svc *service.CustomerService) *CustomersHandler {
	return &CustomersHandler{svc: svc}
}

// Search godoc
// @Summary      Search customers by DNI or name
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        q query string false "Search term"
// @Success      200 {array} dto.CustomerResponse
// @Router       /v1/customers [get]
func (h *CustomersHandler) Search(c *gin.Context) {
	resp, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Upsert creates or refreshes a customer entry by DNI.
func (h *CustomersHandler) Upsert(c *gin.Context) {
	var req dto.CustomerUpsertRequest
	if !bindAndValidate(c, &req) {
		return
	}
	customer, err := h.svc.UpsertByDni(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CustomerResponse{
		ID:    customer.ID.String(),
		Dni:   customer.Dni,
		Name:  customer.Name,
		Phone: customer.Phone,
	})
}
