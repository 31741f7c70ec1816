package handler

import (
	"net/http"

	"minimalgym/internal/dto"
	"minimalgym/internal/middleware"
	"minimalgym/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct {
	sales    service.SaleService
	payments service.PaymentService
}

func NewSalesHandler(sales service.SaleService, payments service.PaymentService) *SalesHandler {
	return &SalesHandler{sales: sales, payments: payments}
}

// Create godoc
// @Summary      Register a sale
// @Description  Inserts the sale, its items and one stock debit per item in one transaction. Requires an open cash session.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateSaleRequest true "Sale"
// @Success      201  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/sales [post]
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sales.CreateSale(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary      Get a sale with items and payments
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Sale ID"
// @Success      200  {object} dto.SaleResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sales/{id} [get]
func (h *SalesHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddPayment godoc
// @Summary      Record a single payment leg
// @Description  The leg must cover the remaining balance on its own.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string           true "Sale ID"
// @Param        body body     dto.PaymentEntry true "Payment"
// @Success      201  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/sales/{id}/payments [post]
func (h *SalesHandler) AddPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentEntry
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.payments.AddPayment(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AddPayments godoc
// @Summary      Record several payment legs atomically
// @Description  Legs are validated together and inserted all or none.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                  true "Sale ID"
// @Param        body body     dto.BatchPaymentRequest true "Payments"
// @Success      201  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/sales/{id}/payments/batch [post]
func (h *SalesHandler) AddPayments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.BatchPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.payments.AddPayments(c.Request.Context(), middleware.CurrentUserID(c), id, req.Payments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Refund godoc
// @Summary      Refund a completed sale
// @Description  Writes negative legs per method, marks the sale refunded and restocks every item.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Sale ID"
// @Success      200  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/sales/{id}/refund [post]
func (h *SalesHandler) Refund(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.payments.Refund(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
