package handler

import (
	"net/http"

	"minimalgym/internal/dto"
	"minimalgym/internal/middleware"
	"minimalgym/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.StockService }

func NewInventoryHandler(svc service.StockService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// GetStock godoc
// @Summary Derived stock of a product
// @Tags inventory
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Success 200 {object} dto.StockResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/inventory/{productId}/stock [get]
func (h *InventoryHandler) GetStock(c *gin.Context) {
	id, ok := pathID(c, "productId")
	if !ok {
		return
	}
	resp, err := h.svc.GetStock(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListMovements godoc
// @Summary Inventory ledger of a product, newest first
// @Tags inventory
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Param type query string false "in | out | adjust | waste"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(100)
// @Success 200 {object} dto.InventoryMovementListResponse
// @Router /v1/inventory/{productId}/movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	id, ok := pathID(c, "productId")
	if !ok {
		return
	}
	var filter dto.InventoryMovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListMovements(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordMovement godoc
// @Summary Record a manual inventory movement
// @Description Out and waste movements are rejected when stock would go negative.
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.InventoryMovementRequest true "Movement"
// @Success 201 {object} dto.InventoryMovementResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/inventory/movements [post]
func (h *InventoryHandler) RecordMovement(c *gin.Context) {
	var req dto.InventoryMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordMovement(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
