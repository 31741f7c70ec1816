package dto

import "github.com/shopspring/decimal"

// InventoryMovementFilter is bound from the query string of GET /v1/inventory/:productId/movements.
type InventoryMovementFilter struct {
	Type  string `form:"type"`
	Page  int    `form:"page,default=1"    validate:"min=1"`
	Limit int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type InventoryMovementRequest struct {
	ProductID string           `json:"product_id" validate:"required,uuid"`
	Type      string           `json:"type"       validate:"required,oneof=in out adjust waste"`
	Quantity  int              `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
	Notes     string           `json:"notes"      validate:"max=500"`
}

type InventoryMovementResponse struct {
	ID          string           `json:"id"`
	ProductID   string           `json:"product_id"`
	Type        string           `json:"type"`
	Quantity    int              `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes       string           `json:"notes"`
	ReferenceID *string          `json:"reference_id,omitempty"`
	CreatedAt   string           `json:"created_at"`
}

type InventoryMovementListResponse struct {
	Data  []InventoryMovementResponse `json:"data"`
	Total int64                       `json:"total"`
	Page  int                         `json:"page"`
	Limit int                         `json:"limit"`
}

type StockResponse struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}
