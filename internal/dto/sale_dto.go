package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleItemRequest: a non-positive Tax asks the server to derive it from the
// configured tax rate.
type SaleItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
}

type CreateSaleRequest struct {
	MemberID      *string           `json:"member_id"      validate:"omitempty,uuid"`
	ReceiptNumber *string           `json:"receipt_number" validate:"omitempty,max=40"`
	Items         []SaleItemRequest `json:"items"          validate:"dive"`
}

// PaymentEntry is one payment leg. Proof is mandatory for non-cash methods.
type PaymentEntry struct {
	PaymentMethodID string          `json:"payment_method_id" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"`
	Reference       *string         `json:"reference"`
	Proof           *string         `json:"proof"`
}

type BatchPaymentRequest struct {
	Payments []PaymentEntry `json:"payments" validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ProductID string          `json:"product_id"`
	Product   string          `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type SalePaymentResponse struct {
	ID              string          `json:"id"`
	PaymentMethodID string          `json:"payment_method_id"`
	Method          string          `json:"method,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAt          string          `json:"paid_at"`
	Reference       *string         `json:"reference,omitempty"`
}

type SaleResponse struct {
	ID            string                `json:"id"`
	ReceiptNumber string                `json:"receipt_number"`
	MemberID      *string               `json:"member_id,omitempty"`
	CashSessionID string                `json:"cash_session_id"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	Discount      decimal.Decimal       `json:"discount"`
	Tax           decimal.Decimal       `json:"tax"`
	Total         decimal.Decimal       `json:"total"`
	Paid          decimal.Decimal       `json:"paid"`
	Balance       decimal.Decimal       `json:"balance"`
	Status        string                `json:"status"`
	Items         []SaleItemResponse    `json:"items"`
	Payments      []SalePaymentResponse `json:"payments"`
	CreatedAt     string                `json:"created_at"`
}
