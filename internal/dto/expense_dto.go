package dto

import "github.com/shopspring/decimal"

type CreateExpenseRequest struct {
	Description     string          `json:"description"       validate:"required,min=3,max=200"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID string          `json:"payment_method_id" validate:"required,uuid"`
}

type ExpenseResponse struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID string          `json:"payment_method_id"`
	CashSessionID   *string         `json:"cash_session_id,omitempty"`
	CreatedAt       string          `json:"created_at"`
}
