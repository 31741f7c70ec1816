package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// OpenSessionRequest carries the opening user's credentials: a drawer is only
// opened after the user's password is re-verified.
type OpenSessionRequest struct {
	UserID        string          `json:"user_id"        validate:"required,uuid"`
	Password      string          `json:"password"       validate:"required"`
	OpeningAmount decimal.Decimal `json:"opening_amount" validate:"min=0"`
}

type CashMovementRequest struct {
	Type   string          `json:"type"   validate:"required,oneof=in out"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Notes  string          `json:"notes"  validate:"max=500"`
}

// CloseSessionRequest holds the teller-declared totals. They are recorded as
// given; only Difference is derived.
type CloseSessionRequest struct {
	CashTotal     decimal.Decimal `json:"cash_total"     validate:"min=0"`
	CardTotal     decimal.Decimal `json:"card_total"     validate:"min=0"`
	TransferTotal decimal.Decimal `json:"transfer_total" validate:"min=0"`
	OtherTotal    decimal.Decimal `json:"other_total"    validate:"min=0"`
	CountedCash   decimal.Decimal `json:"counted_cash"   validate:"min=0"`
	Notes         *string         `json:"notes"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CashSessionResponse struct {
	ID            string               `json:"id"`
	OpenedBy      string               `json:"opened_by"`
	OpenedAt      string               `json:"opened_at"`
	OpeningAmount decimal.Decimal      `json:"opening_amount"`
	Status        string               `json:"status"`
	ClosedBy      *string              `json:"closed_by,omitempty"`
	ClosedAt      *string              `json:"closed_at,omitempty"`
	Closure       *CashClosureResponse `json:"closure,omitempty"`
}

type CashClosureResponse struct {
	CashSessionID string          `json:"cash_session_id"`
	ClosedBy      string          `json:"closed_by"`
	ClosedAt      string          `json:"closed_at"`
	CashTotal     decimal.Decimal `json:"cash_total"`
	CardTotal     decimal.Decimal `json:"card_total"`
	TransferTotal decimal.Decimal `json:"transfer_total"`
	OtherTotal    decimal.Decimal `json:"other_total"`
	CountedCash   decimal.Decimal `json:"counted_cash"`
	Difference    decimal.Decimal `json:"difference"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
	Notes         *string         `json:"notes,omitempty"`
}

type CashMovementResponse struct {
	ID            string          `json:"id"`
	CashSessionID string          `json:"cash_session_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes"`
	CreatedAt     string          `json:"created_at"`
}

type MethodTotalResponse struct {
	PaymentMethodID string          `json:"payment_method_id"`
	Name            string          `json:"name"`
	Total           decimal.Decimal `json:"total"`
}

// SnapshotResponse is the derived cash position of one session.
type SnapshotResponse struct {
	CashSessionID    string                `json:"cash_session_id"`
	OpeningAmount    decimal.Decimal       `json:"opening_amount"`
	PerMethod        []MethodTotalResponse `json:"per_method"`
	CashMovementsIn  decimal.Decimal       `json:"cash_movements_in"`
	CashMovementsOut decimal.Decimal       `json:"cash_movements_out"`
	CashExpenses     decimal.Decimal       `json:"cash_expenses"`
	CashMethodID     string                `json:"cash_method_id"`
	ExpectedCash     decimal.Decimal       `json:"expected_cash"`
}
