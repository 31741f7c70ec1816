package dto

import "github.com/shopspring/decimal"

// Dates are calendar days in YYYY-MM-DD form; empty means today.

type CreateSubscriptionRequest struct {
	MemberID  string        `json:"member_id"  validate:"required,uuid"`
	PlanID    string        `json:"plan_id"    validate:"required,uuid"`
	StartDate string        `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Payment   *PaymentEntry `json:"payment"`
}

type RenewSubscriptionRequest struct {
	StartDate string        `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Payment   *PaymentEntry `json:"payment"`
}

type ChangePlanRequest struct {
	PlanID    string        `json:"plan_id"    validate:"required,uuid"`
	StartDate string        `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Payment   *PaymentEntry `json:"payment"`
}

type SubscriptionResponse struct {
	ID                     string          `json:"id"`
	MemberID               string          `json:"member_id"`
	PlanID                 string          `json:"plan_id"`
	StartDate              string          `json:"start_date"`
	EndDate                string          `json:"end_date"`
	Status                 string          `json:"status"`
	Price                  decimal.Decimal `json:"price"`
	Paid                   decimal.Decimal `json:"paid"`
	PausedAt               *string         `json:"paused_at,omitempty"`
	PreviousSubscriptionID *string         `json:"previous_subscription_id,omitempty"`
}
