package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is money paid out of the business. CashSessionID is set only when
// the expense was paid with the cash-equivalent method.
type Expense struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Description     string          `gorm:"not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_expenses_amount,amount > 0"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid;not null"`
	CashSessionID   *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt       time.Time
	CreatedBy       uuid.UUID `gorm:"type:uuid;not null"`
}

func (e *Expense) BeforeCreate(*gorm.DB) error { ensureID(&e.ID); return nil }
