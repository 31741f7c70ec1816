package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SessionOpen   = "open"
	SessionClosed = "closed"

	CashIn  = "in"
	CashOut = "out"
)

// CashSession is one register shift. The partial unique index on status
// guarantees at most one open session at the storage level.
type CashSession struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OpenedBy      uuid.UUID       `gorm:"type:uuid;not null"`
	OpenedAt      time.Time       `gorm:"not null"`
	OpeningAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_cash_sessions_opening_amount,opening_amount >= 0"`
	Status        string          `gorm:"type:varchar(10);not null;uniqueIndex:ux_cash_sessions_open,where:status = 'open'"`
	ClosedBy      *uuid.UUID      `gorm:"type:uuid"`
	ClosedAt      *time.Time

	Closure *CashClosure `gorm:"foreignKey:CashSessionID"`
}

func (s *CashSession) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

// CashMovement is a manual drawer in/out, never modified after insert.
type CashMovement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CashSessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type          string          `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_cash_movements_amount,amount > 0"`
	Notes         string
	CreatedAt     time.Time
	CreatedBy     uuid.UUID `gorm:"type:uuid;not null"`
}

func (m *CashMovement) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }

// CashClosure records the teller's declared totals at close. ExpectedCash is
// the ledger-derived figure at the moment of closing, kept for reference only.
type CashClosure struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CashSessionID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	ClosedBy      uuid.UUID       `gorm:"type:uuid;not null"`
	ClosedAt      time.Time       `gorm:"not null"`
	CashTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CardTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TransferTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OtherTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CountedCash   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Difference    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedCash  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Notes         *string
}

func (c *CashClosure) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }
