package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SaleCompleted = "completed"
	SaleRefunded  = "refunded"

	// RefundReference tags the negative payment legs written by a refund.
	RefundReference = "Refund"
)

// Sale header. Total = Subtotal - Discount + Tax and is always positive.
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	MemberID      *uuid.UUID      `gorm:"type:uuid;index"`
	CashSessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_sales_total,total > 0"`
	Status        string          `gorm:"type:varchar(20);not null"`
	ReceiptNumber string          `gorm:"type:varchar(40);uniqueIndex;not null"`
	CreatedAt     time.Time
	CreatedBy     uuid.UUID `gorm:"type:uuid;not null"`

	Member   *Member       `gorm:"foreignKey:MemberID"`
	Items    []SaleItem    `gorm:"foreignKey:SaleID"`
	Payments []SalePayment `gorm:"foreignKey:SaleID"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

// SaleItem is immutable once its sale is created.
type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity  int             `gorm:"not null;check:chk_sale_items_quantity,quantity > 0"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (i *SaleItem) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

// SalePayment is one leg of a sale's payment ledger. Negative amounts are
// refund legs. CashSessionID is the session that was open when it was taken.
type SalePayment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid;not null"`
	CashSessionID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAt          time.Time       `gorm:"not null"`
	Reference       *string
	Proof           *string
	CreatedBy       uuid.UUID `gorm:"type:uuid;not null"`

	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID"`
}

func (p *SalePayment) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }
