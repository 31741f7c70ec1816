package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable stock item. Its quantity on hand is never stored here;
// it is derived from InventoryMovement rows.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SKU       string          `gorm:"uniqueIndex;not null"`
	Name      string          `gorm:"index;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IsActive  bool            `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Product) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

type Member struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName  string    `gorm:"not null"`
	Email     *string
	IsActive  bool `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Member) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }

// User is a staff account. Only the fields read by the cash-session identity
// check are modelled.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	FullName     string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(20);not null"`
	IsActive     bool      `gorm:"not null"`
	IsLocked     bool      `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error { ensureID(&u.ID); return nil }

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// PaymentMethod is a tender. IsCashEquivalent marks the one method whose
// totals count toward the drawer's expected cash.
type PaymentMethod struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name             string    `gorm:"uniqueIndex;not null"`
	IsActive         bool      `gorm:"not null"`
	IsCashEquivalent bool      `gorm:"not null"`
	CreatedAt        time.Time
}

func (m *PaymentMethod) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }

// SettingsID is the primary key of the singleton settings row.
const SettingsID = 1

// Setting holds business-wide knobs. TaxRate is a fraction (0.10 = 10%).
// NextReceiptNo is claimed atomically by each sale that does not bring its own
// receipt number.
type Setting struct {
	ID            uint            `gorm:"primaryKey"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(6,4);not null"`
	ReceiptPrefix string          `gorm:"type:varchar(20);not null"`
	NextReceiptNo int64           `gorm:"not null"`
	UpdatedAt     time.Time
}
