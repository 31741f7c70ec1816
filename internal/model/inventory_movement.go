package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	MovementIn     = "in"
	MovementOut    = "out"
	MovementAdjust = "adjust"
	MovementWaste  = "waste"
)

// InventoryMovement is an append-only stock event. Quantity is always
// positive; the sign comes from Type (in/adjust add, out/waste subtract).
type InventoryMovement struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ProductID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type        string           `gorm:"type:varchar(10);not null"`
	Quantity    int              `gorm:"not null;check:chk_inventory_movements_quantity,quantity > 0"`
	UnitCost    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notes       string
	ReferenceID *uuid.UUID `gorm:"type:uuid;index"` // sale id for sale debits and refund restocks
	CreatedAt   time.Time
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (m *InventoryMovement) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }

// IsConsuming reports whether a movement type reduces stock.
func IsConsuming(movementType string) bool {
	return movementType == MovementOut || movementType == MovementWaste
}

// ValidMovementType reports whether t is one of the four inventory movement types.
func ValidMovementType(t string) bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementWaste:
		return true
	}
	return false
}
