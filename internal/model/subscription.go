package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SubscriptionPending   = "pending"
	SubscriptionActive    = "active"
	SubscriptionPaused    = "paused"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

type MembershipPlan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name         string          `gorm:"not null"`
	DurationDays int             `gorm:"not null;check:chk_membership_plans_duration,duration_days > 0"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_membership_plans_price,price > 0"`
	IsActive     bool            `gorm:"not null"`
	CreatedAt    time.Time
}

func (p *MembershipPlan) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

// Subscription dates are calendar days (UTC midnight). A member has at most
// one active subscription; the partial unique index backs that up.
type Subscription struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	MemberID               uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:ux_subscriptions_member_active,where:status = 'active'"`
	PlanID                 uuid.UUID       `gorm:"type:uuid;not null"`
	StartDate              time.Time       `gorm:"type:date;not null"`
	EndDate                time.Time       `gorm:"type:date;not null"`
	Status                 string          `gorm:"type:varchar(20);not null"`
	Price                  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PausedAt               *time.Time
	PreviousSubscriptionID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt              time.Time
	UpdatedAt              time.Time

	Plan *MembershipPlan `gorm:"foreignKey:PlanID"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

// Payment is a subscription payment leg, shaped like SalePayment.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SubscriptionID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid;not null"`
	CashSessionID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAt          time.Time       `gorm:"not null"`
	Reference       *string
	Proof           *string
	CreatedBy       uuid.UUID `gorm:"type:uuid;not null"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }
