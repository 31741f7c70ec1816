package repository

import (
	"context"

	"minimalgym/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MethodTotal is a signed payment sum for one payment method.
type MethodTotal struct {
	PaymentMethodID uuid.UUID
	Total           decimal.Decimal
}

type SaleRepository interface {
	// Create inserts the sale header together with its items.
	Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	// LockByID re-reads the sale header FOR UPDATE inside tx.
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error

	CreatePayments(ctx context.Context, tx *gorm.DB, payments []model.SalePayment) error
	// SumPayments is the net amount collected for a sale (refund legs included).
	SumPayments(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (decimal.Decimal, error)
	// CollectedByMethod groups a sale's non-negative payments by method.
	CollectedByMethod(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) ([]MethodTotal, error)
	// SessionTotalsByMethod groups every sale payment taken during a session by method.
	SessionTotalsByMethod(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]MethodTotal, error)

	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	return conn(ctx, r.db, tx).Omit("Member", "Payments").Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := conn(ctx, r.db, tx).
		Preload("Member").
		Preload("Items.Product").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		Preload("Payments.PaymentMethod").
		Where("id = ?", id).
		First(&s).Error
	return &s, err
}

func (r *saleRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := forUpdate(conn(ctx, r.db, tx)).Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *saleRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return conn(ctx, r.db, tx).Model(&model.Sale{}).Where("id = ?", id).Update("status", status).Error
}

func (r *saleRepo) CreatePayments(ctx context.Context, tx *gorm.DB, payments []model.SalePayment) error {
	if len(payments) == 0 {
		return nil
	}
	return conn(ctx, r.db, tx).Omit("PaymentMethod").Create(&payments).Error
}

func (r *saleRepo) SumPayments(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (decimal.Decimal, error) {
	var sum struct{ Total decimal.Decimal }
	err := conn(ctx, r.db, tx).Model(&model.SalePayment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("sale_id = ?", saleID).
		Scan(&sum).Error
	return sum.Total.Round(2), err
}

func (r *saleRepo) CollectedByMethod(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) ([]MethodTotal, error) {
	var rows []MethodTotal
	err := conn(ctx, r.db, tx).Model(&model.SalePayment{}).
		Select("payment_method_id, SUM(amount) AS total").
		Where("sale_id = ? AND amount >= 0", saleID).
		Group("payment_method_id").
		Order("payment_method_id").
		Scan(&rows).Error
	return roundTotals(rows), err
}

func (r *saleRepo) SessionTotalsByMethod(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]MethodTotal, error) {
	var rows []MethodTotal
	err := conn(ctx, r.db, tx).Model(&model.SalePayment{}).
		Select("payment_method_id, SUM(amount) AS total").
		Where("cash_session_id = ?", sessionID).
		Group("payment_method_id").
		Scan(&rows).Error
	return roundTotals(rows), err
}

// roundTotals normalises SQLite's floating-point sums to cents.
func roundTotals(rows []MethodTotal) []MethodTotal {
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows
}
