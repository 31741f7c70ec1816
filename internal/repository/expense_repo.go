package repository

import (
	"context"

	"minimalgym/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, e *model.Expense) error
	// SumSessionCash totals the cash-paid expenses attached to a session.
	SumSessionCash(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (decimal.Decimal, error)
	DB() *gorm.DB
}

type expenseRepo struct{ db *gorm.DB }

func NewExpenseRepository(db *gorm.DB) ExpenseRepository { return &expenseRepo{db: db} }

func (r *expenseRepo) DB() *gorm.DB { return r.db }

func (r *expenseRepo) Create(ctx context.Context, tx *gorm.DB, e *model.Expense) error {
	return conn(ctx, r.db, tx).Create(e).Error
}

func (r *expenseRepo) SumSessionCash(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (decimal.Decimal, error) {
	var sum struct{ Total decimal.Decimal }
	err := conn(ctx, r.db, tx).Model(&model.Expense{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("cash_session_id = ?", sessionID).
		Scan(&sum).Error
	return sum.Total.Round(2), err
}
