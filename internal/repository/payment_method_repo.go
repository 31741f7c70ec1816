package repository

import (
	"context"

	"minimalgym/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentMethodRepository interface {
	Create(ctx context.Context, m *model.PaymentMethod) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.PaymentMethod, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]model.PaymentMethod, error)
}

type paymentMethodRepo struct{ db *gorm.DB }

func NewPaymentMethodRepository(db *gorm.DB) PaymentMethodRepository {
	return &paymentMethodRepo{db: db}
}

func (r *paymentMethodRepo) Create(ctx context.Context, m *model.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *paymentMethodRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentMethod, error) {
	var m model.PaymentMethod
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	return &m, err
}

func (r *paymentMethodRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.PaymentMethod, error) {
	out := make(map[uuid.UUID]model.PaymentMethod, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var methods []model.PaymentMethod
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&methods).Error; err != nil {
		return nil, err
	}
	for _, m := range methods {
		out[m.ID] = m
	}
	return out, nil
}

func (r *paymentMethodRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]model.PaymentMethod, error) {
	var methods []model.PaymentMethod
	err := conn(ctx, r.db, tx).Where("is_active = ?", true).Order("name ASC").Find(&methods).Error
	return methods, err
}
