package repository

import (
	"context"

	"minimalgym/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRepository interface {
	Create(ctx context.Context, m *model.Member) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
}

type memberRepo struct{ db *gorm.DB }

func NewMemberRepository(db *gorm.DB) MemberRepository { return &memberRepo{db: db} }

func (r *memberRepo) Create(ctx context.Context, m *model.Member) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *memberRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	var m model.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	return &m, err
}
