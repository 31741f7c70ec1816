package repository

import (
	"context"
	"time"

	"minimalgym/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *model.Subscription) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Subscription, error)
	Update(ctx context.Context, tx *gorm.DB, s *model.Subscription) error
	// CountActive counts the member's active subscriptions, ignoring the ids in exclude.
	CountActive(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, exclude ...uuid.UUID) (int64, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]model.Subscription, error)
	// ExpireLapsed flips active subscriptions whose end date is before today to expired.
	ExpireLapsed(ctx context.Context, today time.Time) (int64, error)

	CreatePlan(ctx context.Context, p *model.MembershipPlan) error
	FindPlan(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MembershipPlan, error)

	CreatePayment(ctx context.Context, tx *gorm.DB, p *model.Payment) error
	// SessionTotalsByMethod groups subscription payments taken during a session by method.
	SessionTotalsByMethod(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]MethodTotal, error)
	SumPayments(ctx context.Context, subscriptionID uuid.UUID) (decimal.Decimal, error)

	DB() *gorm.DB
}

type subscriptionRepo struct{ db *gorm.DB }

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) DB() *gorm.DB { return r.db }

func (r *subscriptionRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Subscription) error {
	return conn(ctx, r.db, tx).Omit("Plan").Create(s).Error
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Subscription, error) {
	var s model.Subscription
	err := conn(ctx, r.db, tx).Preload("Plan").Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *subscriptionRepo) Update(ctx context.Context, tx *gorm.DB, s *model.Subscription) error {
	return conn(ctx, r.db, tx).Omit("Plan").Save(s).Error
}

func (r *subscriptionRepo) CountActive(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, exclude ...uuid.UUID) (int64, error) {
	q := conn(ctx, r.db, tx).Model(&model.Subscription{}).
		Where("member_id = ? AND status = ?", memberID, model.SubscriptionActive)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *subscriptionRepo) ListByMember(ctx context.Context, memberID uuid.UUID) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).Preload("Plan").
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepo) ExpireLapsed(ctx context.Context, today time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("status = ? AND end_date < ?", model.SubscriptionActive, today).
		Updates(map[string]interface{}{
			"status":     model.SubscriptionExpired,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *subscriptionRepo) CreatePlan(ctx context.Context, p *model.MembershipPlan) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *subscriptionRepo) FindPlan(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MembershipPlan, error) {
	var p model.MembershipPlan
	err := conn(ctx, r.db, tx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *subscriptionRepo) CreatePayment(ctx context.Context, tx *gorm.DB, p *model.Payment) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *subscriptionRepo) SessionTotalsByMethod(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]MethodTotal, error) {
	var rows []MethodTotal
	err := conn(ctx, r.db, tx).Model(&model.Payment{}).
		Select("payment_method_id, SUM(amount) AS total").
		Where("cash_session_id = ?", sessionID).
		Group("payment_method_id").
		Scan(&rows).Error
	return roundTotals(rows), err
}

func (r *subscriptionRepo) SumPayments(ctx context.Context, subscriptionID uuid.UUID) (decimal.Decimal, error) {
	var sum struct{ Total decimal.Decimal }
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("subscription_id = ?", subscriptionID).
		Scan(&sum).Error
	return sum.Total.Round(2), err
}
