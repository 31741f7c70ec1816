package repository

import (
	"context"
	"time"

	"minimalgym/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashMovementTotals are the manual in/out sums of one session.
type CashMovementTotals struct {
	In  decimal.Decimal
	Out decimal.Decimal
}

type CashRepository interface {
	CreateSession(ctx context.Context, tx *gorm.DB, s *model.CashSession) error
	// FindOpenSession returns gorm.ErrRecordNotFound when no session is open.
	FindOpenSession(ctx context.Context, tx *gorm.DB) (*model.CashSession, error)
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	// LockSession re-reads a session row inside tx, taking a row lock
	// (FOR UPDATE when exclusive, FOR SHARE otherwise) where the dialect supports it.
	LockSession(ctx context.Context, tx *gorm.DB, id uuid.UUID, exclusive bool) (*model.CashSession, error)
	MarkClosed(ctx context.Context, tx *gorm.DB, id, closedBy uuid.UUID, closedAt time.Time) error

	CreateMovement(ctx context.Context, tx *gorm.DB, m *model.CashMovement) error
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)
	SumMovements(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (CashMovementTotals, error)

	CreateClosure(ctx context.Context, tx *gorm.DB, c *model.CashClosure) error
	FindClosure(ctx context.Context, sessionID uuid.UUID) (*model.CashClosure, error)

	DB() *gorm.DB
}

type cashRepo struct{ db *gorm.DB }

func NewCashRepository(db *gorm.DB) CashRepository { return &cashRepo{db: db} }

func (r *cashRepo) DB() *gorm.DB { return r.db }

func (r *cashRepo) CreateSession(ctx context.Context, tx *gorm.DB, s *model.CashSession) error {
	return conn(ctx, r.db, tx).Omit("Closure").Create(s).Error
}

func (r *cashRepo) FindOpenSession(ctx context.Context, tx *gorm.DB) (*model.CashSession, error) {
	var s model.CashSession
	err := conn(ctx, r.db, tx).Where("status = ?", model.SessionOpen).First(&s).Error
	return &s, err
}

func (r *cashRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).Preload("Closure").Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *cashRepo) LockSession(ctx context.Context, tx *gorm.DB, id uuid.UUID, exclusive bool) (*model.CashSession, error) {
	q := conn(ctx, r.db, tx)
	if exclusive {
		q = forUpdate(q)
	} else {
		q = forShare(q)
	}
	var s model.CashSession
	err := q.Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *cashRepo) MarkClosed(ctx context.Context, tx *gorm.DB, id, closedBy uuid.UUID, closedAt time.Time) error {
	return conn(ctx, r.db, tx).Model(&model.CashSession{}).
		Where("id = ? AND status = ?", id, model.SessionOpen).
		Updates(map[string]interface{}{
			"status":    model.SessionClosed,
			"closed_by": closedBy,
			"closed_at": closedAt,
		}).Error
}

func (r *cashRepo) CreateMovement(ctx context.Context, tx *gorm.DB, m *model.CashMovement) error {
	return conn(ctx, r.db, tx).Create(m).Error
}

func (r *cashRepo) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).Where("cash_session_id = ?", sessionID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *cashRepo) SumMovements(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (CashMovementTotals, error) {
	var sums struct {
		TotalIn  decimal.Decimal
		TotalOut decimal.Decimal
	}
	err := conn(ctx, r.db, tx).Model(&model.CashMovement{}).
		Select(
			"COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS total_in, "+
				"COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS total_out",
			model.CashIn, model.CashOut,
		).
		Where("cash_session_id = ?", sessionID).
		Scan(&sums).Error
	return CashMovementTotals{In: sums.TotalIn.Round(2), Out: sums.TotalOut.Round(2)}, err
}

func (r *cashRepo) CreateClosure(ctx context.Context, tx *gorm.DB, c *model.CashClosure) error {
	return conn(ctx, r.db, tx).Create(c).Error
}

func (r *cashRepo) FindClosure(ctx context.Context, sessionID uuid.UUID) (*model.CashClosure, error) {
	var c model.CashClosure
	err := r.db.WithContext(ctx).Where("cash_session_id = ?", sessionID).First(&c).Error
	return &c, err
}
