package repository

import (
	"context"
	"fmt"
	"time"

	"minimalgym/internal/model"

	"gorm.io/gorm"
)

type SettingRepository interface {
	Get(ctx context.Context, tx *gorm.DB) (*model.Setting, error)
	Save(ctx context.Context, s *model.Setting) error
	// ClaimReceiptNumber atomically reads and increments the receipt counter,
	// returning prefix + the value held before the increment.
	ClaimReceiptNumber(ctx context.Context, tx *gorm.DB) (string, error)
}

type settingRepo struct{ db *gorm.DB }

func NewSettingRepository(db *gorm.DB) SettingRepository { return &settingRepo{db: db} }

func (r *settingRepo) Get(ctx context.Context, tx *gorm.DB) (*model.Setting, error) {
	var s model.Setting
	err := conn(ctx, r.db, tx).Where("id = ?", model.SettingsID).First(&s).Error
	return &s, err
}

func (r *settingRepo) Save(ctx context.Context, s *model.Setting) error {
	s.ID = model.SettingsID
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *settingRepo) ClaimReceiptNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	// Single UPDATE ... RETURNING: the row lock taken by the update makes the
	// read and the increment one step, so no two callers see the same value.
	var claimed struct {
		ReceiptPrefix string
		Claimed       int64
	}
	res := conn(ctx, r.db, tx).Raw(
		`UPDATE settings SET next_receipt_no = next_receipt_no + 1, updated_at = ?
		 WHERE id = ?
		 RETURNING receipt_prefix, next_receipt_no - 1 AS claimed`,
		time.Now().UTC(), model.SettingsID,
	).Scan(&claimed)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return fmt.Sprintf("%s%d", claimed.ReceiptPrefix, claimed.Claimed), nil
}
