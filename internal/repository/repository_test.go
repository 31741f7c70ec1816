package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"minimalgym/internal/infra"
	"minimalgym/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase("sqlite://"+filepath.Join(t.TempDir(), "repo.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestRunTxRollsBack(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := RunTx(ctx, db, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&model.Member{FullName: "Ghost", IsActive: true}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int64
	require.NoError(t, db.Model(&model.Member{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAcquireLocksIsNoopOnSQLite(t *testing.T) {
	db := newDB(t)
	err := RunTx(context.Background(), db, func(tx *gorm.DB) error {
		return AcquireLocks(tx, StockLockKey(uuid.New()), OpenSessionLockKey)
	})
	require.NoError(t, err)
}

func TestErrorClassifiers(t *testing.T) {
	db := newDB(t)
	u := model.User{Username: "desk", FullName: "Desk", PasswordHash: "x", Role: model.RoleStaff, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	dup := model.User{Username: "desk", FullName: "Other", PasswordHash: "x", Role: model.RoleStaff, IsActive: true}
	assert.True(t, IsUniqueViolation(db.Create(&dup).Error))

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))

	_, err := NewUserRepository(db).FindByID(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
}

func TestSumStocks(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	repo := NewInventoryRepository(db)

	a := model.Product{SKU: "A", Name: "A", Price: decimal.NewFromInt(1), IsActive: true}
	b := model.Product{SKU: "B", Name: "B", Price: decimal.NewFromInt(1), IsActive: true}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	user := uuid.New()
	for _, m := range []model.InventoryMovement{
		{ProductID: a.ID, Type: model.MovementIn, Quantity: 10, CreatedBy: user},
		{ProductID: a.ID, Type: model.MovementOut, Quantity: 4, CreatedBy: user},
		{ProductID: a.ID, Type: model.MovementAdjust, Quantity: 1, CreatedBy: user},
		{ProductID: a.ID, Type: model.MovementWaste, Quantity: 2, CreatedBy: user},
	} {
		m := m
		require.NoError(t, repo.Create(ctx, nil, &m))
	}

	stocks, err := repo.SumStocks(ctx, nil, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{a.ID: 5, b.ID: 0}, stocks)

	one, err := repo.SumStock(ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, one)

	movs, total, err := repo.List(ctx, InventoryMovementFilter{ProductID: &a.ID, Type: model.MovementIn})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, movs, 1)
}
