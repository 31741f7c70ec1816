package service

import (
	"testing"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) movement(kind string, qty int) error {
	_, err := f.stockSvc.RecordMovement(f.ctx, f.user.ID, dto.InventoryMovementRequest{
		ProductID: f.product.ID.String(),
		Type:      kind,
		Quantity:  qty,
	})
	return err
}

func TestStock_DerivedFromMovements(t *testing.T) {
	f := newFixture(t)

	stock, err := f.stockSvc.GetStock(f.ctx, f.product.ID)
	require.NoError(t, err)
	assert.Zero(t, stock.Stock)

	require.NoError(t, f.movement(model.MovementIn, 10))
	require.NoError(t, f.movement(model.MovementAdjust, 2))
	require.NoError(t, f.movement(model.MovementOut, 3))
	require.NoError(t, f.movement(model.MovementWaste, 4))

	stock, err = f.stockSvc.GetStock(f.ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stock.Stock)
}

func TestStock_ConsumingMovementsNeverGoNegative(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.movement(model.MovementIn, 3))

	err := f.movement(model.MovementWaste, 4)
	requireKind(t, err, apperror.KindConflict)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, f.product.ID.String(), appErr.Details[0].Field)

	requireKind(t, f.movement(model.MovementOut, 4), apperror.KindConflict)
	require.NoError(t, f.movement(model.MovementWaste, 3))
	assert.Zero(t, f.stock())
}

func TestStock_MovementValidation(t *testing.T) {
	f := newFixture(t)

	requireKind(t, f.movement("theft", 1), apperror.KindValidation)
	requireKind(t, f.movement(model.MovementIn, 0), apperror.KindValidation)
	requireKind(t, f.movement(model.MovementIn, -2), apperror.KindValidation)

	cost := dec("-1")
	_, err := f.stockSvc.RecordMovement(f.ctx, f.user.ID, dto.InventoryMovementRequest{
		ProductID: f.product.ID.String(), Type: model.MovementIn, Quantity: 1, UnitCost: &cost,
	})
	requireKind(t, err, apperror.KindValidation)

	_, err = f.stockSvc.RecordMovement(f.ctx, f.user.ID, dto.InventoryMovementRequest{
		ProductID: uuid.NewString(), Type: model.MovementIn, Quantity: 1,
	})
	requireKind(t, err, apperror.KindNotFound)

	_, err = f.stockSvc.GetStock(f.ctx, uuid.New())
	requireKind(t, err, apperror.KindNotFound)
}

func TestStock_ListMovements(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.movement(model.MovementIn, 10))
	require.NoError(t, f.movement(model.MovementIn, 5))
	require.NoError(t, f.movement(model.MovementWaste, 1))

	all, err := f.stockSvc.ListMovements(f.ctx, f.product.ID, dto.InventoryMovementFilter{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	assert.Len(t, all.Data, 3)

	ins, err := f.stockSvc.ListMovements(f.ctx, f.product.ID, dto.InventoryMovementFilter{Type: model.MovementIn, Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, ins.Total)
	assert.Len(t, ins.Data, 1)
}
