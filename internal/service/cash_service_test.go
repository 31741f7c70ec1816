package service

import (
	"errors"
	"testing"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCash_OpenRequiresValidCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.cashSvc.Open(f.ctx, dto.OpenSessionRequest{UserID: f.user.ID.String(), Password: "wrong"})
	requireKind(t, err, apperror.KindValidation)

	_, err = f.cashSvc.Open(f.ctx, dto.OpenSessionRequest{UserID: uuid.NewString(), Password: testPassword})
	requireKind(t, err, apperror.KindValidation)

	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", f.user.ID).Update("is_locked", true).Error)
	_, err = f.cashSvc.Open(f.ctx, dto.OpenSessionRequest{UserID: f.user.ID.String(), Password: testPassword})
	requireKind(t, err, apperror.KindValidation)
}

func TestCash_SingleOpenSession(t *testing.T) {
	f := newFixture(t)
	first := f.openSession(50)
	assert.Equal(t, model.SessionOpen, first.Status)

	_, err := f.cashSvc.Open(f.ctx, dto.OpenSessionRequest{
		UserID: f.user.ID.String(), Password: testPassword, OpeningAmount: decimal.NewFromInt(10),
	})
	requireKind(t, err, apperror.KindConflict)

	var open int64
	require.NoError(t, f.db.Model(&model.CashSession{}).Where("status = ?", model.SessionOpen).Count(&open).Error)
	assert.EqualValues(t, 1, open)
}

func TestCash_OpenRejectsNegativeOpeningAmount(t *testing.T) {
	f := newFixture(t)
	_, err := f.cashSvc.Open(f.ctx, dto.OpenSessionRequest{
		UserID: f.user.ID.String(), Password: testPassword, OpeningAmount: decimal.NewFromInt(-1),
	})
	requireKind(t, err, apperror.KindValidation)
}

func TestCash_OutMovementCannotOverdrawDrawer(t *testing.T) {
	f := newFixture(t)
	f.openSession(100)

	require.NoError(t, f.cashMovement(model.CashOut, 30))
	assertMoney(t, "70", f.expectedCash())

	err := f.cashMovement(model.CashOut, 80)
	requireKind(t, err, apperror.KindConflict)
	assertMoney(t, "70", f.expectedCash())

	require.NoError(t, f.cashMovement(model.CashIn, 10))
	require.NoError(t, f.cashMovement(model.CashOut, 80))
	assertMoney(t, "0", f.expectedCash())
}

func TestCash_MovementValidation(t *testing.T) {
	f := newFixture(t)

	err := f.cashMovement(model.CashIn, 10)
	requireKind(t, err, apperror.KindConflict)

	f.openSession(0)
	requireKind(t, f.cashMovement("sideways", 10), apperror.KindValidation)
	requireKind(t, f.cashMovement(model.CashIn, 0), apperror.KindValidation)
}

func TestCash_CloseRecordsDeclaredTotals(t *testing.T) {
	f := newFixture(t)
	session := f.openSession(100)
	require.NoError(t, f.cashMovement(model.CashIn, 20))

	notes := "short by five"
	closure, err := f.cashSvc.Close(f.ctx, f.user.ID, mustID(t, session.ID), dto.CloseSessionRequest{
		CashTotal:   dec("120"),
		CardTotal:   dec("40"),
		CountedCash: dec("115"),
		Notes:       &notes,
	})
	require.NoError(t, err)
	assertMoney(t, "120", closure.CashTotal)
	assertMoney(t, "40", closure.CardTotal)
	assertMoney(t, "-5", closure.Difference)
	assertMoney(t, "120", closure.ExpectedCash)

	got, err := f.cashSvc.GetSession(f.ctx, mustID(t, session.ID))
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, got.Status)
	require.NotNil(t, got.Closure)
	require.NotNil(t, got.ClosedBy)
	assert.Equal(t, f.user.ID.String(), *got.ClosedBy)

	_, err = f.cashSvc.GetOpenSession(f.ctx)
	assert.True(t, errors.Is(err, ErrNoOpenSession))

	// the ledger is frozen once the session is closed
	requireKind(t, f.cashMovement(model.CashIn, 5), apperror.KindConflict)
}

func TestCash_CloseOnlyTheOpenSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.cashSvc.Close(f.ctx, f.user.ID, uuid.New(), dto.CloseSessionRequest{})
	requireKind(t, err, apperror.KindNotFound)

	session := f.openSession(0)
	_, err = f.cashSvc.Close(f.ctx, f.user.ID, uuid.New(), dto.CloseSessionRequest{})
	requireKind(t, err, apperror.KindNotFound)

	_, err = f.cashSvc.Close(f.ctx, f.user.ID, mustID(t, session.ID), dto.CloseSessionRequest{CountedCash: dec("-1")})
	requireKind(t, err, apperror.KindValidation)

	_, err = f.cashSvc.Close(f.ctx, f.user.ID, mustID(t, session.ID), dto.CloseSessionRequest{})
	require.NoError(t, err)

	_, err = f.cashSvc.Close(f.ctx, f.user.ID, mustID(t, session.ID), dto.CloseSessionRequest{})
	requireKind(t, err, apperror.KindNotFound)

	// a new session can be opened after the previous one closed
	f.openSession(0)
}
