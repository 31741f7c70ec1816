package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/infra"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "s3cret"

// fixture is a fully wired service layer over a throwaway SQLite file, seeded
// with one user, cash/card methods, the settings row, a product, a member and
// a 30-day plan.
type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB

	user    model.User
	cash    model.PaymentMethod
	card    model.PaymentMethod
	product model.Product
	member  model.Member
	plan    model.MembershipPlan

	inventory     repository.InventoryRepository
	subscriptions repository.SubscriptionRepository

	cashSvc     *cashService
	snapshotSvc SnapshotService
	saleSvc     SaleService
	paymentSvc  *paymentService
	stockSvc    StockService
	subSvc      *subscriptionService
	expenseSvc  ExpenseService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := infra.NewDatabase("sqlite://"+filepath.Join(t.TempDir(), "gym.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return seedFixture(t, db)
}

// seedFixture seeds db and wires the services over it.
func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), db: db}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	f.user = model.User{Username: "desk", FullName: "Front Desk", PasswordHash: string(hash), Role: model.RoleAdmin, IsActive: true}
	f.cash = model.PaymentMethod{Name: "Cash", IsActive: true, IsCashEquivalent: true}
	f.card = model.PaymentMethod{Name: "Card", IsActive: true}
	f.product = model.Product{SKU: "WATER", Name: "Water", Price: decimal.NewFromInt(10), IsActive: true}
	f.member = model.Member{FullName: "Alex Doe", IsActive: true}
	f.plan = model.MembershipPlan{Name: "Monthly", DurationDays: 30, Price: decimal.NewFromInt(30), IsActive: true}
	for _, row := range []interface{}{&f.user, &f.cash, &f.card, &f.product, &f.member, &f.plan} {
		require.NoError(t, db.Create(row).Error)
	}
	require.NoError(t, db.Create(&model.Setting{
		ID:            model.SettingsID,
		TaxRate:       decimal.Zero,
		ReceiptPrefix: "R-",
		NextReceiptNo: 1,
	}).Error)

	cashRepo := repository.NewCashRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	methodRepo := repository.NewPaymentMethodRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	productRepo := repository.NewProductRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	f.inventory = repository.NewInventoryRepository(db)
	f.subscriptions = repository.NewSubscriptionRepository(db)

	ledger := NewLedger(cashRepo, saleRepo, f.subscriptions, expenseRepo, methodRepo, "")
	f.cashSvc = NewCashService(cashRepo, ledger, NewPasswordVerifier(repository.NewUserRepository(db))).(*cashService)
	f.snapshotSvc = NewSnapshotService(ledger)
	f.saleSvc = NewSaleService(saleRepo, f.inventory, productRepo, memberRepo, repository.NewSettingRepository(db), cashRepo, nil)
	f.paymentSvc = NewPaymentService(saleRepo, f.inventory, cashRepo, methodRepo, ledger).(*paymentService)
	f.stockSvc = NewStockService(f.inventory, productRepo)
	f.subSvc = NewSubscriptionService(f.subscriptions, memberRepo, cashRepo, methodRepo, ledger).(*subscriptionService)
	f.expenseSvc = NewExpenseService(expenseRepo, methodRepo, cashRepo, ledger)
	return f
}

func (f *fixture) setTaxRate(rate string) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(&model.Setting{}).
		Where("id = ?", model.SettingsID).
		Update("tax_rate", decimal.RequireFromString(rate)).Error)
}

func (f *fixture) openSession(opening int64) *dto.CashSessionResponse {
	f.t.Helper()
	s, err := f.cashSvc.Open(f.ctx, dto.OpenSessionRequest{
		UserID:        f.user.ID.String(),
		Password:      testPassword,
		OpeningAmount: decimal.NewFromInt(opening),
	})
	require.NoError(f.t, err)
	return s
}

func (f *fixture) cashMovement(kind string, amount int64) error {
	_, err := f.cashSvc.AddMovement(f.ctx, f.user.ID, dto.CashMovementRequest{Type: kind, Amount: decimal.NewFromInt(amount)})
	return err
}

func (f *fixture) stockIn(qty int) {
	f.t.Helper()
	_, err := f.stockSvc.RecordMovement(f.ctx, f.user.ID, dto.InventoryMovementRequest{
		ProductID: f.product.ID.String(),
		Type:      model.MovementIn,
		Quantity:  qty,
	})
	require.NoError(f.t, err)
}

func (f *fixture) stock() int {
	f.t.Helper()
	n, err := f.inventory.SumStock(f.ctx, nil, f.product.ID)
	require.NoError(f.t, err)
	return n
}

// sell sells qty units of the fixture product at price each, with no
// discount and server-derived tax.
func (f *fixture) sell(qty int, price int64) (*dto.SaleResponse, error) {
	return f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{
			ProductID: f.product.ID.String(),
			Quantity:  qty,
			UnitPrice: decimal.NewFromInt(price),
		}},
	})
}

func (f *fixture) cashEntry(amount string) dto.PaymentEntry {
	return dto.PaymentEntry{PaymentMethodID: f.cash.ID.String(), Amount: decimal.RequireFromString(amount)}
}

func (f *fixture) cardEntry(amount string) dto.PaymentEntry {
	proof := "auth-0001"
	return dto.PaymentEntry{PaymentMethodID: f.card.ID.String(), Amount: decimal.RequireFromString(amount), Proof: &proof}
}

func (f *fixture) expectedCash() decimal.Decimal {
	f.t.Helper()
	snap, err := f.snapshotSvc.GetOpenSnapshot(f.ctx)
	require.NoError(f.t, err)
	return snap.ExpectedCash
}

// clock pins every time-aware service in the fixture to now.
func (f *fixture) clock(now time.Time) {
	fn := func() time.Time { return now }
	f.cashSvc.now = fn
	f.paymentSvc.now = fn
	f.subSvc.now = fn
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperror.KindOf(err), "unexpected error: %v", err)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
