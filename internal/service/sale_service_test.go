package service

import (
	"testing"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSale_DerivesTaxFromConfiguredRate(t *testing.T) {
	f := newFixture(t)
	f.setTaxRate("0.10")
	f.openSession(0)
	f.stockIn(5)

	sale, err := f.sell(2, 10)
	require.NoError(t, err)

	require.Len(t, sale.Items, 1)
	assertMoney(t, "2", sale.Items[0].Tax)
	assertMoney(t, "22", sale.Items[0].LineTotal)
	assertMoney(t, "20", sale.Subtotal)
	assertMoney(t, "22", sale.Total)
	assertMoney(t, "22", sale.Balance)
	assert.Equal(t, "R-1", sale.ReceiptNumber)
	assert.Equal(t, model.SaleCompleted, sale.Status)
	assert.Equal(t, 3, f.stock())
}

func TestSale_TotalIdentityWithDiscountAndExplicitTax(t *testing.T) {
	f := newFixture(t)
	f.setTaxRate("0.10")
	f.openSession(0)
	f.stockIn(10)

	sale, err := f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: f.product.ID.String(), Quantity: 3, UnitPrice: dec("4.50"), Discount: dec("1.50"), Tax: dec("0.75")},
			{ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: dec("10"), Discount: dec("2")},
		},
	})
	require.NoError(t, err)

	assertMoney(t, "23.50", sale.Subtotal)
	assertMoney(t, "3.50", sale.Discount)
	assertMoney(t, "1.55", sale.Tax) // 0.75 given + (10-2)*0.10 derived
	assert.True(t, sale.Total.Equal(sale.Subtotal.Sub(sale.Discount).Add(sale.Tax)))
	assert.Equal(t, 6, f.stock())

	var movs []model.InventoryMovement
	require.NoError(t, f.db.Where("reference_id = ?", mustID(t, sale.ID)).Find(&movs).Error)
	assert.Len(t, movs, 2)
	for _, m := range movs {
		assert.Equal(t, model.MovementOut, m.Type)
	}
}

func TestSale_ReceiptNumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	f.openSession(0)
	f.stockIn(3)

	a, err := f.sell(1, 5)
	require.NoError(t, err)
	b, err := f.sell(1, 5)
	require.NoError(t, err)
	assert.Equal(t, "R-1", a.ReceiptNumber)
	assert.Equal(t, "R-2", b.ReceiptNumber)
}

func TestSale_DuplicateReceiptNumberIsConflict(t *testing.T) {
	f := newFixture(t)
	f.openSession(0)
	f.stockIn(3)

	receipt := "MANUAL-7"
	req := dto.CreateSaleRequest{
		ReceiptNumber: &receipt,
		Items:         []dto.SaleItemRequest{{ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: dec("5")}},
	}
	_, err := f.saleSvc.CreateSale(f.ctx, f.user.ID, req)
	require.NoError(t, err)

	_, err = f.saleSvc.CreateSale(f.ctx, f.user.ID, req)
	requireKind(t, err, apperror.KindConflict)
	assert.Equal(t, 2, f.stock(), "the rejected sale must not debit stock")
}

func TestSale_InsufficientStockWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.openSession(0)
	f.stockIn(1)

	_, err := f.sell(2, 10)
	requireKind(t, err, apperror.KindConflict)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, f.product.ID.String(), appErr.Details[0].Field)

	var sales int64
	require.NoError(t, f.db.Model(&model.Sale{}).Count(&sales).Error)
	assert.Zero(t, sales)
	assert.Equal(t, 1, f.stock())
}

func TestSale_RequiresOpenSession(t *testing.T) {
	f := newFixture(t)
	f.stockIn(1)

	_, err := f.sell(1, 10)
	requireKind(t, err, apperror.KindConflict)
}

func TestSale_ReportsEveryInvalidLine(t *testing.T) {
	f := newFixture(t)
	f.openSession(0)

	_, err := f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: f.product.ID.String(), Quantity: 0, UnitPrice: dec("1")},
			{ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: decimal.Zero},
			{ProductID: "nope", Quantity: 1, UnitPrice: dec("1")},
			{ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: dec("1"), Discount: dec("-1")},
		},
	})
	requireKind(t, err, apperror.KindValidation)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Details, 4)

	_, err = f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{})
	requireKind(t, err, apperror.KindValidation)

	_, err = f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{ProductID: uuid.NewString(), Quantity: 1, UnitPrice: dec("1")}},
	})
	requireKind(t, err, apperror.KindValidation)
}

func TestSale_RejectsInactiveProductAndNonPositiveTotal(t *testing.T) {
	f := newFixture(t)
	f.openSession(0)
	f.stockIn(5)

	_, err := f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: dec("5"), Discount: dec("5")}},
	})
	requireKind(t, err, apperror.KindValidation)

	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", f.product.ID).Update("is_active", false).Error)
	_, err = f.sell(1, 5)
	requireKind(t, err, apperror.KindValidation)
	assert.Equal(t, 5, f.stock())
}

func TestSale_UnknownMemberIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.openSession(0)
	f.stockIn(1)

	member := uuid.NewString()
	_, err := f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{
		MemberID: &member,
		Items:    []dto.SaleItemRequest{{ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: dec("5")}},
	})
	requireKind(t, err, apperror.KindNotFound)
}

func TestSale_MissingSettingsIsConfigurationError(t *testing.T) {
	f := newFixture(t)
	f.openSession(0)
	f.stockIn(1)
	require.NoError(t, f.db.Where("id = ?", model.SettingsID).Delete(&model.Setting{}).Error)

	_, err := f.sell(1, 5)
	requireKind(t, err, apperror.KindConfiguration)
}

func TestSale_SubCentPriceIsRoundedBeforeLineMath(t *testing.T) {
	f := newFixture(t)
	f.openSession(0)
	f.stockIn(10)

	sale, err := f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{ProductID: f.product.ID.String(), Quantity: 3, UnitPrice: dec("1.005")}},
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	line := sale.Items[0]
	assertMoney(t, "1.01", line.UnitPrice)
	assertMoney(t, "3.03", line.LineTotal)
	assertMoney(t, "3.03", sale.Subtotal)
	assertMoney(t, "3.03", sale.Total)

	f.setTaxRate("0.10")
	sale, err = f.saleSvc.CreateSale(f.ctx, f.user.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{ProductID: f.product.ID.String(), Quantity: 3, UnitPrice: dec("1.005")}},
	})
	require.NoError(t, err)
	line = sale.Items[0]
	assertMoney(t, "0.30", line.Tax)
	want := line.UnitPrice.Mul(dec("3")).Sub(line.Discount).Add(line.Tax)
	assertMoney(t, want.String(), line.LineTotal)
	assertMoney(t, "3.33", sale.Total)
}
