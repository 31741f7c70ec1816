package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"minimalgym/internal/config"
	"minimalgym/internal/dto"
	"minimalgym/internal/infra"
	"minimalgym/internal/middleware"
	"minimalgym/internal/model"
	"minimalgym/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "router-test-secret"

type testEnv struct {
	engine  *gin.Engine
	admin   model.User
	cash    model.PaymentMethod
	card    model.PaymentMethod
	product model.Product
	token   string // admin
	staff   string
}

func mint(t *testing.T, u model.User, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.JWTClaims{
		UserID:   u.ID.String(),
		Username: u.Username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:            "test",
		JWTSecret:      secret,
		CORSOrigins:    "*",
		DatabaseURL:    "sqlite://" + filepath.Join(t.TempDir(), "router.db"),
		CashMethodName: "Cash",
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	env := &testEnv{
		admin:   model.User{Username: "admin", FullName: "Admin", PasswordHash: string(hash), Role: model.RoleAdmin, IsActive: true},
		cash:    model.PaymentMethod{Name: "Cash", IsActive: true, IsCashEquivalent: true},
		card:    model.PaymentMethod{Name: "Card", IsActive: true},
		product: model.Product{SKU: "BAR", Name: "Protein bar", Price: decimal.NewFromInt(10), IsActive: true},
	}
	for _, row := range []interface{}{&env.admin, &env.cash, &env.card, &env.product} {
		require.NoError(t, db.Create(row).Error)
	}
	require.NoError(t, db.Create(&model.Setting{
		ID: model.SettingsID, TaxRate: decimal.RequireFromString("0.10"), ReceiptPrefix: "R-", NextReceiptNo: 1,
	}).Error)

	env.engine = router.New(t.Context(), cfg, db, nil, router.NewServices(cfg, db, nil))
	env.token = mint(t, env.admin, model.RoleAdmin)
	env.staff = mint(t, env.admin, model.RoleStaff)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e := setup(t)
	w := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "disabled", body["redis"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestV1RequiresToken(t *testing.T) {
	e := setup(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/v1/cash-sessions/open", "", nil).Code)

	w := e.do(t, http.MethodGet, "/v1/cash-sessions/open", e.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	e := setup(t)

	w := e.do(t, http.MethodPost, "/v1/cash-sessions", e.token, dto.OpenSessionRequest{
		UserID: e.admin.ID.String(), Password: "pw", OpeningAmount: decimal.NewFromInt(8),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[dto.CashSessionResponse](t, w)

	w = e.do(t, http.MethodPost, "/v1/cash-sessions", e.token, dto.OpenSessionRequest{
		UserID: e.admin.ID.String(), Password: "pw",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/v1/inventory/movements", e.token, dto.InventoryMovementRequest{
		ProductID: e.product.ID.String(), Type: model.MovementIn, Quantity: 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/v1/sales", e.staff, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{ProductID: e.product.ID.String(), Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := decode[dto.SaleResponse](t, w)
	assert.Equal(t, "R-1", sale.ReceiptNumber)
	assert.True(t, decimal.NewFromInt(22).Equal(sale.Total), sale.Total.String())

	proof := "auth-77"
	w = e.do(t, http.MethodPost, "/v1/sales/"+sale.ID+"/payments/batch", e.staff, dto.BatchPaymentRequest{
		Payments: []dto.PaymentEntry{
			{PaymentMethodID: e.cash.ID.String(), Amount: decimal.NewFromInt(15)},
			{PaymentMethodID: e.card.ID.String(), Amount: decimal.NewFromInt(7), Proof: &proof},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/v1/inventory/"+e.product.ID.String()+"/stock", e.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[dto.StockResponse](t, w).Stock)

	w = e.do(t, http.MethodPost, "/v1/sales/"+sale.ID+"/refund", e.staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/v1/sales/"+sale.ID+"/refund", e.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.SaleRefunded, decode[dto.SaleResponse](t, w).Status)

	w = e.do(t, http.MethodGet, "/v1/cash-sessions/"+session.ID+"/snapshot", e.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[dto.SnapshotResponse](t, w)
	assert.True(t, decimal.NewFromInt(8).Equal(snap.ExpectedCash), snap.ExpectedCash.String())
}

func TestErrorResponses(t *testing.T) {
	e := setup(t)

	w := e.do(t, http.MethodPost, "/v1/sales", e.token, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{ProductID: e.product.ID.String(), Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	})
	assert.Equal(t, http.StatusConflict, w.Code, "no open session")
	assert.Equal(t, "conflict", decode[map[string]any](t, w)["kind"])

	w = e.do(t, http.MethodPost, "/v1/cash-sessions/movements", e.token, map[string]any{"type": "sideways", "amount": "5"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/expenses", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = e.do(t, http.MethodGet, "/v1/sales/not-a-uuid", e.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
