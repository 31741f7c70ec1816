package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"minimalgym/internal/model"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubSales serves FindByID from a map; other methods are not used here.
type stubSales struct {
	repository.SaleRepository
	sales map[uuid.UUID]*model.Sale
}

func (s *stubSales) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	sale, ok := s.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sale, nil
}

func receiptPayload(t *testing.T, saleID string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(ReceiptJobPayload{SaleID: saleID, Email: "member@example.com"})
	require.NoError(t, err)
	return raw
}

func TestReceiptWorker_WritesPDF(t *testing.T) {
	sale := &model.Sale{
		ID:            uuid.New(),
		ReceiptNumber: "R-7",
		Subtotal:      decimal.NewFromInt(20),
		Tax:           decimal.NewFromInt(2),
		Total:         decimal.NewFromInt(22),
		Status:        model.SaleCompleted,
		CreatedAt:     time.Now(),
	}
	dir := t.TempDir()
	w := NewReceiptWorker(&stubSales{sales: map[uuid.UUID]*model.Sale{sale.ID: sale}}, nil, "Minimal Gym", dir)

	require.NoError(t, w.Process(context.Background(), receiptPayload(t, sale.ID.String())))
	_, err := os.Stat(filepath.Join(dir, "receipt_R-7.pdf"))
	assert.NoError(t, err)
}

func TestReceiptWorker_PermanentFailures(t *testing.T) {
	w := NewReceiptWorker(&stubSales{}, nil, "Minimal Gym", t.TempDir())
	ctx := context.Background()

	assert.ErrorIs(t, w.Process(ctx, json.RawMessage(`{`)), ErrPermanent)
	assert.ErrorIs(t, w.Process(ctx, receiptPayload(t, "nope")), ErrPermanent)
	assert.ErrorIs(t, w.Process(ctx, receiptPayload(t, uuid.NewString())), ErrPermanent)
}

type countingExpirer struct{ runs atomic.Int32 }

func (c *countingExpirer) ExpireLapsed(context.Context) (int64, error) {
	c.runs.Add(1)
	return 0, nil
}

func TestExpiryCron_RunsImmediatelyAndOnTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := &countingExpirer{}
	StartExpiryCron(ctx, e, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return e.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)
	stopped := e.runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, e.runs.Load())
}
