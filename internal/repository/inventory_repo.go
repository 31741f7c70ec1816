package repository

import (
	"context"

	"minimalgym/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryMovementFilter defines filters for listing stock movements.
type InventoryMovementFilter struct {
	ProductID *uuid.UUID
	Type      string
	Page      int
	Limit     int
}

// stockExpr is the signed quantity of a movement row.
const stockExpr = "COALESCE(SUM(CASE WHEN type IN ('in', 'adjust') THEN quantity ELSE -quantity END), 0)"

// InventoryRepository is the append-only inventory ledger. There is no update
// or delete: corrections are new movements.
type InventoryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, m *model.InventoryMovement) error
	// SumStock derives the current stock of a product from its movements.
	SumStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error)
	// SumStocks is SumStock for several products at once; products without
	// movements map to 0.
	SumStocks(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (map[uuid.UUID]int, error)
	List(ctx context.Context, filter InventoryMovementFilter) ([]model.InventoryMovement, int64, error)
	DB() *gorm.DB
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) DB() *gorm.DB { return r.db }

func (r *inventoryRepo) Create(ctx context.Context, tx *gorm.DB, m *model.InventoryMovement) error {
	return conn(ctx, r.db, tx).Omit("Product").Create(m).Error
}

func (r *inventoryRepo) SumStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	var stock int64
	err := conn(ctx, r.db, tx).Model(&model.InventoryMovement{}).
		Select(stockExpr).
		Where("product_id = ?", productID).
		Scan(&stock).Error
	return int(stock), err
}

func (r *inventoryRepo) SumStocks(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ProductID uuid.UUID
		Stock     int64
	}
	err := conn(ctx, r.db, tx).Model(&model.InventoryMovement{}).
		Select("product_id, "+stockExpr+" AS stock").
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, id := range productIDs {
		out[id] = 0
	}
	for _, row := range rows {
		out[row.ProductID] = int(row.Stock)
	}
	return out, nil
}

func (r *inventoryRepo) List(ctx context.Context, filter InventoryMovementFilter) ([]model.InventoryMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryMovement{})
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movements []model.InventoryMovement
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, total, err
}
