package service

import (
	"context"
	"fmt"
	"sort"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockService derives stock from the inventory ledger and appends to it.
type StockService interface {
	GetStock(ctx context.Context, productID uuid.UUID) (*dto.StockResponse, error)
	RecordMovement(ctx context.Context, userID uuid.UUID, req dto.InventoryMovementRequest) (*dto.InventoryMovementResponse, error)
	ListMovements(ctx context.Context, productID uuid.UUID, filter dto.InventoryMovementFilter) (*dto.InventoryMovementListResponse, error)
}

type stockService struct {
	inventory repository.InventoryRepository
	products  repository.ProductRepository
}

func NewStockService(inventory repository.InventoryRepository, products repository.ProductRepository) StockService {
	return &stockService{inventory: inventory, products: products}
}

// ── GetStock ──────────────────────────────────────────────────────────────────

func (s *stockService) GetStock(ctx context.Context, productID uuid.UUID) (*dto.StockResponse, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product %s not found", productID)
	}
	stock, err := s.inventory.SumStock(ctx, nil, productID)
	if err != nil {
		return nil, fmt.Errorf("sum stock: %w", err)
	}
	return &dto.StockResponse{ProductID: productID.String(), Stock: stock}, nil
}

// ── RecordMovement ────────────────────────────────────────────────────────────
// Manual receipts, adjustments and waste. Consuming types are checked against
// the ledger under the product's lock, in the same transaction as the insert.

func (s *stockService) RecordMovement(ctx context.Context, userID uuid.UUID, req dto.InventoryMovementRequest) (*dto.InventoryMovementResponse, error) {
	productID, err := parseID("product_id", req.ProductID)
	if err != nil {
		return nil, err
	}
	if !model.ValidMovementType(req.Type) {
		return nil, apperror.Validation("unknown movement type %q", req.Type)
	}
	if req.Quantity <= 0 {
		return nil, apperror.Validation("quantity must be greater than zero")
	}
	if req.UnitCost != nil && req.UnitCost.IsNegative() {
		return nil, apperror.Validation("unit cost cannot be negative")
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product %s not found", productID)
	}

	mov := &model.InventoryMovement{
		ProductID: productID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		UnitCost:  req.UnitCost,
		Notes:     req.Notes,
		CreatedBy: userID,
	}
	err = repository.RunTx(ctx, s.inventory.DB(), func(tx *gorm.DB) error {
		if model.IsConsuming(req.Type) {
			if err := repository.AcquireLocks(tx, repository.StockLockKey(productID)); err != nil {
				return err
			}
			if err := debitCheck(ctx, tx, s.inventory, map[uuid.UUID]int{productID: req.Quantity}); err != nil {
				return err
			}
		}
		return s.inventory.Create(ctx, tx, mov)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("product_id", productID.String()).
		Str("type", req.Type).
		Int("quantity", req.Quantity).
		Msg("inventory movement recorded")
	resp := movementToResponse(mov)
	return &resp, nil
}

// ── ListMovements ─────────────────────────────────────────────────────────────

func (s *stockService) ListMovements(ctx context.Context, productID uuid.UUID, filter dto.InventoryMovementFilter) (*dto.InventoryMovementListResponse, error) {
	movs, total, err := s.inventory.List(ctx, repository.InventoryMovementFilter{
		ProductID: &productID,
		Type:      filter.Type,
		Page:      filter.Page,
		Limit:     filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	resp := &dto.InventoryMovementListResponse{Total: total, Page: filter.Page, Limit: filter.Limit}
	resp.Data = make([]dto.InventoryMovementResponse, 0, len(movs))
	for i := range movs {
		resp.Data = append(resp.Data, movementToResponse(&movs[i]))
	}
	return resp, nil
}

// ── Ledger helpers shared with sales and refunds ─────────────────────────────

// debitCheck fails with a Conflict naming every product whose derived stock
// is below the requested quantity. Callers hold the products' stock locks.
func debitCheck(ctx context.Context, tx *gorm.DB, inventory repository.InventoryRepository, requested map[uuid.UUID]int) error {
	ids := make([]uuid.UUID, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	stocks, err := inventory.SumStocks(ctx, tx, ids)
	if err != nil {
		return fmt.Errorf("sum stock: %w", err)
	}
	var details []apperror.Detail
	for _, id := range ids {
		if stocks[id]-requested[id] < 0 {
			details = append(details, apperror.Detail{
				Field:  id.String(),
				Reason: fmt.Sprintf("insufficient stock: available %d, requested %d", stocks[id], requested[id]),
			})
		}
	}
	if len(details) > 0 {
		return apperror.Conflict("insufficient stock").WithDetails(details...)
	}
	return nil
}

func stockLockKeys(productIDs []uuid.UUID) []string {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, repository.StockLockKey(id))
	}
	return keys
}

func movementToResponse(m *model.InventoryMovement) dto.InventoryMovementResponse {
	return dto.InventoryMovementResponse{
		ID:          m.ID.String(),
		ProductID:   m.ProductID.String(),
		Type:        m.Type,
		Quantity:    m.Quantity,
		UnitCost:    m.UnitCost,
		Notes:       m.Notes,
		ReferenceID: idPtrString(m.ReferenceID),
		CreatedAt:   formatTime(m.CreatedAt),
	}
}
