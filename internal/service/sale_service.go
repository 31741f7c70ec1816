package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"
	"minimalgym/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	CreateSale(ctx context.Context, userID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
}

type saleService struct {
	sales      repository.SaleRepository
	inventory  repository.InventoryRepository
	products   repository.ProductRepository
	members    repository.MemberRepository
	settings   repository.SettingRepository
	cash       repository.CashRepository
	dispatcher *worker.Dispatcher
}

// NewSaleService builds the sale orchestrator. dispatcher may be nil, in which
// case no receipt jobs are queued.
func NewSaleService(
	sales repository.SaleRepository,
	inventory repository.InventoryRepository,
	products repository.ProductRepository,
	members repository.MemberRepository,
	settings repository.SettingRepository,
	cash repository.CashRepository,
	dispatcher *worker.Dispatcher,
) SaleService {
	return &saleService{
		sales:      sales,
		inventory:  inventory,
		products:   products,
		members:    members,
		settings:   settings,
		cash:       cash,
		dispatcher: dispatcher,
	}
}

// ── CreateSale ────────────────────────────────────────────────────────────────
// Pre-flight (outside the transaction):
//   1. an open session, the member and every product exist
//   2. each line is priced and taxed, aggregates are non-negative, total > 0
//   3. stock is checked per product so the caller gets a per-item report
// Transaction:
//   4. stock locks, session re-check, stock re-check under the locks
//   5. receipt number claimed, header + items inserted, one out movement per item
// After commit:
//   6. receipt job queued when the member has an email

type pricedLine struct {
	productID uuid.UUID
	quantity  int
	unitPrice decimal.Decimal
	discount  decimal.Decimal
	tax       decimal.Decimal
	lineTotal decimal.Decimal
}

func (s *saleService) CreateSale(ctx context.Context, userID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	session, err := requireOpenSession(ctx, s.cash, nil)
	if err != nil {
		return nil, err
	}

	var member *model.Member
	if req.MemberID != nil && *req.MemberID != "" {
		memberID, err := parseID("member_id", *req.MemberID)
		if err != nil {
			return nil, err
		}
		if member, err = s.members.FindByID(ctx, memberID); err != nil {
			return nil, notFoundOr(err, "member %s not found", memberID)
		}
	}

	if len(req.Items) == 0 {
		return nil, apperror.Validation("a sale needs at least one item")
	}

	settings, err := s.settings.Get(ctx, nil)
	if repository.IsNotFound(err) {
		return nil, apperror.Configuration("settings are not initialised")
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	lines, err := s.priceLines(ctx, req.Items, settings.TaxRate)
	if err != nil {
		return nil, err
	}

	sale := &model.Sale{
		CashSessionID: session.ID,
		Status:        model.SaleCompleted,
		CreatedBy:     userID,
	}
	if member != nil {
		sale.MemberID = &member.ID
	}
	requested := make(map[uuid.UUID]int)
	for _, l := range lines {
		sale.Subtotal = sale.Subtotal.Add(l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity))))
		sale.Discount = sale.Discount.Add(l.discount)
		sale.Tax = sale.Tax.Add(l.tax)
		sale.Items = append(sale.Items, model.SaleItem{
			ProductID: l.productID,
			Quantity:  l.quantity,
			UnitPrice: l.unitPrice,
			Discount:  l.discount,
			Tax:       l.tax,
			LineTotal: l.lineTotal,
		})
		requested[l.productID] += l.quantity
	}
	sale.Subtotal = sale.Subtotal.Round(2)
	sale.Total = sale.Subtotal.Sub(sale.Discount).Add(sale.Tax)
	if !sale.Total.IsPositive() {
		return nil, apperror.Validation("sale total must be greater than zero")
	}

	if err := debitCheck(ctx, nil, s.inventory, requested); err != nil {
		return nil, err
	}

	var receipt string
	if req.ReceiptNumber != nil {
		receipt = strings.TrimSpace(*req.ReceiptNumber)
		if receipt == "" {
			return nil, apperror.Validation("receipt number cannot be blank")
		}
	}

	productIDs := make([]uuid.UUID, 0, len(requested))
	for id := range requested {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i].String() < productIDs[j].String() })

	err = repository.RunTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, stockLockKeys(productIDs)...); err != nil {
			return err
		}
		if err := recheckSession(ctx, s.cash, tx, session.ID); err != nil {
			return err
		}
		if err := debitCheck(ctx, tx, s.inventory, requested); err != nil {
			return err
		}

		sale.ReceiptNumber = receipt
		if sale.ReceiptNumber == "" {
			claimed, err := s.settings.ClaimReceiptNumber(ctx, tx)
			if repository.IsNotFound(err) {
				return apperror.Configuration("settings are not initialised")
			}
			if err != nil {
				return fmt.Errorf("claim receipt number: %w", err)
			}
			sale.ReceiptNumber = claimed
		}
		if err := s.sales.Create(ctx, tx, sale); err != nil {
			return err
		}

		for _, item := range sale.Items {
			ref := sale.ID
			mov := &model.InventoryMovement{
				ProductID:   item.ProductID,
				Type:        model.MovementOut,
				Quantity:    item.Quantity,
				Notes:       "sale " + sale.ReceiptNumber,
				ReferenceID: &ref,
				CreatedBy:   userID,
			}
			if err := s.inventory.Create(ctx, tx, mov); err != nil {
				return fmt.Errorf("record stock debit: %w", err)
			}
		}
		return nil
	})
	if repository.IsUniqueViolation(err) {
		return nil, apperror.Conflict("receipt number %q is already used", sale.ReceiptNumber)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sale_id", sale.ID.String()).
		Str("receipt", sale.ReceiptNumber).
		Str("total", sale.Total.StringFixed(2)).
		Int("items", len(sale.Items)).
		Msg("sale created")

	if s.dispatcher != nil && member != nil && member.Email != nil && *member.Email != "" {
		job := worker.ReceiptJobPayload{SaleID: sale.ID.String(), Email: *member.Email}
		if err := s.dispatcher.EnqueueReceipt(ctx, job); err != nil {
			log.Warn().Err(err).Str("sale_id", sale.ID.String()).Msg("failed to queue receipt")
		}
	}

	return s.GetSale(ctx, sale.ID)
}

// priceLines validates every line and derives its tax and total. Failures are
// reported per line.
func (s *saleService) priceLines(ctx context.Context, items []dto.SaleItemRequest, taxRate decimal.Decimal) ([]pricedLine, error) {
	var details []apperror.Detail
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		id, err := uuid.Parse(it.ProductID)
		if err != nil {
			details = append(details, apperror.Detail{Field: field, Reason: "invalid product id"})
			continue
		}
		ids[i] = id
		switch {
		case it.Quantity <= 0:
			details = append(details, apperror.Detail{Field: field, Reason: "quantity must be greater than zero"})
		case !it.UnitPrice.IsPositive():
			details = append(details, apperror.Detail{Field: field, Reason: "unit price must be greater than zero"})
		case it.Discount.IsNegative():
			details = append(details, apperror.Detail{Field: field, Reason: "discount cannot be negative"})
		case it.Tax.IsNegative():
			details = append(details, apperror.Detail{Field: field, Reason: "tax cannot be negative"})
		}
	}
	if len(details) > 0 {
		return nil, apperror.Validation("invalid sale items").WithDetails(details...)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	lines := make([]pricedLine, 0, len(items))
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		p, ok := products[ids[i]]
		if !ok {
			details = append(details, apperror.Detail{Field: field, Reason: "product not found"})
			continue
		}
		if !p.IsActive {
			details = append(details, apperror.Detail{Field: field, Reason: fmt.Sprintf("product %s is inactive", p.Name)})
			continue
		}

		price := it.UnitPrice.Round(2)
		gross := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		discount := it.Discount.Round(2)
		tax := it.Tax.Round(2)
		if !tax.IsPositive() {
			tax = decimal.Zero
			if taxRate.IsPositive() {
				tax = decimal.Max(decimal.Zero, gross.Sub(discount)).Mul(taxRate).Round(2)
			}
		}
		lines = append(lines, pricedLine{
			productID: p.ID,
			quantity:  it.Quantity,
			unitPrice: price,
			discount:  discount,
			tax:       tax,
			lineTotal: gross.Sub(discount).Add(tax).Round(2),
		})
	}
	if len(details) > 0 {
		return nil, apperror.Validation("invalid sale items").WithDetails(details...)
	}
	return lines, nil
}

// ── GetSale ───────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "sale %s not found", id)
	}
	return saleToResponse(sale), nil
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:            s.ID.String(),
		ReceiptNumber: s.ReceiptNumber,
		MemberID:      idPtrString(s.MemberID),
		CashSessionID: s.CashSessionID.String(),
		Subtotal:      s.Subtotal,
		Discount:      s.Discount,
		Tax:           s.Tax,
		Total:         s.Total,
		Status:        s.Status,
		Items:         make([]dto.SaleItemResponse, 0, len(s.Items)),
		Payments:      make([]dto.SalePaymentResponse, 0, len(s.Payments)),
		CreatedAt:     formatTime(s.CreatedAt),
	}
	for _, it := range s.Items {
		item := dto.SaleItemResponse{
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
			Tax:       it.Tax,
			LineTotal: it.LineTotal,
		}
		if it.Product != nil {
			item.Product = it.Product.Name
		}
		resp.Items = append(resp.Items, item)
	}
	paid := decimal.Zero
	for _, p := range s.Payments {
		paid = paid.Add(p.Amount)
		pay := dto.SalePaymentResponse{
			ID:              p.ID.String(),
			PaymentMethodID: p.PaymentMethodID.String(),
			Amount:          p.Amount,
			PaidAt:          formatTime(p.PaidAt),
			Reference:       p.Reference,
		}
		if p.PaymentMethod != nil {
			pay.Method = p.PaymentMethod.Name
		}
		resp.Payments = append(resp.Payments, pay)
	}
	resp.Paid = paid
	resp.Balance = s.Total.Sub(paid)
	return resp
}
