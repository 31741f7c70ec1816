package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService settles and refunds sales against the open cash session.
type PaymentService interface {
	// AddPayment records one leg. A leg that leaves the sale short is rejected.
	AddPayment(ctx context.Context, userID, saleID uuid.UUID, entry dto.PaymentEntry) (*dto.SaleResponse, error)
	// AddPayments records several legs that together must cover the balance.
	AddPayments(ctx context.Context, userID, saleID uuid.UUID, entries []dto.PaymentEntry) (*dto.SaleResponse, error)
	Refund(ctx context.Context, userID, saleID uuid.UUID) (*dto.SaleResponse, error)
}

type paymentService struct {
	sales     repository.SaleRepository
	inventory repository.InventoryRepository
	cash      repository.CashRepository
	ledger    *Ledger
	validator paymentValidator
	now       func() time.Time
}

func NewPaymentService(
	sales repository.SaleRepository,
	inventory repository.InventoryRepository,
	cash repository.CashRepository,
	methods repository.PaymentMethodRepository,
	ledger *Ledger,
) PaymentService {
	return &paymentService{
		sales:     sales,
		inventory: inventory,
		cash:      cash,
		ledger:    ledger,
		validator: paymentValidator{methods: methods, cashFallback: ledger.cashFallback},
		now:       time.Now,
	}
}

// ── Payments ──────────────────────────────────────────────────────────────────

func (s *paymentService) AddPayment(ctx context.Context, userID, saleID uuid.UUID, entry dto.PaymentEntry) (*dto.SaleResponse, error) {
	return s.settle(ctx, userID, saleID, []dto.PaymentEntry{entry})
}

func (s *paymentService) AddPayments(ctx context.Context, userID, saleID uuid.UUID, entries []dto.PaymentEntry) (*dto.SaleResponse, error) {
	if len(entries) == 0 {
		return nil, apperror.Validation("at least one payment is required")
	}
	return s.settle(ctx, userID, saleID, entries)
}

// settle validates the entries, then inserts them all or none. The balance is
// re-read under the sale lock, so two concurrent settlements cannot both pass.
func (s *paymentService) settle(ctx context.Context, userID, saleID uuid.UUID, entries []dto.PaymentEntry) (*dto.SaleResponse, error) {
	session, err := requireOpenSession(ctx, s.cash, nil)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.FindByID(ctx, nil, saleID)
	if err != nil {
		return nil, notFoundOr(err, "sale %s not found", saleID)
	}
	if sale.Status == model.SaleRefunded {
		return nil, apperror.Conflict("sale %s was refunded", sale.ReceiptNumber)
	}

	paid, err := s.sales.SumPayments(ctx, nil, saleID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	if err := checkCoverage(sale.Total, paid, decimal.Zero); err != nil {
		return nil, err
	}

	resolved, err := s.validator.resolve(ctx, entries)
	if err != nil {
		return nil, err
	}
	incoming := sumPayments(resolved)
	if err := checkCoverage(sale.Total, paid, incoming); err != nil {
		return nil, err
	}

	err = repository.RunTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, repository.SaleLockKey(saleID)); err != nil {
			return err
		}
		locked, err := s.sales.LockByID(ctx, tx, saleID)
		if err != nil {
			return fmt.Errorf("lock sale: %w", err)
		}
		if locked.Status == model.SaleRefunded {
			return apperror.Conflict("sale %s was refunded", locked.ReceiptNumber)
		}
		if err := recheckSession(ctx, s.cash, tx, session.ID); err != nil {
			return err
		}
		paid, err := s.sales.SumPayments(ctx, tx, saleID)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		if err := checkCoverage(locked.Total, paid, incoming); err != nil {
			return err
		}

		paidAt := s.now().UTC()
		legs := make([]model.SalePayment, 0, len(resolved))
		for _, p := range resolved {
			legs = append(legs, model.SalePayment{
				SaleID:          saleID,
				PaymentMethodID: p.methodID,
				CashSessionID:   session.ID,
				Amount:          p.amount,
				PaidAt:          paidAt,
				Reference:       p.reference,
				Proof:           p.proof,
				CreatedBy:       userID,
			})
		}
		return s.sales.CreatePayments(ctx, tx, legs)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sale_id", saleID.String()).
		Int("legs", len(resolved)).
		Str("amount", incoming.StringFixed(2)).
		Msg("sale payment recorded")
	return s.reload(ctx, saleID)
}

// checkCoverage fails when the sale is already settled or when paid+incoming
// still falls short of total. Overpayment is accepted.
func checkCoverage(total, paid, incoming decimal.Decimal) error {
	if paid.GreaterThanOrEqual(total) {
		return apperror.Conflict("sale is already settled")
	}
	if incoming.IsZero() {
		return nil
	}
	if paid.Add(incoming).LessThan(total) {
		return apperror.Validation("payments of %s leave a balance of %s",
			incoming.StringFixed(2), total.Sub(paid).Sub(incoming).StringFixed(2))
	}
	return nil
}

// ── Refund ────────────────────────────────────────────────────────────────────
// A refund returns, per method, what the sale collected with that method. Each
// method must be able to pay its share out of the open session: cash against
// the expected drawer cash, other methods against their session totals. The
// negative legs, the status change and the restock commit together.

func (s *paymentService) Refund(ctx context.Context, userID, saleID uuid.UUID) (*dto.SaleResponse, error) {
	session, err := requireOpenSession(ctx, s.cash, nil)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.FindByID(ctx, nil, saleID)
	if err != nil {
		return nil, notFoundOr(err, "sale %s not found", saleID)
	}
	if sale.Status != model.SaleCompleted {
		return nil, apperror.Conflict("sale %s cannot be refunded from status %s", sale.ReceiptNumber, sale.Status)
	}

	productIDs := make([]uuid.UUID, 0, len(sale.Items))
	for _, it := range sale.Items {
		productIDs = append(productIDs, it.ProductID)
	}
	keys := append(stockLockKeys(productIDs),
		repository.SaleLockKey(saleID),
		repository.LedgerLockKey(session.ID),
	)

	var refunded decimal.Decimal
	err = repository.RunTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, keys...); err != nil {
			return err
		}
		locked, err := s.sales.LockByID(ctx, tx, saleID)
		if err != nil {
			return fmt.Errorf("lock sale: %w", err)
		}
		if locked.Status != model.SaleCompleted {
			return apperror.Conflict("sale %s was already refunded", locked.ReceiptNumber)
		}
		current, err := s.cash.LockSession(ctx, tx, session.ID, false)
		if err != nil {
			return fmt.Errorf("lock cash session: %w", err)
		}
		if current.Status != model.SessionOpen {
			return apperror.Conflict("cash session was closed")
		}

		collected, err := s.sales.CollectedByMethod(ctx, tx, saleID)
		if err != nil {
			return fmt.Errorf("sum collected payments: %w", err)
		}
		sort.Slice(collected, func(i, j int) bool {
			return collected[i].PaymentMethodID.String() < collected[j].PaymentMethodID.String()
		})

		snap, err := s.ledger.Snapshot(ctx, tx, current)
		if err != nil {
			return err
		}
		var details []apperror.Detail
		for _, c := range collected {
			if bal := snap.Balance(c.PaymentMethodID); bal.Sub(c.Total).IsNegative() {
				details = append(details, apperror.Detail{
					Field: methodName(snap, c.PaymentMethodID),
					Reason: fmt.Sprintf("refund of %s exceeds available %s",
						c.Total.StringFixed(2), bal.StringFixed(2)),
				})
			}
		}
		if len(details) > 0 {
			return apperror.Conflict("insufficient funds to refund sale %s", locked.ReceiptNumber).WithDetails(details...)
		}

		ref := model.RefundReference
		paidAt := s.now().UTC()
		legs := make([]model.SalePayment, 0, len(collected))
		for _, c := range collected {
			if c.Total.IsZero() {
				continue
			}
			legs = append(legs, model.SalePayment{
				SaleID:          saleID,
				PaymentMethodID: c.PaymentMethodID,
				CashSessionID:   current.ID,
				Amount:          c.Total.Neg(),
				PaidAt:          paidAt,
				Reference:       &ref,
				CreatedBy:       userID,
			})
			refunded = refunded.Add(c.Total)
		}
		if len(legs) > 0 {
			if err := s.sales.CreatePayments(ctx, tx, legs); err != nil {
				return err
			}
		}
		if err := s.sales.UpdateStatus(ctx, tx, saleID, model.SaleRefunded); err != nil {
			return err
		}

		for _, it := range sale.Items {
			refID := saleID
			mov := &model.InventoryMovement{
				ProductID:   it.ProductID,
				Type:        model.MovementIn,
				Quantity:    it.Quantity,
				Notes:       "refund " + sale.ReceiptNumber,
				ReferenceID: &refID,
				CreatedBy:   userID,
			}
			if err := s.inventory.Create(ctx, tx, mov); err != nil {
				return fmt.Errorf("record restock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sale_id", saleID.String()).
		Str("refunded", refunded.StringFixed(2)).
		Str("session_id", session.ID.String()).
		Msg("sale refunded")
	return s.reload(ctx, saleID)
}

func (s *paymentService) reload(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, nil, saleID)
	if err != nil {
		return nil, notFoundOr(err, "sale %s not found", saleID)
	}
	return saleToResponse(sale), nil
}
