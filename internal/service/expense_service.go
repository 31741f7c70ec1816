package service

import (
	"context"
	"fmt"
	"strings"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ExpenseService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateExpenseRequest) (*dto.ExpenseResponse, error)
}

type expenseService struct {
	repo    repository.ExpenseRepository
	methods repository.PaymentMethodRepository
	cash    repository.CashRepository
	ledger  *Ledger
}

func NewExpenseService(
	repo repository.ExpenseRepository,
	methods repository.PaymentMethodRepository,
	cash repository.CashRepository,
	ledger *Ledger,
) ExpenseService {
	return &expenseService{repo: repo, methods: methods, cash: cash, ledger: ledger}
}

// Create records an expense. Cash expenses come out of the open drawer and
// are rejected when the drawer cannot cover them.
func (s *expenseService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateExpenseRequest) (*dto.ExpenseResponse, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, apperror.Validation("description is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	methodID, err := parseID("payment_method_id", req.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	active, err := s.methods.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	var method *model.PaymentMethod
	for i := range active {
		if active[i].ID == methodID {
			method = &active[i]
		}
	}
	if method == nil {
		return nil, apperror.Validation("payment method not found or inactive")
	}
	cash, err := cashTender(active, s.ledger.cashFallback)
	if err != nil {
		return nil, err
	}

	exp := &model.Expense{
		Description:     desc,
		Amount:          req.Amount.Round(2),
		PaymentMethodID: method.ID,
		CreatedBy:       userID,
	}

	if method.ID != cash.ID {
		if err := s.repo.Create(ctx, nil, exp); err != nil {
			return nil, err
		}
		return expenseToResponse(exp), nil
	}

	session, err := requireOpenSession(ctx, s.cash, nil)
	if err != nil {
		return nil, err
	}
	exp.CashSessionID = &session.ID
	err = repository.RunTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, repository.LedgerLockKey(session.ID)); err != nil {
			return err
		}
		locked, err := s.cash.LockSession(ctx, tx, session.ID, false)
		if err != nil {
			return fmt.Errorf("lock cash session: %w", err)
		}
		if locked.Status != model.SessionOpen {
			return apperror.Conflict("cash session was closed")
		}
		snap, err := s.ledger.Snapshot(ctx, tx, locked)
		if err != nil {
			return err
		}
		if snap.ExpectedCash.Sub(exp.Amount).IsNegative() {
			return apperror.Conflict("expense of %s exceeds expected cash %s",
				exp.Amount.StringFixed(2), snap.ExpectedCash.StringFixed(2))
		}
		return s.repo.Create(ctx, tx, exp)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("expense_id", exp.ID.String()).
		Str("session_id", session.ID.String()).
		Str("amount", exp.Amount.StringFixed(2)).
		Msg("cash expense recorded")
	return expenseToResponse(exp), nil
}

func expenseToResponse(e *model.Expense) *dto.ExpenseResponse {
	return &dto.ExpenseResponse{
		ID:              e.ID.String(),
		Description:     e.Description,
		Amount:          e.Amount,
		PaymentMethodID: e.PaymentMethodID.String(),
		CashSessionID:   idPtrString(e.CashSessionID),
		CreatedAt:       formatTime(e.CreatedAt),
	}
}
