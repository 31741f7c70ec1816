package service

import (
	"context"
	"errors"
	"fmt"
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

// CashService drives the Open → Closed lifecycle of the register.
type CashService interface {
	Open(ctx context.Context, req dto.OpenSessionRequest) (*dto.CashSessionResponse, error)
	AddMovement(ctx context.Context, userID uuid.UUID, req dto.CashMovementRequest) (*dto.CashMovementResponse, error)
	Close(ctx context.Context, userID, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.CashClosureResponse, error)
	// GetOpenSession returns ErrNoOpenSession when the drawer is closed.
	GetOpenSession(ctx context.Context) (*dto.CashSessionResponse, error)
	GetSession(ctx context.Context, id uuid.UUID) (*dto.CashSessionResponse, error)
	GetClosure(ctx context.Context, sessionID uuid.UUID) (*dto.CashClosureResponse, error)
	// RequireOpenSession fails with Conflict when no session is open.
	RequireOpenSession(ctx context.Context) (*model.CashSession, error)
}

type cashService struct {
	repo     repository.CashRepository
	ledger   *Ledger
	identity IdentityVerifier
	now      func() time.Time
}

func NewCashService(repo repository.CashRepository, ledger *Ledger, identity IdentityVerifier) CashService {
	return &cashService{
		repo:     repo,
		ledger:   ledger,
		identity: identity,
		now:      time.Now,
	}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *cashService) Open(ctx context.Context, req dto.OpenSessionRequest) (*dto.CashSessionResponse, error) {
	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, err
	}
	if req.OpeningAmount.IsNegative() {
		return nil, apperror.Validation("opening amount cannot be negative")
	}
	if err := s.identity.Verify(ctx, userID, req.Password); err != nil {
		return nil, err
	}

	session := &model.CashSession{
		OpenedBy:      userID,
		OpenedAt:      s.now().UTC(),
		OpeningAmount: req.OpeningAmount.Round(2),
		Status:        model.SessionOpen,
	}
	err = repository.RunTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, repository.OpenSessionLockKey); err != nil {
			return err
		}
		if _, err := openSession(ctx, s.repo, tx); err == nil {
			return apperror.Conflict("a cash session is already open")
		} else if !errors.Is(err, ErrNoOpenSession) {
			return err
		}
		return s.repo.CreateSession(ctx, tx, session)
	})
	if repository.IsUniqueViolation(err) {
		return nil, apperror.Conflict("a cash session is already open")
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("opened_by", userID.String()).
		Str("opening_amount", session.OpeningAmount.StringFixed(2)).
		Msg("cash session opened")
	return sessionToResponse(session), nil
}

// ── AddMovement ───────────────────────────────────────────────────────────────
// Manual drawer in/out. An out is rejected when it would take the expected
// cash below zero; the check and the insert share one transaction and the
// session's ledger lock.

func (s *cashService) AddMovement(ctx context.Context, userID uuid.UUID, req dto.CashMovementRequest) (*dto.CashMovementResponse, error) {
	if req.Type != model.CashIn && req.Type != model.CashOut {
		return nil, apperror.Validation("movement type must be %q or %q", model.CashIn, model.CashOut)
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	session, err := requireOpenSession(ctx, s.repo, nil)
	if err != nil {
		return nil, err
	}

	mov := &model.CashMovement{
		CashSessionID: session.ID,
		Type:          req.Type,
		Amount:        req.Amount.Round(2),
		Notes:         req.Notes,
		CreatedBy:     userID,
	}
	err = repository.RunTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, repository.LedgerLockKey(session.ID)); err != nil {
			return err
		}
		locked, err := s.repo.LockSession(ctx, tx, session.ID, false)
		if err != nil {
			return fmt.Errorf("lock cash session: %w", err)
		}
		if locked.Status != model.SessionOpen {
			return apperror.Conflict("cash session was closed")
		}
		if mov.Type == model.CashOut {
			snap, err := s.ledger.Snapshot(ctx, tx, locked)
			if err != nil {
				return err
			}
			if snap.ExpectedCash.Sub(mov.Amount).IsNegative() {
				return apperror.Conflict("cash out of %s exceeds expected cash %s",
					mov.Amount.StringFixed(2), snap.ExpectedCash.StringFixed(2))
			}
		}
		return s.repo.CreateMovement(ctx, tx, mov)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("type", mov.Type).
		Str("amount", mov.Amount.StringFixed(2)).
		Msg("cash movement recorded")
	return &dto.CashMovementResponse{
		ID:            mov.ID.String(),
		CashSessionID: mov.CashSessionID.String(),
		Type:          mov.Type,
		Amount:        mov.Amount,
		Notes:         mov.Notes,
		CreatedAt:     formatTime(mov.CreatedAt),
	}, nil
}

// ── Close ─────────────────────────────────────────────────────────────────────
// The closure records the teller's declared totals as given. Difference is
// countedCash − cashTotal; ExpectedCash is stored beside it for reference and
// is not reconciled against the declaration.

func (s *cashService) Close(ctx context.Context, userID, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.CashClosureResponse, error) {
	declared := []struct {
		field string
		value decimal.Decimal
	}{
		{"cash_total", req.CashTotal},
		{"card_total", req.CardTotal},
		{"transfer_total", req.TransferTotal},
		{"other_total", req.OtherTotal},
		{"counted_cash", req.CountedCash},
	}
	for _, d := range declared {
		if d.value.IsNegative() {
			return nil, apperror.Validation("%s cannot be negative", d.field)
		}
	}

	var closure *model.CashClosure
	err := repository.RunTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, repository.LedgerLockKey(sessionID)); err != nil {
			return err
		}
		current, err := openSession(ctx, s.repo, tx)
		if errors.Is(err, ErrNoOpenSession) || (err == nil && current.ID != sessionID) {
			return apperror.NotFound("cash session %s is not the open session", sessionID)
		}
		if err != nil {
			return err
		}
		session, err := s.repo.LockSession(ctx, tx, sessionID, true)
		if err != nil {
			return fmt.Errorf("lock cash session: %w", err)
		}
		if session.Status != model.SessionOpen {
			return apperror.NotFound("cash session %s is not the open session", sessionID)
		}

		snap, err := s.ledger.Snapshot(ctx, tx, session)
		if err != nil {
			return err
		}

		closedAt := s.now().UTC()
		closure = &model.CashClosure{
			CashSessionID: session.ID,
			ClosedBy:      userID,
			ClosedAt:      closedAt,
			CashTotal:     req.CashTotal.Round(2),
			CardTotal:     req.CardTotal.Round(2),
			TransferTotal: req.TransferTotal.Round(2),
			OtherTotal:    req.OtherTotal.Round(2),
			CountedCash:   req.CountedCash.Round(2),
			ExpectedCash:  snap.ExpectedCash,
			Notes:         req.Notes,
		}
		closure.Difference = closure.CountedCash.Sub(closure.CashTotal)
		if err := s.repo.CreateClosure(ctx, tx, closure); err != nil {
			return err
		}
		return s.repo.MarkClosed(ctx, tx, session.ID, userID, closedAt)
	})
	if repository.IsUniqueViolation(err) {
		return nil, apperror.Conflict("cash session %s is already closed", sessionID)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("difference", closure.Difference.StringFixed(2)).
		Str("expected_cash", closure.ExpectedCash.StringFixed(2)).
		Msg("cash session closed")
	return closureToResponse(closure), nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *cashService) GetOpenSession(ctx context.Context) (*dto.CashSessionResponse, error) {
	session, err := openSession(ctx, s.repo, nil)
	if err != nil {
		return nil, err
	}
	return sessionToResponse(session), nil
}

func (s *cashService) GetSession(ctx context.Context, id uuid.UUID) (*dto.CashSessionResponse, error) {
	session, err := s.repo.FindSessionByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "cash session %s not found", id)
	}
	return sessionToResponse(session), nil
}

func (s *cashService) GetClosure(ctx context.Context, sessionID uuid.UUID) (*dto.CashClosureResponse, error) {
	c, err := s.repo.FindClosure(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, "no closure for cash session %s", sessionID)
	}
	return closureToResponse(c), nil
}

func (s *cashService) RequireOpenSession(ctx context.Context) (*model.CashSession, error) {
	return requireOpenSession(ctx, s.repo, nil)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func sessionToResponse(s *model.CashSession) *dto.CashSessionResponse {
	resp := &dto.CashSessionResponse{
		ID:            s.ID.String(),
		OpenedBy:      s.OpenedBy.String(),
		OpenedAt:      formatTime(s.OpenedAt),
		OpeningAmount: s.OpeningAmount,
		Status:        s.Status,
		ClosedBy:      idPtrString(s.ClosedBy),
		ClosedAt:      formatTimePtr(s.ClosedAt),
	}
	if s.Closure != nil {
		resp.Closure = closureToResponse(s.Closure)
	}
	return resp
}

func closureToResponse(c *model.CashClosure) *dto.CashClosureResponse {
	return &dto.CashClosureResponse{
		CashSessionID: c.CashSessionID.String(),
		ClosedBy:      c.ClosedBy.String(),
		ClosedAt:      formatTime(c.ClosedAt),
		CashTotal:     c.CashTotal,
		CardTotal:     c.CardTotal,
		TransferTotal: c.TransferTotal,
		OtherTotal:    c.OtherTotal,
		CountedCash:   c.CountedCash,
		Difference:    c.Difference,
		ExpectedCash:  c.ExpectedCash,
		Notes:         c.Notes,
	}
}
