package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNoOpenSession means no cash session is currently open. It is a state,
// not a business rejection: callers that need a session turn it into a
// Conflict, read-only callers may simply report "no session".
var ErrNoOpenSession = errors.New("no open cash session")

const timeLayout = time.RFC3339
const dateLayout = "2006-01-02"

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation("%s is not a valid id", field)
	}
	return id, nil
}

// notFoundOr converts gorm.ErrRecordNotFound into a NotFound error and wraps
// anything else as a storage failure.
func notFoundOr(err error, format string, args ...any) error {
	if repository.IsNotFound(err) {
		return apperror.NotFound(format, args...)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// openSession returns the currently open session, reading through tx when given.
func openSession(ctx context.Context, cash repository.CashRepository, tx *gorm.DB) (*model.CashSession, error) {
	s, err := cash.FindOpenSession(ctx, tx)
	if repository.IsNotFound(err) {
		return nil, ErrNoOpenSession
	}
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return s, nil
}

// requireOpenSession is the gating precondition for sales, payments and
// subscription changes.
func requireOpenSession(ctx context.Context, cash repository.CashRepository, tx *gorm.DB) (*model.CashSession, error) {
	s, err := openSession(ctx, cash, tx)
	if errors.Is(err, ErrNoOpenSession) {
		return nil, apperror.Conflict("no open cash session")
	}
	return s, err
}

// recheckSession re-reads the session under a shared row lock inside tx and
// fails if it was closed after the pre-flight checks.
func recheckSession(ctx context.Context, cash repository.CashRepository, tx *gorm.DB, id uuid.UUID) error {
	s, err := cash.LockSession(ctx, tx, id, false)
	if err != nil {
		return fmt.Errorf("lock cash session: %w", err)
	}
	if s.Status != model.SessionOpen {
		return apperror.Conflict("cash session was closed")
	}
	return nil
}

// ── Payment entries ──────────────────────────────────────────────────────────

// resolvedPayment is a PaymentEntry that passed validation.
type resolvedPayment struct {
	methodID  uuid.UUID
	amount    decimal.Decimal
	reference *string
	proof     *string
}

// cashTender picks the cash-equivalent method: the flagged one first, then a
// case-insensitive name match on fallbackName.
func cashTender(methods []model.PaymentMethod, fallbackName string) (*model.PaymentMethod, error) {
	for i := range methods {
		if methods[i].IsCashEquivalent {
			return &methods[i], nil
		}
	}
	for i := range methods {
		if strings.EqualFold(methods[i].Name, fallbackName) {
			return &methods[i], nil
		}
	}
	return nil, apperror.Configuration("no cash-equivalent payment method is configured")
}

// paymentValidator checks payment entries against the active methods.
type paymentValidator struct {
	methods      repository.PaymentMethodRepository
	cashFallback string
}

// resolve validates each entry (amount > 0, method exists and is active,
// proof present for non-cash methods) and reports every failing entry.
func (v paymentValidator) resolve(ctx context.Context, entries []dto.PaymentEntry) ([]resolvedPayment, error) {
	active, err := v.methods.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	byID := make(map[uuid.UUID]model.PaymentMethod, len(active))
	for _, m := range active {
		byID[m.ID] = m
	}
	var cashID uuid.UUID
	if cash, err := cashTender(active, v.cashFallback); err == nil {
		cashID = cash.ID
	}

	var details []apperror.Detail
	out := make([]resolvedPayment, 0, len(entries))
	for i, e := range entries {
		field := fmt.Sprintf("payments[%d]", i)
		if !e.Amount.IsPositive() {
			details = append(details, apperror.Detail{Field: field, Reason: "amount must be greater than zero"})
			continue
		}
		id, err := uuid.Parse(e.PaymentMethodID)
		if err != nil {
			details = append(details, apperror.Detail{Field: field, Reason: "invalid payment method id"})
			continue
		}
		if _, ok := byID[id]; !ok {
			details = append(details, apperror.Detail{Field: field, Reason: "payment method not found or inactive"})
			continue
		}
		if id != cashID && (e.Proof == nil || strings.TrimSpace(*e.Proof) == "") {
			details = append(details, apperror.Detail{Field: field, Reason: "proof is required for non-cash payments"})
			continue
		}
		out = append(out, resolvedPayment{methodID: id, amount: e.Amount.Round(2), reference: e.Reference, proof: e.Proof})
	}
	if len(details) > 0 {
		return nil, apperror.Validation("invalid payment").WithDetails(details...)
	}
	return out, nil
}

func sumPayments(ps []resolvedPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(p.amount)
	}
	return total
}

// ── Dates ────────────────────────────────────────────────────────────────────

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func idPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
