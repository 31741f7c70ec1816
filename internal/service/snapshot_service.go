package service

import (
	"context"
	"fmt"
	"sort"

	"minimalgym/internal/dto"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SnapshotService reports a session's cash position derived from the ledgers.
type SnapshotService interface {
	GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*dto.SnapshotResponse, error)
	// GetOpenSnapshot returns ErrNoOpenSession when no session is open.
	GetOpenSnapshot(ctx context.Context) (*dto.SnapshotResponse, error)
}

// Snapshot is the derived position of one session. Per-method totals are
// signed, so refund legs already reduce them.
type Snapshot struct {
	Session      *model.CashSession
	PerMethod    map[uuid.UUID]decimal.Decimal
	Methods      map[uuid.UUID]model.PaymentMethod
	CashIn       decimal.Decimal
	CashOut      decimal.Decimal
	CashExpenses decimal.Decimal
	CashMethodID uuid.UUID
	ExpectedCash decimal.Decimal
}

// Balance is what a tender can still pay out: the expected drawer cash for
// the cash-equivalent method, the method's collected total for anything else.
func (s *Snapshot) Balance(methodID uuid.UUID) decimal.Decimal {
	if methodID == s.CashMethodID {
		return s.ExpectedCash
	}
	return s.PerMethod[methodID]
}

// Ledger aggregates the sale, subscription, cash and expense ledgers of a
// session. Every operation that must check a balance before writing shares one.
type Ledger struct {
	cash          repository.CashRepository
	sales         repository.SaleRepository
	subscriptions repository.SubscriptionRepository
	expenses      repository.ExpenseRepository
	methods       repository.PaymentMethodRepository
	cashFallback  string
}

// Snapshot builds the position of session. Pass the caller's tx to read
// inside its transaction and under its locks.
func (e *Ledger) Snapshot(ctx context.Context, tx *gorm.DB, session *model.CashSession) (*Snapshot, error) {
	active, err := e.methods.ListActive(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	cash, err := cashTender(active, e.cashFallback)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Session:      session,
		PerMethod:    make(map[uuid.UUID]decimal.Decimal),
		Methods:      make(map[uuid.UUID]model.PaymentMethod, len(active)),
		CashMethodID: cash.ID,
	}
	for _, m := range active {
		snap.Methods[m.ID] = m
	}

	saleTotals, err := e.sales.SessionTotalsByMethod(ctx, tx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("sum sale payments: %w", err)
	}
	subTotals, err := e.subscriptions.SessionTotalsByMethod(ctx, tx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("sum subscription payments: %w", err)
	}
	for _, t := range append(saleTotals, subTotals...) {
		snap.PerMethod[t.PaymentMethodID] = snap.PerMethod[t.PaymentMethodID].Add(t.Total)
	}

	movs, err := e.cash.SumMovements(ctx, tx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("sum cash movements: %w", err)
	}
	snap.CashIn, snap.CashOut = movs.In, movs.Out

	if snap.CashExpenses, err = e.expenses.SumSessionCash(ctx, tx, session.ID); err != nil {
		return nil, fmt.Errorf("sum cash expenses: %w", err)
	}

	snap.ExpectedCash = session.OpeningAmount.
		Add(snap.CashIn).
		Sub(snap.CashOut).
		Sub(snap.CashExpenses).
		Add(snap.PerMethod[cash.ID])
	return snap, nil
}

// ── Service ───────────────────────────────────────────────────────────────────

type snapshotService struct {
	ledger *Ledger
}

func NewSnapshotService(ledger *Ledger) SnapshotService {
	return &snapshotService{ledger: ledger}
}

func NewLedger(
	cash repository.CashRepository,
	sales repository.SaleRepository,
	subscriptions repository.SubscriptionRepository,
	expenses repository.ExpenseRepository,
	methods repository.PaymentMethodRepository,
	cashMethodName string,
) *Ledger {
	if cashMethodName == "" {
		cashMethodName = "Cash"
	}
	return &Ledger{
		cash:          cash,
		sales:         sales,
		subscriptions: subscriptions,
		expenses:      expenses,
		methods:       methods,
		cashFallback:  cashMethodName,
	}
}

func (s *snapshotService) GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*dto.SnapshotResponse, error) {
	session, err := s.ledger.cash.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, "cash session %s not found", sessionID)
	}
	snap, err := s.ledger.Snapshot(ctx, nil, session)
	if err != nil {
		return nil, err
	}
	return snapshotToResponse(snap), nil
}

func (s *snapshotService) GetOpenSnapshot(ctx context.Context) (*dto.SnapshotResponse, error) {
	session, err := openSession(ctx, s.ledger.cash, nil)
	if err != nil {
		return nil, err
	}
	snap, err := s.ledger.Snapshot(ctx, nil, session)
	if err != nil {
		return nil, err
	}
	return snapshotToResponse(snap), nil
}

func snapshotToResponse(snap *Snapshot) *dto.SnapshotResponse {
	resp := &dto.SnapshotResponse{
		CashSessionID:    snap.Session.ID.String(),
		OpeningAmount:    snap.Session.OpeningAmount,
		CashMovementsIn:  snap.CashIn,
		CashMovementsOut: snap.CashOut,
		CashExpenses:     snap.CashExpenses,
		CashMethodID:     snap.CashMethodID.String(),
		ExpectedCash:     snap.ExpectedCash,
	}
	for id, total := range snap.PerMethod {
		resp.PerMethod = append(resp.PerMethod, dto.MethodTotalResponse{
			PaymentMethodID: id.String(),
			Name:            snap.Methods[id].Name,
			Total:           total,
		})
	}
	sort.Slice(resp.PerMethod, func(i, j int) bool { return resp.PerMethod[i].Name < resp.PerMethod[j].Name })
	return resp
}

// methodName is used in rejection messages.
func methodName(snap *Snapshot, id uuid.UUID) string {
	if m, ok := snap.Methods[id]; ok {
		return m.Name
	}
	return id.String()
}
