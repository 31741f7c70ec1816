package service

import (
	"context"
	"fmt"
	"time"

	"minimalgym/internal/apperror"
	"minimalgym/internal/dto"
	"minimalgym/internal/model"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EndDate is start plus the plan's duration in calendar days.
func EndDate(start time.Time, durationDays int) time.Time {
	return DateOnly(start).AddDate(0, 0, durationDays)
}

// ExtensionDays is the number of whole calendar days (UTC) between pausedAt
// and today, never negative. Pausing and resuming on the same day yields 0.
func ExtensionDays(pausedAt, today time.Time) int {
	days := int(DateOnly(today).Sub(DateOnly(pausedAt)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

type SubscriptionService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	Renew(ctx context.Context, userID, id uuid.UUID, req dto.RenewSubscriptionRequest) (*dto.SubscriptionResponse, error)
	// ChangePlan leaves the current subscription untouched and returns a new
	// pending one that must be activated explicitly.
	ChangePlan(ctx context.Context, userID, id uuid.UUID, req dto.ChangePlanRequest) (*dto.SubscriptionResponse, error)
	Activate(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error)
	Pause(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error)
	Resume(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error)
	AddPayment(ctx context.Context, userID, id uuid.UUID, entry dto.PaymentEntry) (*dto.SubscriptionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]dto.SubscriptionResponse, error)
	// ExpireLapsed marks active subscriptions past their end date as expired.
	ExpireLapsed(ctx context.Context) (int64, error)
}

type subscriptionService struct {
	repo      repository.SubscriptionRepository
	members   repository.MemberRepository
	cash      repository.CashRepository
	validator paymentValidator
	now       func() time.Time
}

func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	members repository.MemberRepository,
	cash repository.CashRepository,
	methods repository.PaymentMethodRepository,
	ledger *Ledger,
) SubscriptionService {
	return &subscriptionService{
		repo:      repo,
		members:   members,
		cash:      cash,
		validator: paymentValidator{methods: methods, cashFallback: ledger.cashFallback},
		now:       time.Now,
	}
}

// ── Create ────────────────────────────────────────────────────────────────────

func (s *subscriptionService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	session, err := requireOpenSession(ctx, s.cash, nil)
	if err != nil {
		return nil, err
	}
	memberID, err := parseID("member_id", req.MemberID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.FindByID(ctx, memberID); err != nil {
		return nil, notFoundOr(err, "member %s not found", memberID)
	}
	plan, err := s.activePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	start, err := s.startDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	payment, err := s.resolveOptional(ctx, req.Payment)
	if err != nil {
		return nil, err
	}

	sub := &model.Subscription{
		MemberID:  memberID,
		PlanID:    plan.ID,
		StartDate: start,
		EndDate:   EndDate(start, plan.DurationDays),
		Status:    model.SubscriptionActive,
		Price:     plan.Price,
	}
	err = repository.RunTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, repository.MemberLockKey(memberID)); err != nil {
			return err
		}
		if err := s.ensureNoActive(ctx, tx, memberID); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, sub); err != nil {
			return err
		}
		return s.recordPayment(ctx, tx, session.ID, userID, sub.ID, payment)
	})
	if err = activeConflict(err); err != nil {
		return nil, err
	}

	log.Info().
		Str("subscription_id", sub.ID.String()).
		Str("member_id", memberID.String()).
		Str("end_date", sub.EndDate.Format(dateLayout)).
		Msg("subscription created")
	return s.Get(ctx, sub.ID)
}

// ── Renew ─────────────────────────────────────────────────────────────────────

func (s *subscriptionService) Renew(ctx context.Context, userID, id uuid.UUID, req dto.RenewSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	session, err := requireOpenSession(ctx, s.cash, nil)
	if err != nil {
		return nil, err
	}
	start, err := s.startDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	payment, err := s.resolveOptional(ctx, req.Payment)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "renewed", func(tx *gorm.DB, sub *model.Subscription) error {
		if sub.Status == model.SubscriptionPending {
			return apperror.Conflict("a pending subscription must be activated, not renewed")
		}
		if err := s.ensureNoActive(ctx, tx, sub.MemberID, sub.ID); err != nil {
			return err
		}
		plan, err := s.repo.FindPlan(ctx, tx, sub.PlanID)
		if err != nil {
			return notFoundOr(err, "plan %s not found", sub.PlanID)
		}
		sub.StartDate = start
		sub.EndDate = EndDate(start, plan.DurationDays)
		sub.Status = model.SubscriptionActive
		sub.PausedAt = nil
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}
		return s.recordPayment(ctx, tx, session.ID, userID, sub.ID, payment)
	})
}

// ── ChangePlan / Activate ─────────────────────────────────────────────────────

func (s *subscriptionService) ChangePlan(ctx context.Context, userID, id uuid.UUID, req dto.ChangePlanRequest) (*dto.SubscriptionResponse, error) {
	session, err := requireOpenSession(ctx, s.cash, nil)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "subscription %s not found", id)
	}
	if current.Status == model.SubscriptionCancelled {
		return nil, apperror.Conflict("subscription %s is cancelled", id)
	}
	plan, err := s.activePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	start, err := s.startDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	payment, err := s.resolveOptional(ctx, req.Payment)
	if err != nil {
		return nil, err
	}

	prev := current.ID
	next := &model.Subscription{
		MemberID:               current.MemberID,
		PlanID:                 plan.ID,
		StartDate:              start,
		EndDate:                EndDate(start, plan.DurationDays),
		Status:                 model.SubscriptionPending,
		Price:                  plan.Price,
		PreviousSubscriptionID: &prev,
	}
	err = repository.RunTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, repository.MemberLockKey(current.MemberID)); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, next); err != nil {
			return err
		}
		return s.recordPayment(ctx, tx, session.ID, userID, next.ID, payment)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("subscription_id", next.ID.String()).
		Str("previous_id", prev.String()).
		Str("plan_id", plan.ID.String()).
		Msg("plan change pending")
	return s.Get(ctx, next.ID)
}

// Activate promotes a pending subscription. The subscription it replaces, if
// still active or paused, is cancelled in the same transaction.
func (s *subscriptionService) Activate(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, id, "activated", func(tx *gorm.DB, sub *model.Subscription) error {
		if sub.Status != model.SubscriptionPending {
			return apperror.Conflict("only a pending subscription can be activated, this one is %s", sub.Status)
		}
		exclude := []uuid.UUID{sub.ID}
		if sub.PreviousSubscriptionID != nil {
			prev, err := s.repo.FindByID(ctx, tx, *sub.PreviousSubscriptionID)
			if err != nil && !repository.IsNotFound(err) {
				return fmt.Errorf("load previous subscription: %w", err)
			}
			if err == nil && (prev.Status == model.SubscriptionActive || prev.Status == model.SubscriptionPaused) {
				prev.Status = model.SubscriptionCancelled
				prev.PausedAt = nil
				if err := s.repo.Update(ctx, tx, prev); err != nil {
					return err
				}
			}
			exclude = append(exclude, *sub.PreviousSubscriptionID)
		}
		if err := s.ensureNoActive(ctx, tx, sub.MemberID, exclude...); err != nil {
			return err
		}
		sub.Status = model.SubscriptionActive
		return s.repo.Update(ctx, tx, sub)
	})
}

// ── Pause / Resume / Cancel ───────────────────────────────────────────────────

func (s *subscriptionService) Pause(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, id, "paused", func(tx *gorm.DB, sub *model.Subscription) error {
		if sub.Status != model.SubscriptionActive {
			return apperror.Conflict("only an active subscription can be paused, this one is %s", sub.Status)
		}
		now := s.now().UTC()
		sub.PausedAt = &now
		sub.Status = model.SubscriptionPaused
		return s.repo.Update(ctx, tx, sub)
	})
}

// Resume extends the end date by the calendar days spent paused.
func (s *subscriptionService) Resume(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, id, "resumed", func(tx *gorm.DB, sub *model.Subscription) error {
		if sub.Status != model.SubscriptionPaused {
			return apperror.Conflict("only a paused subscription can be resumed, this one is %s", sub.Status)
		}
		if err := s.ensureNoActive(ctx, tx, sub.MemberID, sub.ID); err != nil {
			return err
		}
		if sub.PausedAt != nil {
			sub.EndDate = DateOnly(sub.EndDate).AddDate(0, 0, ExtensionDays(*sub.PausedAt, s.now()))
		}
		sub.PausedAt = nil
		sub.Status = model.SubscriptionActive
		return s.repo.Update(ctx, tx, sub)
	})
}

func (s *subscriptionService) Cancel(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, id, "cancelled", func(tx *gorm.DB, sub *model.Subscription) error {
		switch sub.Status {
		case model.SubscriptionPending, model.SubscriptionActive, model.SubscriptionPaused:
		default:
			return apperror.Conflict("subscription is already %s", sub.Status)
		}
		sub.Status = model.SubscriptionCancelled
		sub.PausedAt = nil
		return s.repo.Update(ctx, tx, sub)
	})
}

// ── AddPayment ────────────────────────────────────────────────────────────────

func (s *subscriptionService) AddPayment(ctx context.Context, userID, id uuid.UUID, entry dto.PaymentEntry) (*dto.SubscriptionResponse, error) {
	session, err := requireOpenSession(ctx, s.cash, nil)
	if err != nil {
		return nil, err
	}
	resolved, err := s.validator.resolve(ctx, []dto.PaymentEntry{entry})
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "paid", func(tx *gorm.DB, sub *model.Subscription) error {
		if sub.Status == model.SubscriptionCancelled {
			return apperror.Conflict("subscription %s is cancelled", sub.ID)
		}
		return s.recordPayment(ctx, tx, session.ID, userID, sub.ID, &resolved[0])
	})
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *subscriptionService) Get(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error) {
	sub, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "subscription %s not found", id)
	}
	resp := subscriptionToResponse(sub)
	if resp.Paid, err = s.repo.SumPayments(ctx, id); err != nil {
		return nil, fmt.Errorf("sum subscription payments: %w", err)
	}
	return resp, nil
}

func (s *subscriptionService) ListByMember(ctx context.Context, memberID uuid.UUID) ([]dto.SubscriptionResponse, error) {
	subs, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	out := make([]dto.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, *subscriptionToResponse(&subs[i]))
	}
	return out, nil
}

func (s *subscriptionService) ExpireLapsed(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireLapsed(ctx, DateOnly(s.now()))
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("subscriptions expired")
	}
	return n, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// mutate loads the subscription, takes its member lock and hands fn a fresh
// copy read inside the transaction.
func (s *subscriptionService) mutate(ctx context.Context, id uuid.UUID, action string, fn func(tx *gorm.DB, sub *model.Subscription) error) (*dto.SubscriptionResponse, error) {
	sub, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "subscription %s not found", id)
	}
	err = repository.RunTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := repository.AcquireLocks(tx, repository.MemberLockKey(sub.MemberID)); err != nil {
			return err
		}
		fresh, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, "subscription %s not found", id)
		}
		return fn(tx, fresh)
	})
	if err = activeConflict(err); err != nil {
		return nil, err
	}
	log.Info().Str("subscription_id", id.String()).Msgf("subscription %s", action)
	return s.Get(ctx, id)
}

func (s *subscriptionService) ensureNoActive(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, exclude ...uuid.UUID) error {
	n, err := s.repo.CountActive(ctx, tx, memberID, exclude...)
	if err != nil {
		return fmt.Errorf("count active subscriptions: %w", err)
	}
	if n > 0 {
		return apperror.Conflict("member %s already has an active subscription", memberID)
	}
	return nil
}

// activeConflict maps a hit on the one-active-per-member index to Conflict.
func activeConflict(err error) error {
	if repository.IsUniqueViolation(err) {
		return apperror.Conflict("member already has an active subscription")
	}
	return err
}

func (s *subscriptionService) activePlan(ctx context.Context, raw string) (*model.MembershipPlan, error) {
	planID, err := parseID("plan_id", raw)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.FindPlan(ctx, nil, planID)
	if err != nil {
		return nil, notFoundOr(err, "plan %s not found", planID)
	}
	if !plan.IsActive {
		return nil, apperror.Validation("plan %s is inactive", plan.Name)
	}
	return plan, nil
}

// startDate parses a YYYY-MM-DD date, defaulting to today.
func (s *subscriptionService) startDate(raw string) (time.Time, error) {
	if raw == "" {
		return DateOnly(s.now()), nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, apperror.Validation("start_date must be YYYY-MM-DD")
	}
	return t, nil
}

func (s *subscriptionService) resolveOptional(ctx context.Context, entry *dto.PaymentEntry) (*resolvedPayment, error) {
	if entry == nil {
		return nil, nil
	}
	resolved, err := s.validator.resolve(ctx, []dto.PaymentEntry{*entry})
	if err != nil {
		return nil, err
	}
	return &resolved[0], nil
}

// recordPayment confirms inside tx that the session is still open, then
// stores p when one was given. Every session-gated write ends with it.
func (s *subscriptionService) recordPayment(ctx context.Context, tx *gorm.DB, sessionID, userID, subID uuid.UUID, p *resolvedPayment) error {
	if err := recheckSession(ctx, s.cash, tx, sessionID); err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	return s.repo.CreatePayment(ctx, tx, &model.Payment{
		SubscriptionID:  subID,
		PaymentMethodID: p.methodID,
		CashSessionID:   sessionID,
		Amount:          p.amount,
		PaidAt:          s.now().UTC(),
		Reference:       p.reference,
		Proof:           p.proof,
		CreatedBy:       userID,
	})
}

func subscriptionToResponse(s *model.Subscription) *dto.SubscriptionResponse {
	return &dto.SubscriptionResponse{
		ID:                     s.ID.String(),
		MemberID:               s.MemberID.String(),
		PlanID:                 s.PlanID.String(),
		StartDate:              s.StartDate.UTC().Format(dateLayout),
		EndDate:                s.EndDate.UTC().Format(dateLayout),
		Status:                 s.Status,
		Price:                  s.Price,
		PausedAt:               formatTimePtr(s.PausedAt),
		PreviousSubscriptionID: idPtrString(s.PreviousSubscriptionID),
	}
}
