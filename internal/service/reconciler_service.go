package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/nanobanana/nanobanana-api/internal/config"
	"github.com/nanobanana/nanobanana-api/internal/models"
	"github.com/nanobanana/nanobanana-api/internal/repository"
)

// PaymentEvent is a normalized payment provider webhook event. The
// handler parses the provider payload and hands one of these to the
// reconciler.
type PaymentEvent struct {
	ID            string
	Type          string
	UserID        string
	PlanID        string
	Interval      string
	AmountCents   int64
	Currency      string
	CustomerEmail string
}

// ReconcilerService applies verified payment events to the billing
// state. Each event is applied at most once: replays of an already
// processed event id are acknowledged without re-applying.
type ReconcilerService struct {
	repos  *repository.Repositories
	plans  *config.PlanConfig
	logger *slog.Logger
}

// NewReconcilerService creates a new reconciler service.
func NewReconcilerService(repos *repository.Repositories, plans *config.PlanConfig, logger *slog.Logger) *ReconcilerService {
	return &ReconcilerService{repos: repos, plans: plans, logger: logger}
}

// ProcessEvent routes a payment event to its mutation. Unrecognized
// event types are logged and acknowledged so the provider does not
// retry them forever.
func (s *ReconcilerService) ProcessEvent(ctx context.Context, event *PaymentEvent) error {
	if event.ID == "" {
		// Synthesize an id so the idempotency record still exists.
		event.ID = "evt_" + ulid.Make().String()
	}

	switch event.Type {
	case "checkout.completed", "subscription.paid":
		return s.applyCheckoutCompleted(ctx, event)
	case "subscription.active":
		return s.applyStatusChange(ctx, event, models.SubStatusActive)
	case "subscription.canceled", "subscription.cancelled":
		return s.applyStatusChange(ctx, event, models.SubStatusCanceled)
	case "subscription.expired":
		return s.applyStatusChange(ctx, event, models.SubStatusExpired)
	default:
		s.logger.Info("ignoring unhandled payment event",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}
}

func (s *ReconcilerService) applyCheckoutCompleted(ctx context.Context, event *PaymentEvent) error {
	if event.UserID == "" {
		return fmt.Errorf("event %s has no user reference", event.ID)
	}

	plan := s.plans.GetPlan(event.PlanID)
	applied := repository.CheckoutCompleted{
		EventID:          event.ID,
		EventType:        event.Type,
		UserID:           event.UserID,
		PlanID:           plan.ID,
		Interval:         event.Interval,
		AmountCents:      event.AmountCents,
		Currency:         event.Currency,
		CustomerEmail:    event.CustomerEmail,
		GrantCredits:     plan.Credits,
		GrantTxID:        ulid.Make().String(),
		GrantDescription: fmt.Sprintf("purchase: %s", plan.Name),
	}

	if err := s.repos.Reconcile.ApplyCheckoutCompleted(ctx, applied); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			s.logger.Info("skipping already processed payment event",
				"event_id", event.ID,
				"event_type", event.Type,
			)
			return nil
		}
		return fmt.Errorf("failed to apply checkout event: %w", err)
	}

	s.logger.Info("checkout reconciled",
		"event_id", event.ID,
		"user_id", event.UserID,
		"plan_id", plan.ID,
		"credits_granted", plan.Credits,
	)
	return nil
}

func (s *ReconcilerService) applyStatusChange(ctx context.Context, event *PaymentEvent, status models.SubscriptionStatus) error {
	if event.UserID == "" {
		return fmt.Errorf("event %s has no user reference", event.ID)
	}

	if err := s.repos.Reconcile.ApplyStatusChange(ctx, event.ID, event.Type, event.UserID, status); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			s.logger.Info("skipping already processed payment event",
				"event_id", event.ID,
				"event_type", event.Type,
			)
			return nil
		}
		return fmt.Errorf("failed to apply status change: %w", err)
	}

	s.logger.Info("subscription status reconciled",
		"event_id", event.ID,
		"user_id", event.UserID,
		"status", status,
	)
	return nil
}

// NormalizeEventType lowercases and trims a raw provider event type
// string so routing is insensitive to provider casing drift.
func NormalizeEventType(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
