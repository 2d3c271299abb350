package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/nanobanana/nanobanana-api/internal/config"
	"github.com/nanobanana/nanobanana-api/internal/payments"
)

// ErrPaymentsUnavailable indicates the payment provider is not
// configured for this deployment.
var ErrPaymentsUnavailable = errors.New("payment provider not configured")

// CheckoutParams carries everything needed to open a checkout session.
// Interval and Price ride along as provider metadata so webhook events
// echo them back for reconciliation.
type CheckoutParams struct {
	UserID     string
	Email      string
	PlanID     string
	Interval   string
	Price      float64
	SuccessURL string
}

// CheckoutResult is the outcome of a checkout request. Mock sessions
// are returned when the provider rejects the request in a recoverable
// way, so the purchase flow stays demonstrable without live billing.
type CheckoutResult struct {
	CheckoutURL string
	SessionID   string
	Mock        bool
}

// CheckoutService opens payment provider checkout sessions. It degrades
// in steps: a test-mode API key short-circuits to the provider's hosted
// test payment page, a missing product is created once and the session
// retried, and any remaining provider failure falls back to a mock
// redirect URL.
type CheckoutService struct {
	client *payments.Client
	cfg    *config.Config
	plans  *config.PlanConfig
	logger *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(client *payments.Client, cfg *config.Config, plans *config.PlanConfig, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{client: client, cfg: cfg, plans: plans, logger: logger}
}

// CreateSession opens a checkout session for the given user and plan.
func (s *CheckoutService) CreateSession(ctx context.Context, params CheckoutParams) (*CheckoutResult, error) {
	if s.cfg.CreemAPIKey == "" {
		return nil, ErrPaymentsUnavailable
	}

	plan := s.plans.GetPlan(params.PlanID)

	if s.cfg.CreemTestMode() {
		return &CheckoutResult{
			CheckoutURL: payments.TestPaymentURL(plan.ProductID, map[string]string{
				"userId":   params.UserID,
				"planId":   plan.ID,
				"interval": params.Interval,
				"price":    formatPrice(params.Price),
				"email":    params.Email,
			}),
			Mock: false,
		}, nil
	}

	req := payments.CheckoutRequest{
		RequestID:     fmt.Sprintf("nano-%s-%s-%d", plan.ID, params.UserID, time.Now().UnixMilli()),
		ProductID:     plan.ProductID,
		Units:         1,
		CustomerEmail: params.Email,
		SuccessURL:    s.successURL(params.SuccessURL, plan.ID),
		Metadata: map[string]string{
			"user_id":  params.UserID,
			"plan_id":  plan.ID,
			"interval": params.Interval,
			"price":    formatPrice(params.Price),
		},
	}

	session, err := s.client.CreateCheckout(ctx, req)
	if errors.Is(err, payments.ErrProductNotFound) {
		session, err = s.createProductAndRetry(ctx, plan, req)
	}
	if err != nil {
		s.logger.Warn("checkout session failed, falling back to mock redirect",
			"user_id", params.UserID,
			"plan_id", plan.ID,
			"error", err,
		)
		return &CheckoutResult{
			CheckoutURL: s.mockURL(params.SuccessURL, plan.ID),
			Mock:        true,
		}, nil
	}

	s.logger.Info("checkout session created",
		"user_id", params.UserID,
		"plan_id", plan.ID,
		"session_id", session.ID,
	)
	return &CheckoutResult{CheckoutURL: session.CheckoutURL, SessionID: session.ID}, nil
}

// createProductAndRetry provisions the plan's product on the provider,
// then retries the checkout exactly once.
func (s *CheckoutService) createProductAndRetry(ctx context.Context, plan config.Plan, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	s.logger.Info("provider product missing, creating it",
		"plan_id", plan.ID,
		"product_id", plan.ProductID,
	)

	product := payments.ProductRequest{
		ID:           plan.ProductID,
		Name:         plan.Name,
		Description:  fmt.Sprintf("%d image generation credits", plan.Credits),
		Price:        plan.PriceCents,
		Currency:     plan.Currency,
		BillingCycle: "every-month",
	}
	if _, err := s.client.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.client.CreateCheckout(ctx, req)
}

// successURL is where the provider redirects after payment. The plan
// id rides along so the success page knows what was bought.
func (s *CheckoutService) successURL(override, planID string) string {
	if override != "" {
		return override
	}
	return fmt.Sprintf("%s/success?plan=%s", s.cfg.BaseURL, url.QueryEscape(planID))
}

func (s *CheckoutService) mockURL(successURL, planID string) string {
	base := s.cfg.BaseURL + "/success"
	if successURL != "" {
		base = successURL
	}
	sep := "?"
	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return fmt.Sprintf("%s%splan=%s&mock=true", base, sep, url.QueryEscape(planID))
}

// formatPrice renders a display price for provider metadata. Whole
// amounts come out without a decimal point.
func formatPrice(p float64) string {
	if p <= 0 {
		return ""
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}
