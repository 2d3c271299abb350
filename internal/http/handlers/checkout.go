package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nanobanana/nanobanana-api/internal/http/mw"
	"github.com/nanobanana/nanobanana-api/internal/service"
)

// CheckoutHandler handles checkout session creation.
type CheckoutHandler struct {
	checkoutSvc *service.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkoutSvc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// CreateCheckoutInput represents a checkout session request.
type CreateCheckoutInput struct {
	Body struct {
		PlanID    string  `json:"planId" doc:"Plan to purchase"`
		Price     float64 `json:"price" doc:"Display price shown to the user"`
		Interval  string  `json:"interval" doc:"Billing interval (month, year)"`
		UserID    string  `json:"userId,omitempty" doc:"Purchasing user's id (taken from the session when authenticated)"`
		UserEmail string  `json:"userEmail,omitempty" doc:"Customer email for the provider"`
	}
}

// CreateCheckoutOutput represents a checkout session response.
type CreateCheckoutOutput struct {
	Body struct {
		CheckoutURL string `json:"checkoutUrl" doc:"Provider-hosted checkout page"`
		Mock        bool   `json:"mock,omitempty" doc:"True when the provider was unavailable and a mock redirect was issued"`
	}
}

// CreateCheckout opens a checkout session for a plan purchase. A
// session token, when present, overrides the body's user reference.
func (h *CheckoutHandler) CreateCheckout(ctx context.Context, input *CreateCheckoutInput) (*CreateCheckoutOutput, error) {
	body := input.Body

	userID := body.UserID
	email := body.UserEmail
	if claims := mw.GetUserClaims(ctx); claims != nil {
		userID = claims.UserID
		if email == "" {
			email = claims.Email
		}
	}

	if body.PlanID == "" || body.Price <= 0 || body.Interval == "" || userID == "" {
		return nil, huma.Error400BadRequest("planId, price, interval and userId are required")
	}

	result, err := h.checkoutSvc.CreateSession(ctx, service.CheckoutParams{
		UserID:   userID,
		Email:    email,
		PlanID:   body.PlanID,
		Interval: body.Interval,
		Price:    body.Price,
	})
	if err != nil {
		if errors.Is(err, service.ErrPaymentsUnavailable) {
			return nil, huma.Error503ServiceUnavailable("payment provider not configured")
		}
		return nil, huma.Error500InternalServerError("failed to create checkout session")
	}

	out := &CreateCheckoutOutput{}
	out.Body.CheckoutURL = result.CheckoutURL
	out.Body.Mock = result.Mock
	return out, nil
}
