package handlers

import (
	"context"
	"sort"

	"github.com/nanobanana/nanobanana-api/internal/config"
)

// PricingHandler serves the public plan catalog.
type PricingHandler struct {
	plans *config.PlanConfig
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(plans *config.PlanConfig) *PricingHandler {
	return &PricingHandler{plans: plans}
}

// PlanInfo is one purchasable plan as shown on the pricing page.
type PlanInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credits    int64  `json:"credits"`
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
	Default    bool   `json:"default"`
}

// ListPlansOutput represents the plan catalog response.
type ListPlansOutput struct {
	Body struct {
		Plans []PlanInfo `json:"plans"`
	}
}

// ListPlans returns the plan catalog for the pricing page.
func (h *PricingHandler) ListPlans(ctx context.Context, input *struct{}) (*ListPlansOutput, error) {
	out := &ListPlansOutput{}
	out.Body.Plans = make([]PlanInfo, 0, len(h.plans.Plans))
	for _, plan := range h.plans.Plans {
		out.Body.Plans = append(out.Body.Plans, PlanInfo{
			ID:         plan.ID,
			Name:       plan.Name,
			Credits:    plan.Credits,
			PriceCents: plan.PriceCents,
			Currency:   plan.Currency,
			Default:    plan.ID == h.plans.DefaultPlan,
		})
	}
	sort.Slice(out.Body.Plans, func(i, j int) bool {
		return out.Body.Plans[i].PriceCents < out.Body.Plans[j].PriceCents
	})
	return out, nil
}
