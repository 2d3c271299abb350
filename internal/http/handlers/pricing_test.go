package handlers

import (
	"context"
	"testing"

	"github.com/nanobanana/nanobanana-api/internal/config"
)

func TestListPlans_SortedByPrice(t *testing.T) {
	plans := config.DefaultPlanConfig()
	handler := NewPricingHandler(&plans)

	output, err := handler.ListPlans(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := output.Body.Plans
	if len(got) != len(plans.Plans) {
		t.Fatalf("len(plans) = %d, want %d", len(got), len(plans.Plans))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].PriceCents > got[i].PriceCents {
			t.Errorf("plans not sorted by price: %v", got)
		}
	}
}

func TestListPlans_MarksDefault(t *testing.T) {
	plans := config.DefaultPlanConfig()
	handler := NewPricingHandler(&plans)

	output, err := handler.ListPlans(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defaults := 0
	for _, plan := range output.Body.Plans {
		if plan.Default {
			defaults++
			if plan.ID != plans.DefaultPlan {
				t.Errorf("default flag on %s, want %s", plan.ID, plans.DefaultPlan)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("defaults = %d, want exactly one", defaults)
	}
}
