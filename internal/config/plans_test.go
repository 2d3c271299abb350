package config

import "testing"

func TestGetPlan_KnownPlan(t *testing.T) {
	plans := DefaultPlanConfig()

	plan := plans.GetPlan("pro")
	if plan.ID != "pro" {
		t.Errorf("ID = %q, want pro", plan.ID)
	}
	if plan.Credits != 500 {
		t.Errorf("Credits = %d, want 500", plan.Credits)
	}
}

func TestGetPlan_UnknownFallsBackToDefault(t *testing.T) {
	plans := DefaultPlanConfig()

	plan := plans.GetPlan("enterprise")
	if plan.ID != plans.DefaultPlan {
		t.Errorf("ID = %q, want %q", plan.ID, plans.DefaultPlan)
	}
}

func TestGetPlan_BasicAllotment(t *testing.T) {
	plans := DefaultPlanConfig()

	if got := plans.GetPlan("basic").Credits; got != 100 {
		t.Errorf("Credits = %d, want 100", got)
	}
}
