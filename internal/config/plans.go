package config

// Plan describes a purchasable subscription plan and the provider-side
// product it maps to.
type Plan struct {
	ID        string
	Name      string
	ProductID string // Creem product id
	// Credits is the allotment granted when a checkout for this plan
	// completes.
	Credits int64
	// PriceCents is the monthly price in the smallest currency unit,
	// used when creating the product on the fly.
	PriceCents int64
	Currency   string
}

// PlanConfig holds the plan catalog and the fallback used for unknown
// plan ids.
type PlanConfig struct {
	DefaultPlan string
	Plans       map[string]Plan
}

// DefaultPlanConfig returns the built-in plan catalog.
func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		DefaultPlan: "basic",
		Plans: map[string]Plan{
			"basic": {
				ID:         "basic",
				Name:       "Nano Banana Basic Plan",
				ProductID:  "prod_2lcc78zV8urc8jrYQNh3ls",
				Credits:    100,
				PriceCents: 900,
				Currency:   "usd",
			},
			"pro": {
				ID:         "pro",
				Name:       "Nano Banana Pro Plan",
				ProductID:  "prod_YJ5PZbRFcdo5Q7ZxwU2U0",
				Credits:    500,
				PriceCents: 2900,
				Currency:   "usd",
			},
		},
	}
}

// GetPlan resolves a plan id, falling back to the default plan for
// unknown ids. Unknown plans are not an error: the pricing page may
// ship plan ids before the backend catalog catches up.
func (c *PlanConfig) GetPlan(planID string) Plan {
	if plan, ok := c.Plans[planID]; ok {
		return plan
	}
	return c.Plans[c.DefaultPlan]
}
