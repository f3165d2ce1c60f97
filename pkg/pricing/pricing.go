// Package pricing defines the contract for cleaning-job price estimation.
// The estimation rules themselves (square footage, service type, add-on
// pricing tables) are an external collaborator's concern; this package pins
// the stable interface booking and lead capture code against.
package pricing

import "context"

// EstimateRequest describes a job to be priced.
type EstimateRequest struct {
	ServiceType string // "standard", "deep", "move_out", "recurring"
	SquareFeet  int
	Bedrooms    int
	Bathrooms   int
	AddOns      []string // "inside_fridge", "inside_oven", "windows", ...
	Frequency   string   // "", "weekly", "biweekly", "monthly"
}

// Estimate is the computed price breakdown, in cents.
type Estimate struct {
	BaseCents    int64
	AddOnCents   int64
	DiscountCents int64
	TotalCents   int64
	Currency     string
}

// Estimator computes a price estimate for a cleaning job.
type Estimator interface {
	Estimate(ctx context.Context, req EstimateRequest) (Estimate, error)
}

// RuleBasedEstimator is a deterministic, table-driven Estimator suitable for
// the default deployment: fixed per-square-foot rates, flat add-on fees, and
// recurring-frequency discounts.
type RuleBasedEstimator struct {
	rates map[string]int64 // cents per square foot, by service type
}

// NewRuleBasedEstimator creates a RuleBasedEstimator with the given per-square-foot
// rates (in cents), keyed by service type.
func NewRuleBasedEstimator(rates map[string]int64) *RuleBasedEstimator {
	return &RuleBasedEstimator{rates: rates}
}

var addOnCents = map[string]int64{
	"inside_fridge": 2500,
	"inside_oven":   2500,
	"windows":       4000,
	"garage":        3000,
}

var frequencyDiscountPct = map[string]int64{
	"weekly":   20,
	"biweekly": 15,
	"monthly":  10,
}

// Estimate computes a price using the configured per-square-foot rate table.
func (e *RuleBasedEstimator) Estimate(ctx context.Context, req EstimateRequest) (Estimate, error) {
	rate, ok := e.rates[req.ServiceType]
	if !ok {
		rate = e.rates["standard"]
	}

	base := rate * int64(req.SquareFeet) / 100
	base += int64(req.Bedrooms) * 1000
	base += int64(req.Bathrooms) * 800

	var addOns int64
	for _, a := range req.AddOns {
		addOns += addOnCents[a]
	}

	var discount int64
	if pct, ok := frequencyDiscountPct[req.Frequency]; ok {
		discount = (base + addOns) * pct / 100
	}

	return Estimate{
		BaseCents:     base,
		AddOnCents:    addOns,
		DiscountCents: discount,
		TotalCents:    base + addOns - discount,
		Currency:      "usd",
	}, nil
}
