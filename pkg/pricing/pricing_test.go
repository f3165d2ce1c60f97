package pricing

import (
	"context"
	"testing"
)

func TestRuleBasedEstimator_Estimate(t *testing.T) {
	e := NewRuleBasedEstimator(map[string]int64{
		"standard": 100,
		"deep":     150,
	})

	got, err := e.Estimate(context.Background(), EstimateRequest{
		ServiceType: "standard",
		SquareFeet:  1000,
		Bedrooms:    2,
		Bathrooms:   1,
	})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	// base = 100*1000/100 + 2*1000 + 1*800 = 1000 + 2000 + 800 = 3800
	if want := int64(3800); got.BaseCents != want {
		t.Errorf("BaseCents = %d, want %d", got.BaseCents, want)
	}
	if got.TotalCents != got.BaseCents {
		t.Errorf("TotalCents = %d, want %d (no add-ons or discount)", got.TotalCents, got.BaseCents)
	}
}

func TestRuleBasedEstimator_UnknownServiceFallsBackToStandard(t *testing.T) {
	e := NewRuleBasedEstimator(map[string]int64{"standard": 100})
	got, err := e.Estimate(context.Background(), EstimateRequest{ServiceType: "bogus", SquareFeet: 500})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if want := int64(500); got.BaseCents != want {
		t.Errorf("BaseCents = %d, want %d (fallback to standard rate)", got.BaseCents, want)
	}
}

func TestRuleBasedEstimator_AddOnsAndDiscount(t *testing.T) {
	e := NewRuleBasedEstimator(map[string]int64{"standard": 100})
	got, err := e.Estimate(context.Background(), EstimateRequest{
		ServiceType: "standard",
		SquareFeet:  1000,
		AddOns:      []string{"inside_fridge", "windows"},
		Frequency:   "weekly",
	})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	// base = 1000, add-ons = 2500 + 4000 = 6500, discount = 20% of 7500 = 1500
	if want := int64(6500); got.AddOnCents != want {
		t.Errorf("AddOnCents = %d, want %d", got.AddOnCents, want)
	}
	if want := int64(1500); got.DiscountCents != want {
		t.Errorf("DiscountCents = %d, want %d", got.DiscountCents, want)
	}
	if want := int64(6000); got.TotalCents != want {
		t.Errorf("TotalCents = %d, want %d", got.TotalCents, want)
	}
	if got.Currency != "usd" {
		t.Errorf("Currency = %q, want usd", got.Currency)
	}
}

func TestRuleBasedEstimator_UnknownFrequencyNoDiscount(t *testing.T) {
	e := NewRuleBasedEstimator(map[string]int64{"standard": 100})
	got, err := e.Estimate(context.Background(), EstimateRequest{
		ServiceType: "standard",
		SquareFeet:  1000,
		Frequency:   "never-heard-of-it",
	})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if got.DiscountCents != 0 {
		t.Errorf("DiscountCents = %d, want 0 for unrecognized frequency", got.DiscountCents)
	}
}
