package invoice

import "testing"

func TestItemLineTotal(t *testing.T) {
	i := Item{Quantity: 3, UnitCents: 1000, TaxCents: 150}
	if got, want := i.LineTotal(), int64(3150); got != want {
		t.Errorf("LineTotal() = %d, want %d", got, want)
	}
}

func TestTotals(t *testing.T) {
	items := []Item{
		{Quantity: 2, UnitCents: 5000, TaxCents: 0},
		{Quantity: 1, UnitCents: 2500, TaxCents: 200},
	}
	payments := []Payment{
		{AmountCents: 5000},
		{AmountCents: 1000},
	}

	total, paid := Totals(items, payments)
	if want := int64(12700); total != want {
		t.Errorf("total = %d, want %d", total, want)
	}
	if want := int64(6000); paid != want {
		t.Errorf("paid = %d, want %d", paid, want)
	}
}

func TestStatusForPayment(t *testing.T) {
	tests := []struct {
		name        string
		total, paid int64
		want        string
	}{
		{"nothing paid", 10000, 0, StatusSent},
		{"negative paid", 10000, -100, StatusSent},
		{"partially paid", 10000, 4000, StatusPartial},
		{"fully paid", 10000, 10000, StatusPaid},
		{"overpaid", 10000, 10500, StatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForPayment(tt.total, tt.paid); got != tt.want {
				t.Errorf("StatusForPayment(%d, %d) = %q, want %q", tt.total, tt.paid, got, tt.want)
			}
		})
	}
}
