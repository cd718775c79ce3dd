package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

func TestAllocateCredits(t *testing.T) {
	notes := []core.CreditNote{
		{ID: "cn-1", InvoiceID: "inv-1", ProjectID: "p1", Amount: decimal.NewFromInt(100), Status: core.CreditApplied},
		{ID: "cn-2", InvoiceID: "inv-1", ProjectID: "p1", Amount: decimal.NewFromInt(250), Status: core.CreditApplied},
		{ID: "cn-3", InvoiceID: "inv-2", ProjectID: "p1", Amount: decimal.NewFromInt(40), Status: core.CreditPending},
		{ID: "cn-4", InvoiceID: "inv-2", ProjectID: "p1", Amount: decimal.NewFromInt(60), Status: core.CreditVoid},
		{ID: "cn-5", InvoiceID: "", ProjectID: "p1", Amount: decimal.NewFromInt(75), Status: core.CreditApplied},
	}

	credits := AllocateCredits(notes)

	if got := credits["inv-1"]; !got.Equal(decimal.NewFromInt(350)) {
		t.Errorf("inv-1 credit = %s, want 350", got)
	}
	if _, ok := credits["inv-2"]; ok {
		t.Error("pending/void notes must not be allocated")
	}
	if len(credits) != 1 {
		t.Errorf("allocation map has %d entries, want 1", len(credits))
	}
}

func TestAllocateCreditsNilInput(t *testing.T) {
	credits := AllocateCredits(nil)
	if len(credits) != 0 {
		t.Errorf("nil input produced %d allocations", len(credits))
	}
}

func TestNetRevenueClamp(t *testing.T) {
	inv := core.Invoice{ID: "inv-1", Amount: decimal.NewFromInt(1000)}

	tests := []struct {
		name   string
		credit int64
		want   int64
	}{
		{name: "no credit", credit: 0, want: 1000},
		{name: "partial credit", credit: 400, want: 600},
		{name: "exact credit", credit: 1000, want: 0},
		{name: "over-credit clamps to zero", credit: 1500, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			credits := map[string]decimal.Decimal{}
			if tt.credit > 0 {
				credits["inv-1"] = decimal.NewFromInt(tt.credit)
			}
			got := NetRevenue(inv, credits)
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("NetRevenue() = %s, want %d", got, tt.want)
			}
		})
	}
}
