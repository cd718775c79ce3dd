// Package engine computes financial metrics from a ledger snapshot.
//
// Every function is pure and total: nil slices behave as empty collections,
// divisions by zero yield 0, and over-applied credits clamp revenue at zero
// instead of going negative. Results are recomputed from scratch on every
// call; nothing is cached or shared between calls.
package engine

import (
	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

// AllocateCredits sums applied credit notes per target invoice. Notes that
// are pending or void, or that reference no invoice, are excluded entirely.
func AllocateCredits(creditNotes []core.CreditNote) map[string]decimal.Decimal {
	credits := make(map[string]decimal.Decimal)
	for _, cn := range creditNotes {
		if cn.Status != core.CreditApplied || cn.InvoiceID == "" {
			continue
		}
		credits[cn.InvoiceID] = credits[cn.InvoiceID].Add(cn.Amount)
	}
	return credits
}

// NetRevenue returns the invoice amount minus its applied credits, floored
// at zero. Over-crediting must never produce negative revenue.
func NetRevenue(inv core.Invoice, credits map[string]decimal.Decimal) decimal.Decimal {
	net := inv.Amount.Sub(credits[inv.ID])
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}
