package engine

import "github.com/shopspring/decimal"

// ScenarioResult is the projected outcome of applying hypothetical cost and
// pricing adjustments to a project's current summary numbers.
type ScenarioResult struct {
	OriginalProfit  decimal.Decimal `json:"originalProfit"`
	ProjectedProfit decimal.Decimal `json:"projectedProfit"`
	Change          decimal.Decimal `json:"change"`
	ChangePercent   float64         `json:"changePercent"`
	OriginalMargin  float64         `json:"originalMargin"`
	NewMargin       float64         `json:"newMargin"`
}

// SimulateScenario applies independent percentage sliders to revenue
// (pricingPct) and expenses (costPct) and recomputes profit and margin.
// The function accepts any percentage; range limits belong to the UI.
// Zero adjustments are an exact no-op on profit and margin.
func SimulateScenario(revenue, expenses, profit decimal.Decimal, margin, costPct, pricingPct float64) ScenarioResult {
	adjustedRevenue := revenue.Mul(decimal.NewFromFloat(1 + pricingPct/100))
	adjustedExpenses := expenses.Mul(decimal.NewFromFloat(1 + costPct/100))
	projected := adjustedRevenue.Sub(adjustedExpenses)

	newMargin := marginPercent(projected, adjustedRevenue)

	change := projected.Sub(profit)
	changePercent := 0.0
	if !profit.IsZero() {
		changePercent = change.InexactFloat64() / profit.Abs().InexactFloat64() * 100
	}

	return ScenarioResult{
		OriginalProfit:  profit,
		ProjectedProfit: projected,
		Change:          change,
		ChangePercent:   changePercent,
		OriginalMargin:  margin,
		NewMargin:       newMargin,
	}
}
