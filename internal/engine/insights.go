package engine

import (
	"fmt"
	"math"
)

// InsightMetrics carries the deltas an insight sentence was built from.
type InsightMetrics struct {
	RevenueChange float64 `json:"revenueChange"`
	ExpenseChange float64 `json:"expenseChange"`
	ProfitChange  float64 `json:"profitChange"`
}

// AutoInsight is one templated month-over-month narrative. These are
// deterministic sentences derived from the deltas, not generated text.
type AutoInsight struct {
	Month         string         `json:"month"`
	PreviousMonth string         `json:"previousMonth"`
	Insight       string         `json:"insight"`
	Metrics       InsightMetrics `json:"metrics"`
}

// GenerateAutoInsights narrates each consecutive month pair of a breakdown,
// in chronological order. A profit swing under 5% reads as stable; larger
// swings are attributed to whichever of revenue or expenses moved more.
func GenerateAutoInsights(breakdown []MonthlyMetrics) []AutoInsight {
	var insights []AutoInsight

	for i := 1; i < len(breakdown); i++ {
		curr := breakdown[i]
		prev := breakdown[i-1]

		revenueChange := deref(curr.RevenueChange)
		expenseChange := deref(curr.ExpensesChange)
		profitChange := deref(curr.ProfitChange)

		var insight string
		switch {
		case math.Abs(profitChange) < 5:
			insight = "Profit remained relatively stable with minimal changes in revenue and expenses."
		case profitChange > 0 && revenueChange > expenseChange:
			insight = fmt.Sprintf("Profit increased by %.1f%% primarily due to %.1f%% revenue growth outpacing %.1f%% expense increase.",
				profitChange, revenueChange, expenseChange)
		case profitChange > 0:
			insight = fmt.Sprintf("Profit improved by %.1f%% thanks to %.1f%% reduction in expenses.",
				profitChange, math.Abs(expenseChange))
		case expenseChange > revenueChange:
			insight = fmt.Sprintf("Profit declined by %.1f%% as expenses increased %.1f%% while revenue only grew %.1f%%.",
				math.Abs(profitChange), expenseChange, revenueChange)
		default:
			insight = fmt.Sprintf("Profit decreased by %.1f%% due to %.1f%% revenue decline.",
				math.Abs(profitChange), math.Abs(revenueChange))
		}

		insights = append(insights, AutoInsight{
			Month:         curr.Month,
			PreviousMonth: prev.Month,
			Insight:       insight,
			Metrics: InsightMetrics{
				RevenueChange: revenueChange,
				ExpenseChange: expenseChange,
				ProfitChange:  profitChange,
			},
		})
	}

	return insights
}
