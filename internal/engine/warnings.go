package engine

import (
	"fmt"
	"math"
)

const (
	SeverityHigh   WarningSeverity = "high"
	SeverityMedium WarningSeverity = "medium"
	SeverityLow    WarningSeverity = "low"
)

const (
	WarningMarginErosion    WarningType = "margin_erosion"
	WarningBudgetOverrun    WarningType = "budget_overrun"
	WarningRevenueShortfall WarningType = "revenue_shortfall"
	WarningNegativeTrend    WarningType = "negative_trend"
)

type (
	WarningSeverity string
	WarningType     string

	// Warning is one fired risk rule with operator-facing text. The
	// triggering conditions and severities are contractual; the wording
	// is not.
	Warning struct {
		Severity       WarningSeverity `json:"severity"`
		Type           WarningType     `json:"type"`
		Message        string          `json:"message"`
		Recommendation string          `json:"recommendation"`
	}
)

// DetectEarlyWarnings evaluates every risk rule against the rollup and
// returns all that fire. Rules are independent; there is no early exit.
func DetectEarlyWarnings(detail ProjectFinancialDetail) []Warning {
	var warnings []Warning

	if len(detail.MonthlyBreakdown) >= 2 {
		last := detail.MonthlyBreakdown[len(detail.MonthlyBreakdown)-1]
		prev := detail.MonthlyBreakdown[len(detail.MonthlyBreakdown)-2]
		marginDrop := last.ProfitMargin - prev.ProfitMargin
		if marginDrop < -5 {
			warnings = append(warnings, Warning{
				Severity:       SeverityHigh,
				Type:           WarningMarginErosion,
				Message:        fmt.Sprintf("Profit margin declined by %.1f%% last month", math.Abs(marginDrop)),
				Recommendation: "Review recent cost increases and consider pricing adjustments",
			})
		}
	}

	if detail.BudgetVsActual.Variance.IsNegative() {
		overrun := math.Abs(detail.BudgetVsActual.VariancePercent)
		severity := SeverityLow
		switch {
		case overrun > 20:
			severity = SeverityHigh
		case overrun > 10:
			severity = SeverityMedium
		}
		warnings = append(warnings, Warning{
			Severity:       severity,
			Type:           WarningBudgetOverrun,
			Message:        fmt.Sprintf("Project is %.1f%% over budget", overrun),
			Recommendation: "Implement cost controls and review expense categories",
		})
	}

	if detail.NetProfit.IsNegative() {
		warnings = append(warnings, Warning{
			Severity:       SeverityHigh,
			Type:           WarningRevenueShortfall,
			Message:        "Project is currently operating at a loss",
			Recommendation: "Increase revenue through pricing or reduce operational costs",
		})
	}

	if len(detail.MonthlyBreakdown) >= 3 {
		negative := 0
		for _, m := range lastN(detail.MonthlyBreakdown, 3) {
			if deref(m.ProfitChange) < 0 {
				negative++
			}
		}
		if negative >= 2 {
			warnings = append(warnings, Warning{
				Severity:       SeverityMedium,
				Type:           WarningNegativeTrend,
				Message:        "Profit declining for multiple consecutive months",
				Recommendation: "Analyze cost drivers and revenue patterns to reverse the trend",
			})
		}
	}

	return warnings
}
