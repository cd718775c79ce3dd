package engine

import "math"

const (
	RatingExcellent = "Excellent"
	RatingGood      = "Good"
	RatingFair      = "Fair"
	RatingPoor      = "Poor"
	RatingCritical  = "Critical"
)

const (
	marginWeight = 0.4
	costWeight   = 0.3
	trendWeight  = 0.3

	// A 30% profit margin scores a perfect margin factor.
	benchmarkMargin = 30
)

// HealthFactors are the raw 0-100 sub-scores before weighting, for display.
type HealthFactors struct {
	ProfitMargin int `json:"profitMargin"`
	CostControl  int `json:"costControl"`
	Trend        int `json:"trend"`
}

// HealthScore condenses a project rollup into a single 0-100 score.
type HealthScore struct {
	Score   int           `json:"score"`
	Rating  string        `json:"rating"`
	Factors HealthFactors `json:"factors"`
}

// ComputeHealthScore scores a project from its financial detail: profit
// margin (40%), budget discipline (30%) and recent profit trend (30%).
// The score is always within [0,100], whatever the inputs.
func ComputeHealthScore(detail ProjectFinancialDetail) HealthScore {
	marginFactor := clamp(detail.ProfitMargin/benchmarkMargin*100, 0, 100) * marginWeight

	// Overruns are penalized twice as steeply as underruns are rewarded.
	v := detail.BudgetVsActual.VariancePercent / 100
	var costFactor float64
	if v >= 0 {
		costFactor = clamp(100+v*50, 0, 100) * costWeight
	} else {
		costFactor = clamp(100+v*100, 0, 100) * costWeight
	}

	trendFactor := 50 * trendWeight
	if len(detail.MonthlyBreakdown) >= 2 {
		recent := lastN(detail.MonthlyBreakdown, 3)
		var sum float64
		for _, m := range recent {
			sum += deref(m.ProfitChange)
		}
		avg := sum / float64(len(recent))
		trendFactor = clamp(50+avg*2, 0, 100) * trendWeight
	}

	score := int(math.Round(marginFactor + costFactor + trendFactor))

	var rating string
	switch {
	case score >= 80:
		rating = RatingExcellent
	case score >= 60:
		rating = RatingGood
	case score >= 40:
		rating = RatingFair
	case score >= 20:
		rating = RatingPoor
	default:
		rating = RatingCritical
	}

	return HealthScore{
		Score:  score,
		Rating: rating,
		Factors: HealthFactors{
			ProfitMargin: int(math.Round(marginFactor / marginWeight)),
			CostControl:  int(math.Round(costFactor / costWeight)),
			Trend:        int(math.Round(trendFactor / trendWeight)),
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lastN(months []MonthlyMetrics, n int) []MonthlyMetrics {
	if len(months) <= n {
		return months
	}
	return months[len(months)-n:]
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
