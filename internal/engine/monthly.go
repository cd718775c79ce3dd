package engine

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

// DefaultWindowMonths is the monthly series window when the caller does not
// ask for a specific one: the six calendar months ending with the current
// month, oldest first.
const DefaultWindowMonths = 6

// MonthlyMetrics is one calendar-month bucket of the aggregated series.
// Change fields compare against the immediately preceding bucket and are nil
// on the first bucket of a series, which has no prior period.
type MonthlyMetrics struct {
	Month          string          `json:"month"` // YYYY-MM
	Revenue        decimal.Decimal `json:"revenue"`
	Expenses       decimal.Decimal `json:"expenses"`
	NetProfit      decimal.Decimal `json:"netProfit"`
	ProfitMargin   float64         `json:"profitMargin"`
	RevenueChange  *float64        `json:"revenueChange,omitempty"`
	ExpensesChange *float64        `json:"expensesChange,omitempty"`
	ProfitChange   *float64        `json:"profitChange,omitempty"`
	MarginChange   *float64        `json:"marginChange,omitempty"`
}

// ComputeMonthlyMetrics buckets paid activity into the windowMonths calendar
// months ending with the current month. See ComputeMonthlyMetricsAt.
func ComputeMonthlyMetrics(invoices []core.Invoice, expenses []core.Expense, payables []core.PayableInvoice, creditNotes []core.CreditNote, windowMonths int) []MonthlyMetrics {
	return ComputeMonthlyMetricsAt(time.Now(), invoices, expenses, payables, creditNotes, windowMonths)
}

// ComputeMonthlyMetricsAt is ComputeMonthlyMetrics with an explicit reference
// time defining the last month of the window.
//
// Revenue counts paid invoices net of their applied credits; expenses unify
// paid operational expenses and paid payable bills into a single figure.
// Records dated outside the window are ignored. Records whose date does not
// parse are skipped and counted, never fatal.
func ComputeMonthlyMetricsAt(ref time.Time, invoices []core.Invoice, expenses []core.Expense, payables []core.PayableInvoice, creditNotes []core.CreditNote, windowMonths int) []MonthlyMetrics {
	if windowMonths < 1 {
		windowMonths = DefaultWindowMonths
	}

	months := make([]MonthlyMetrics, 0, windowMonths)
	index := make(map[string]int, windowMonths)
	for i := windowMonths - 1; i >= 0; i-- {
		m := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		key := m.Format("2006-01")
		index[key] = len(months)
		months = append(months, MonthlyMetrics{Month: key})
	}

	credits := AllocateCredits(creditNotes)
	skipped := 0

	for _, inv := range invoices {
		if inv.Status != core.InvoicePaid {
			continue
		}
		key, ok := monthKey(inv.Date)
		if !ok {
			skipped++
			continue
		}
		if i, in := index[key]; in {
			months[i].Revenue = months[i].Revenue.Add(NetRevenue(inv, credits))
		}
	}

	for _, exp := range expenses {
		if exp.Status != core.ExpensePaid {
			continue
		}
		key, ok := monthKey(exp.Date)
		if !ok {
			skipped++
			continue
		}
		if i, in := index[key]; in {
			months[i].Expenses = months[i].Expenses.Add(exp.Amount)
		}
	}

	for _, pay := range payables {
		if pay.Status != core.PayablePaid {
			continue
		}
		key, ok := monthKey(pay.Date)
		if !ok {
			skipped++
			continue
		}
		if i, in := index[key]; in {
			months[i].Expenses = months[i].Expenses.Add(pay.Amount)
		}
	}

	if skipped > 0 {
		slog.Warn("Skipped records with unparseable dates during monthly aggregation", "skipped", skipped)
	}

	for i := range months {
		m := &months[i]
		m.NetProfit = m.Revenue.Sub(m.Expenses)
		m.ProfitMargin = marginPercent(m.NetProfit, m.Revenue)

		if i == 0 {
			continue
		}
		prev := months[i-1]
		m.RevenueChange = ptr(amountChangePercent(prev.Revenue, m.Revenue))
		m.ExpensesChange = ptr(amountChangePercent(prev.Expenses, m.Expenses))
		m.ProfitChange = ptr(profitChangePercent(prev.NetProfit, m.NetProfit))
		m.MarginChange = ptr(m.ProfitMargin - prev.ProfitMargin)
	}

	return months
}

// monthKey reduces a ledger date to its YYYY-MM bucket key. ok is false for
// dates that do not parse; such records must be skipped, not accumulated.
func monthKey(date string) (string, bool) {
	t, err := core.ParseDate(date)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01"), true
}

// marginPercent is netProfit/revenue*100, exactly 0 when revenue is zero.
func marginPercent(netProfit, revenue decimal.Decimal) float64 {
	if !revenue.IsPositive() {
		return 0
	}
	return netProfit.InexactFloat64() / revenue.InexactFloat64() * 100
}

// amountChangePercent is the month-over-month delta for revenue and expense
// figures: 100 when growing from a zero base, 0 when flat at zero.
func amountChangePercent(prev, curr decimal.Decimal) float64 {
	if prev.IsZero() {
		if curr.IsPositive() {
			return 100
		}
		return 0
	}
	return curr.Sub(prev).InexactFloat64() / prev.InexactFloat64() * 100
}

// profitChangePercent handles a zero base differently from the revenue and
// expense deltas: it returns 0, not 100. Existing consumers rely on this
// asymmetry; do not normalize it.
func profitChangePercent(prev, curr decimal.Decimal) float64 {
	if prev.IsZero() {
		return 0
	}
	return curr.Sub(prev).InexactFloat64() / prev.Abs().InexactFloat64() * 100
}

func ptr(f float64) *float64 { return &f }
