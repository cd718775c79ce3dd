package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

// BudgetVsActual compares the project budget against cash-basis outflow only
// (paid expenses plus paid payables). Accrued amounts never count against
// budget: budgets track what has actually been spent.
type BudgetVsActual struct {
	Budget          decimal.Decimal `json:"budget"`
	Actual          decimal.Decimal `json:"actual"`
	Variance        decimal.Decimal `json:"variance"` // budget - actual; negative means over budget
	VariancePercent float64         `json:"variancePercent"`
}

// ProjectFinancialDetail is the full P&L rollup for one project.
type ProjectFinancialDetail struct {
	Project core.Project `json:"project"`

	// Revenue, net of applied credits. Expected spans all non-cancelled
	// invoices; paid is the cash-basis subset.
	ExpectedRevenue decimal.Decimal `json:"expectedRevenue"`
	PaidRevenue     decimal.Decimal `json:"paidRevenue"`

	// Operational expenses.
	TotalOpExpenses decimal.Decimal `json:"totalOpExpenses"`
	PaidOpExpenses  decimal.Decimal `json:"paidOpExpenses"`

	// Vendor liabilities.
	TotalPayables       decimal.Decimal `json:"totalPayables"`
	PaidPayables        decimal.Decimal `json:"paidPayables"`
	OutstandingPayables decimal.Decimal `json:"outstandingPayables"`

	// NetProfit is cash-basis, NetProfitExpected accrual-basis.
	NetProfit         decimal.Decimal `json:"netProfit"`
	NetProfitExpected decimal.Decimal `json:"netProfitExpected"`
	ProfitMargin      float64         `json:"profitMargin"`

	ProjectedRevenue  decimal.Decimal `json:"projectedRevenue"`
	ProjectedExpenses decimal.Decimal `json:"projectedExpenses"`

	BudgetVsActual   BudgetVsActual   `json:"budgetVsActual"`
	MonthlyBreakdown []MonthlyMetrics `json:"monthlyBreakdown"`
}

// ComputeProjectFinancials rolls up the ledger for one project with the
// monthly breakdown windowed to the current month. See
// ComputeProjectFinancialsAt.
func ComputeProjectFinancials(project core.Project, invoices []core.Invoice, expenses []core.Expense, payables []core.PayableInvoice, creditNotes []core.CreditNote) ProjectFinancialDetail {
	return ComputeProjectFinancialsAt(time.Now(), project, invoices, expenses, payables, creditNotes)
}

// ComputeProjectFinancialsAt computes the full financial detail for one
// project from the ledger, with ref fixing the monthly breakdown window.
// Records referencing other projects (or no project at all) are ignored.
func ComputeProjectFinancialsAt(ref time.Time, project core.Project, invoices []core.Invoice, expenses []core.Expense, payables []core.PayableInvoice, creditNotes []core.CreditNote) ProjectFinancialDetail {
	var (
		projInvoices []core.Invoice
		projExpenses []core.Expense
		projPayables []core.PayableInvoice
		projCredits  []core.CreditNote
	)
	for _, inv := range invoices {
		if inv.ProjectID == project.ID {
			projInvoices = append(projInvoices, inv)
		}
	}
	for _, exp := range expenses {
		if exp.ProjectID == project.ID {
			projExpenses = append(projExpenses, exp)
		}
	}
	for _, pay := range payables {
		if pay.ProjectID == project.ID {
			projPayables = append(projPayables, pay)
		}
	}
	for _, cn := range creditNotes {
		if cn.ProjectID == project.ID && cn.Status == core.CreditApplied {
			projCredits = append(projCredits, cn)
		}
	}

	credits := AllocateCredits(projCredits)

	detail := ProjectFinancialDetail{Project: project}

	for _, inv := range projInvoices {
		if inv.Status == core.InvoiceCancelled {
			continue
		}
		net := NetRevenue(inv, credits)
		detail.ExpectedRevenue = detail.ExpectedRevenue.Add(net)
		if inv.Status == core.InvoicePaid {
			detail.PaidRevenue = detail.PaidRevenue.Add(net)
		}
	}

	for _, exp := range projExpenses {
		if exp.Status == core.ExpenseCancelled {
			continue
		}
		detail.TotalOpExpenses = detail.TotalOpExpenses.Add(exp.Amount)
		if exp.Status == core.ExpensePaid {
			detail.PaidOpExpenses = detail.PaidOpExpenses.Add(exp.Amount)
		}
	}

	for _, pay := range projPayables {
		if pay.Status == core.PayableCancelled {
			continue
		}
		detail.TotalPayables = detail.TotalPayables.Add(pay.Amount)
		if pay.Status == core.PayablePaid {
			detail.PaidPayables = detail.PaidPayables.Add(pay.Amount)
		} else {
			detail.OutstandingPayables = detail.OutstandingPayables.Add(pay.Amount)
		}
	}

	cashOutflow := detail.PaidOpExpenses.Add(detail.PaidPayables)
	expectedOutflow := detail.TotalOpExpenses.Add(detail.TotalPayables)

	detail.NetProfit = detail.PaidRevenue.Sub(cashOutflow)
	detail.NetProfitExpected = detail.ExpectedRevenue.Sub(expectedOutflow)
	detail.ProfitMargin = marginPercent(detail.NetProfit, detail.PaidRevenue)

	detail.ProjectedRevenue = detail.ExpectedRevenue
	detail.ProjectedExpenses = expectedOutflow

	variance := project.Budget.Sub(cashOutflow)
	variancePercent := 0.0
	if project.Budget.IsPositive() {
		variancePercent = variance.InexactFloat64() / project.Budget.InexactFloat64() * 100
	}
	detail.BudgetVsActual = BudgetVsActual{
		Budget:          project.Budget,
		Actual:          cashOutflow,
		Variance:        variance,
		VariancePercent: variancePercent,
	}

	detail.MonthlyBreakdown = ComputeMonthlyMetricsAt(ref, projInvoices, projExpenses, projPayables, projCredits, DefaultWindowMonths)

	return detail
}
