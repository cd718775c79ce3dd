package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/engine"
)

// handleMonthlyMetrics computes the month-by-month rollup across the whole
// ledger. The window length is set by the months query parameter.
func (s *Server) handleMonthlyMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	metrics := engine.ComputeMonthlyMetrics(snap.Invoices, snap.Expenses, snap.Payables, snap.CreditNotes, parseWindowMonths(r))
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleExportMetrics(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics export not configured")
		return
	}

	snap, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	metrics := engine.ComputeMonthlyMetrics(snap.Invoices, snap.Expenses, snap.Payables, snap.CreditNotes, parseWindowMonths(r))
	ref, err := s.exporter.ExportMonthlyMetrics(r.Context(), metrics)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"range":  ref,
		"months": len(metrics),
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if projects == nil {
		projects = []core.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p core.Project
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreateProject(r.Context(), p)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// projectDetail loads one project's ledger and rolls it up.
func (s *Server) projectDetail(r *http.Request, id string) (engine.ProjectFinancialDetail, error) {
	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		return engine.ProjectFinancialDetail{}, err
	}
	snap, err := s.store.LoadProjectSnapshot(r.Context(), id)
	if err != nil {
		return engine.ProjectFinancialDetail{}, err
	}
	return engine.ComputeProjectFinancials(project, snap.Invoices, snap.Expenses, snap.Payables, snap.CreditNotes), nil
}

func (s *Server) handleProjectFinancials(w http.ResponseWriter, r *http.Request) {
	detail, err := s.projectDetail(r, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleProjectHealth(w http.ResponseWriter, r *http.Request) {
	detail, err := s.projectDetail(r, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.ComputeHealthScore(detail))
}

func (s *Server) handleProjectWarnings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := s.projectDetail(r, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	warnings := engine.DetectEarlyWarnings(detail)
	if warnings == nil {
		warnings = []engine.Warning{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projectId": id,
		"warnings":  warnings,
	})
}

func (s *Server) handleProjectInsights(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := s.projectDetail(r, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	insights := engine.GenerateAutoInsights(detail.MonthlyBreakdown)
	if insights == nil {
		insights = []engine.AutoInsight{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projectId": id,
		"insights":  insights,
	})
}

func (s *Server) handleProjectAdvice(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "advisor not configured")
		return
	}

	id := r.PathValue("id")
	detail, err := s.projectDetail(r, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	advice, err := s.advisor.Advise(r.Context(), detail)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"projectId": id,
		"advice":    advice,
	})
}

type scenarioRequest struct {
	// When projectId is set, the project's cash-basis figures are used as
	// the baseline and the explicit figures below are ignored.
	ProjectID string `json:"projectId,omitempty"`

	Revenue      decimal.Decimal `json:"revenue"`
	Expenses     decimal.Decimal `json:"expenses"`
	NetProfit    decimal.Decimal `json:"netProfit"`
	ProfitMargin float64         `json:"profitMargin"`

	CostChangePercent    float64 `json:"costChangePercent"`
	PricingChangePercent float64 `json:"pricingChangePercent"`
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	revenue, expenses, profit, margin := req.Revenue, req.Expenses, req.NetProfit, req.ProfitMargin
	if req.ProjectID != "" {
		detail, err := s.projectDetail(r, req.ProjectID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		revenue = detail.PaidRevenue
		expenses = detail.PaidOpExpenses.Add(detail.PaidPayables)
		profit = detail.NetProfit
		margin = detail.ProfitMargin
	}

	result := engine.SimulateScenario(revenue, expenses, profit, margin, req.CostChangePercent, req.PricingChangePercent)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var inv core.Invoice
	if err := decodeJSON(w, r, &inv); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreateInvoice(r.Context(), inv)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var exp core.Expense
	if err := decodeJSON(w, r, &exp); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreateExpense(r.Context(), exp)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleCreatePayable(w http.ResponseWriter, r *http.Request) {
	var pay core.PayableInvoice
	if err := decodeJSON(w, r, &pay); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreatePayable(r.Context(), pay)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleCreateCreditNote(w http.ResponseWriter, r *http.Request) {
	var cn core.CreditNote
	if err := decodeJSON(w, r, &cn); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreateCreditNote(r.Context(), cn)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
