package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/engine"
	"finboard/internal/storage"
)

type fakeStore struct {
	projects map[string]core.Project
	snaps    map[string]core.Snapshot
	snapshot core.Snapshot
	failing  bool
}

var errStore = errors.New("store failure")

func (f *fakeStore) LoadSnapshot(ctx context.Context) (core.Snapshot, error) {
	if f.failing {
		return core.Snapshot{}, errStore
	}
	return f.snapshot, nil
}

func (f *fakeStore) LoadProjectSnapshot(ctx context.Context, projectID string) (core.Snapshot, error) {
	if f.failing {
		return core.Snapshot{}, errStore
	}
	return f.snaps[projectID], nil
}

func (f *fakeStore) ListProjects(ctx context.Context) ([]core.Project, error) {
	if f.failing {
		return nil, errStore
	}
	var out []core.Project
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) GetProject(ctx context.Context, id string) (core.Project, error) {
	if f.failing {
		return core.Project{}, errStore
	}
	p, ok := f.projects[id]
	if !ok {
		return core.Project{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) CreateProject(ctx context.Context, p core.Project) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	return "new-project", nil
}

func (f *fakeStore) CreateInvoice(ctx context.Context, inv core.Invoice) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", err
	}
	return "new-invoice", nil
}

func (f *fakeStore) CreateExpense(ctx context.Context, exp core.Expense) (string, error) {
	if err := exp.Validate(); err != nil {
		return "", err
	}
	return "new-expense", nil
}

func (f *fakeStore) CreatePayable(ctx context.Context, pay core.PayableInvoice) (string, error) {
	if err := pay.Validate(); err != nil {
		return "", err
	}
	return "new-payable", nil
}

func (f *fakeStore) CreateCreditNote(ctx context.Context, cn core.CreditNote) (string, error) {
	if err := cn.Validate(); err != nil {
		return "", err
	}
	return "new-credit-note", nil
}

type fakeAdvisor struct {
	advice string
	err    error
}

func (f *fakeAdvisor) Advise(ctx context.Context, detail engine.ProjectFinancialDetail) (string, error) {
	return f.advice, f.err
}

type fakeExporter struct {
	ref string
	err error
}

func (f *fakeExporter) ExportMonthlyMetrics(ctx context.Context, metrics []engine.MonthlyMetrics) (string, error) {
	return f.ref, f.err
}

func testStore() *fakeStore {
	project := core.Project{
		ID:        "proj-1",
		Name:      "Website Redesign",
		Budget:    decimal.NewFromInt(2000),
		StartDate: "2025-01-01",
		Status:    core.ProjectActive,
	}
	snap := core.Snapshot{
		Invoices: []core.Invoice{
			{ID: "i1", ProjectID: "proj-1", ClientName: "Acme", Amount: decimal.NewFromInt(5000), Date: "2025-06-01", Status: core.InvoicePaid},
			{ID: "i2", ProjectID: "proj-1", ClientName: "Acme", Amount: decimal.NewFromInt(2000), Date: "2025-06-15", Status: core.InvoiceSent},
		},
		Expenses: []core.Expense{
			{ID: "e1", ProjectID: "proj-1", Category: "Hosting", Amount: decimal.NewFromInt(1000), Date: "2025-06-05", Type: core.ExpenseVariable, Status: core.ExpensePaid},
		},
	}
	return &fakeStore{
		projects: map[string]core.Project{"proj-1": project},
		snaps:    map[string]core.Snapshot{"proj-1": snap},
		snapshot: snap,
	}
}

func doRequest(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	if rec := doRequest(t, s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /readyz = %d, want 200", rec.Code)
	}
}

func TestReadyFailsWhenStoreDown(t *testing.T) {
	store := testStore()
	store.failing = true
	s := NewServer(":0", store, nil, nil)
	defer s.rateLimiter.stop()

	if rec := doRequest(t, s, http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz = %d, want 503", rec.Code)
	}
}

func TestMonthlyMetrics(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	rec := doRequest(t, s, http.MethodGet, "/api/metrics/monthly?months=4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/metrics/monthly = %d, want 200: %s", rec.Code, rec.Body)
	}

	var metrics []engine.MonthlyMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(metrics) != 4 {
		t.Errorf("got %d months, want 4", len(metrics))
	}
}

func TestProjectFinancials(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	rec := doRequest(t, s, http.MethodGet, "/api/projects/proj-1/financials", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET financials = %d, want 200: %s", rec.Code, rec.Body)
	}

	var detail engine.ProjectFinancialDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !detail.PaidRevenue.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("paidRevenue = %s, want 5000", detail.PaidRevenue)
	}
	if !detail.ExpectedRevenue.Equal(decimal.NewFromInt(7000)) {
		t.Errorf("expectedRevenue = %s, want 7000", detail.ExpectedRevenue)
	}
	if !detail.NetProfit.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("netProfit = %s, want 4000", detail.NetProfit)
	}
}

func TestProjectNotFound(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	for _, target := range []string{
		"/api/projects/nope/financials",
		"/api/projects/nope/health",
		"/api/projects/nope/warnings",
		"/api/projects/nope/insights",
	} {
		if rec := doRequest(t, s, http.MethodGet, target, nil); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, rec.Code)
		}
	}
}

func TestProjectHealthAndWarnings(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	rec := doRequest(t, s, http.MethodGet, "/api/projects/proj-1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET health = %d, want 200: %s", rec.Code, rec.Body)
	}
	var health engine.HealthScore
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if health.Score < 0 || health.Score > 100 {
		t.Errorf("score = %d, want within [0,100]", health.Score)
	}
	if health.Rating == "" {
		t.Error("rating is empty")
	}

	rec = doRequest(t, s, http.MethodGet, "/api/projects/proj-1/warnings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET warnings = %d, want 200: %s", rec.Code, rec.Body)
	}
	var warnResp struct {
		ProjectID string           `json:"projectId"`
		Warnings  []engine.Warning `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &warnResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if warnResp.ProjectID != "proj-1" {
		t.Errorf("projectId = %s, want proj-1", warnResp.ProjectID)
	}
	// The profitable test project should be warning-free.
	if len(warnResp.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnResp.Warnings)
	}
}

func TestCreateProject(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	rec := doRequest(t, s, http.MethodPost, "/api/projects", core.Project{
		Name:      "New Build",
		Budget:    decimal.NewFromInt(1000),
		StartDate: "2025-07-01",
		Status:    core.ProjectActive,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/projects = %d, want 201: %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != "new-project" {
		t.Errorf("id = %s, want new-project", resp["id"])
	}
}

func TestCreateProjectValidation(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	// Empty name fails domain validation.
	rec := doRequest(t, s, http.MethodPost, "/api/projects", core.Project{
		StartDate: "2025-07-01",
		Status:    core.ProjectActive,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST invalid project = %d, want 422: %s", rec.Code, rec.Body)
	}

	// Malformed JSON is a plain bad request.
	req := httptest.NewRequest(http.MethodPost, "/api/projects", bytes.NewBufferString("{not json"))
	rw := httptest.NewRecorder()
	s.Handler.ServeHTTP(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Errorf("POST malformed body = %d, want 400", rw.Code)
	}
}

func TestCreateLedgerRecords(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	tests := []struct {
		name   string
		target string
		body   any
		wantID string
	}{
		{
			name:   "invoice",
			target: "/api/invoices",
			body:   core.Invoice{ProjectID: "proj-1", ClientName: "Acme", Amount: decimal.NewFromInt(100), Date: "2025-06-20", Status: core.InvoiceDraft},
			wantID: "new-invoice",
		},
		{
			name:   "expense",
			target: "/api/expenses",
			body:   core.Expense{ProjectID: "proj-1", Category: "Travel", Amount: decimal.NewFromInt(50), Date: "2025-06-21", Type: core.ExpenseVariable, Status: core.ExpensePending},
			wantID: "new-expense",
		},
		{
			name:   "payable",
			target: "/api/payables",
			body:   core.PayableInvoice{ProjectID: "proj-1", VendorName: "Supplies Inc", Amount: decimal.NewFromInt(75), Date: "2025-06-22", DueDate: "2025-07-22", Status: core.PayableReceived},
			wantID: "new-payable",
		},
		{
			name:   "credit note",
			target: "/api/credit-notes",
			body:   core.CreditNote{InvoiceID: "i1", ProjectID: "proj-1", Amount: decimal.NewFromInt(25), Status: core.CreditPending},
			wantID: "new-credit-note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, tt.target, tt.body)
			if rec.Code != http.StatusCreated {
				t.Fatalf("POST %s = %d, want 201: %s", tt.target, rec.Code, rec.Body)
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["id"] != tt.wantID {
				t.Errorf("id = %s, want %s", resp["id"], tt.wantID)
			}
		})
	}
}

func TestScenarioWithExplicitFigures(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	rec := doRequest(t, s, http.MethodPost, "/api/scenario", map[string]any{
		"revenue":              5000,
		"expenses":             1000,
		"netProfit":            4000,
		"profitMargin":         80,
		"pricingChangePercent": 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/scenario = %d, want 200: %s", rec.Code, rec.Body)
	}

	var result engine.ScenarioResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.ProjectedProfit.Equal(decimal.NewFromInt(4500)) {
		t.Errorf("projectedProfit = %s, want 4500", result.ProjectedProfit)
	}
	if result.ChangePercent != 12.5 {
		t.Errorf("changePercent = %f, want 12.5", result.ChangePercent)
	}
}

func TestScenarioFromProject(t *testing.T) {
	s := NewServer(":0", testStore(), nil, nil)
	defer s.rateLimiter.stop()

	rec := doRequest(t, s, http.MethodPost, "/api/scenario", map[string]any{
		"projectId":         "proj-1",
		"costChangePercent": -10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/scenario = %d, want 200: %s", rec.Code, rec.Body)
	}

	var result engine.ScenarioResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Project baseline: revenue 5000, expenses 1000, profit 4000.
	// Cutting costs 10% projects 5000 - 900 = 4100.
	if !result.ProjectedProfit.Equal(decimal.NewFromInt(4100)) {
		t.Errorf("projectedProfit = %s, want 4100", result.ProjectedProfit)
	}
}

func TestAdviceEndpoint(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := NewServer(":0", testStore(), nil, nil)
		defer s.rateLimiter.stop()

		rec := doRequest(t, s, http.MethodPost, "/api/projects/proj-1/advice", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("POST advice = %d, want 503", rec.Code)
		}
	})

	t.Run("configured", func(t *testing.T) {
		s := NewServer(":0", testStore(), &fakeAdvisor{advice: "Collect the sent invoice."}, nil)
		defer s.rateLimiter.stop()

		rec := doRequest(t, s, http.MethodPost, "/api/projects/proj-1/advice", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST advice = %d, want 200: %s", rec.Code, rec.Body)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp["advice"] != "Collect the sent invoice." {
			t.Errorf("advice = %q", resp["advice"])
		}
	})
}

func TestExportEndpoint(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := NewServer(":0", testStore(), nil, nil)
		defer s.rateLimiter.stop()

		rec := doRequest(t, s, http.MethodPost, "/api/metrics/export", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("POST export = %d, want 503", rec.Code)
		}
	})

	t.Run("configured", func(t *testing.T) {
		s := NewServer(":0", testStore(), nil, &fakeExporter{ref: "Metrics!A1:H7"})
		defer s.rateLimiter.stop()

		rec := doRequest(t, s, http.MethodPost, "/api/metrics/export", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST export = %d, want 200: %s", rec.Code, rec.Body)
		}
		var resp struct {
			Range  string `json:"range"`
			Months int    `json:"months"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Range != "Metrics!A1:H7" {
			t.Errorf("range = %s", resp.Range)
		}
		if resp.Months != engine.DefaultWindowMonths {
			t.Errorf("months = %d, want %d", resp.Months, engine.DefaultWindowMonths)
		}
	})
}
