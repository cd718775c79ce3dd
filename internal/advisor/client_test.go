package advisor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/engine"
)

func testDetail() engine.ProjectFinancialDetail {
	return engine.ProjectFinancialDetail{
		Project: core.Project{
			ID:     "proj-1",
			Name:   "Website Redesign",
			Status: core.ProjectActive,
		},
		ExpectedRevenue: decimal.NewFromInt(7000),
		PaidRevenue:     decimal.NewFromInt(5000),
		PaidOpExpenses:  decimal.NewFromInt(1000),
		NetProfit:       decimal.NewFromInt(4000),
		ProfitMargin:    80,
		BudgetVsActual: engine.BudgetVsActual{
			Budget:          decimal.NewFromInt(2000),
			Actual:          decimal.NewFromInt(1000),
			Variance:        decimal.NewFromInt(1000),
			VariancePercent: 50,
		},
	}
}

const completionBody = `{
	"id": "cmpl-1",
	"object": "chat.completion",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "Collect the outstanding invoices first."}, "finish_reason": "stop"}]
}`

const rateLimitBody = `{"error": {"message": "rate limit exceeded", "type": "tokens", "code": "rate_limit_exceeded"}}`

// newAdvisorServer serves chat completions, rate limiting every token in the
// limited set and recording the bearer tokens it sees.
func newAdvisorServer(t *testing.T, limited map[string]bool, seen *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		*seen = append(*seen, token)

		w.Header().Set("Content-Type", "application/json")
		if limited[token] {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(rateLimitBody))
			return
		}
		w.Write([]byte(completionBody))
	}))
}

func TestNewClientRequiresTokens(t *testing.T) {
	if _, err := NewClient("", "gpt-4o-mini", nil); !errors.Is(err, ErrNoTokens) {
		t.Errorf("NewClient() error = %v, want ErrNoTokens", err)
	}
}

func TestAdviseSuccess(t *testing.T) {
	var seen []string
	srv := newAdvisorServer(t, nil, &seen)
	defer srv.Close()

	client, err := NewClient(srv.URL+"/v1", "gpt-4o-mini", []string{"tok-a"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	advice, err := client.Advise(context.Background(), testDetail())
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if advice != "Collect the outstanding invoices first." {
		t.Errorf("Advise() = %q", advice)
	}
	if len(seen) != 1 || seen[0] != "tok-a" {
		t.Errorf("server saw tokens %v, want [tok-a]", seen)
	}
}

func TestAdviseRotatesOnRateLimit(t *testing.T) {
	var seen []string
	srv := newAdvisorServer(t, map[string]bool{"tok-a": true}, &seen)
	defer srv.Close()

	client, err := NewClient(srv.URL+"/v1", "gpt-4o-mini", []string{"tok-a", "tok-b"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	advice, err := client.Advise(context.Background(), testDetail())
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if advice == "" {
		t.Error("Advise() returned empty advice")
	}
	if len(seen) != 2 || seen[0] != "tok-a" || seen[1] != "tok-b" {
		t.Errorf("server saw tokens %v, want [tok-a tok-b]", seen)
	}

	// The pool stays on the working token for the next request.
	seen = seen[:0]
	if _, err := client.Advise(context.Background(), testDetail()); err != nil {
		t.Fatalf("Advise() second call error = %v", err)
	}
	if len(seen) != 1 || seen[0] != "tok-b" {
		t.Errorf("server saw tokens %v, want [tok-b]", seen)
	}
}

func TestAdviseAllTokensRateLimited(t *testing.T) {
	var seen []string
	srv := newAdvisorServer(t, map[string]bool{"tok-a": true, "tok-b": true}, &seen)
	defer srv.Close()

	client, err := NewClient(srv.URL+"/v1", "gpt-4o-mini", []string{"tok-a", "tok-b"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Advise(context.Background(), testDetail())
	if err == nil {
		t.Fatal("Advise() error = nil, want rate limit error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Advise() error = %v, want mention of rate limiting", err)
	}
	if len(seen) != 2 {
		t.Errorf("server saw %d requests, want 2", len(seen))
	}
}

func TestBuildPromptMentionsKeyFigures(t *testing.T) {
	detail := testDetail()
	detail.MonthlyBreakdown = []engine.MonthlyMetrics{
		{Month: "2025-06", Revenue: decimal.NewFromInt(5000), Expenses: decimal.NewFromInt(1000), NetProfit: decimal.NewFromInt(4000)},
	}

	prompt := buildPrompt(detail)
	for _, want := range []string{"Website Redesign", "5000.00", "80.0%", "2025-06"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
