// Package advisor turns a project's financial rollup into a short piece of
// narrative advice via an OpenAI-compatible chat endpoint. A pool of API
// tokens is rotated round-robin whenever the active one is rate limited.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"finboard/internal/engine"
)

const systemPrompt = "You are a financial analyst for a small services business. " +
	"Given a project's financial summary, reply with three to five short, concrete " +
	"recommendations. Be direct and avoid generic advice."

var ErrNoTokens = errors.New("no API tokens configured")

type Client struct {
	baseURL string
	model   string
	tokens  []string

	mu     sync.Mutex
	cursor int
}

// NewClient builds an advisor over the given token pool. baseURL may be
// empty, in which case the upstream default endpoint is used.
func NewClient(baseURL, model string, tokens []string) (*Client, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		tokens:  tokens,
	}, nil
}

// Advise requests advice for one project rollup. On a rate-limited token it
// rotates to the next one and retries, giving up once every token in the
// pool has been tried.
func (c *Client) Advise(ctx context.Context, detail engine.ProjectFinancialDetail) (string, error) {
	prompt := buildPrompt(detail)

	var lastErr error
	for attempt := 0; attempt < len(c.tokens); attempt++ {
		resp, err := c.api().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.4,
		})
		if err != nil {
			if isRateLimited(err) {
				slog.WarnContext(ctx, "API token rate limited, rotating",
					"attempt", attempt+1,
					"pool_size", len(c.tokens))
				c.rotate()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty completion response")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("all %d API tokens rate limited: %w", len(c.tokens), lastErr)
}

func (c *Client) api() *openai.Client {
	cfg := openai.DefaultConfig(c.currentToken())
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[c.cursor]
}

func (c *Client) rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = (c.cursor + 1) % len(c.tokens)
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

func buildPrompt(detail engine.ProjectFinancialDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s (status: %s)\n", detail.Project.Name, detail.Project.Status)
	fmt.Fprintf(&b, "Budget: %s, spent so far: %s (variance %.1f%%)\n",
		detail.BudgetVsActual.Budget.StringFixed(2),
		detail.BudgetVsActual.Actual.StringFixed(2),
		detail.BudgetVsActual.VariancePercent)
	fmt.Fprintf(&b, "Revenue: %s collected of %s expected\n",
		detail.PaidRevenue.StringFixed(2), detail.ExpectedRevenue.StringFixed(2))
	fmt.Fprintf(&b, "Expenses paid: %s, outstanding payables: %s\n",
		detail.PaidOpExpenses.Add(detail.PaidPayables).StringFixed(2),
		detail.OutstandingPayables.StringFixed(2))
	fmt.Fprintf(&b, "Net profit: %s (margin %.1f%%)\n",
		detail.NetProfit.StringFixed(2), detail.ProfitMargin)

	if n := len(detail.MonthlyBreakdown); n > 0 {
		last := detail.MonthlyBreakdown[n-1]
		fmt.Fprintf(&b, "Latest month %s: revenue %s, expenses %s, profit %s\n",
			last.Month, last.Revenue.StringFixed(2), last.Expenses.StringFixed(2), last.NetProfit.StringFixed(2))
	}

	b.WriteString("What should we do to improve this project's financial position?")
	return b.String()
}
