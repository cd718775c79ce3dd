// Package export pushes computed monthly metrics to a Google Sheet so the
// numbers can be shared outside the service.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finboard/internal/engine"
)

type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsExporter creates an exporter authenticated with service account
// credentials.
func NewSheetsExporter(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// ExportMonthlyMetrics replaces the sheet contents with the given metrics
// window and returns the written range.
func (e *SheetsExporter) ExportMonthlyMetrics(ctx context.Context, metrics []engine.MonthlyMetrics) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:H", e.sheetName)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", e.sheetName, err)
	}

	rows := metricsRows(metrics)
	writeRange := fmt.Sprintf("%s!A1:H%d", e.sheetName, len(rows))
	vr := &gsheet.ValueRange{Values: rows}

	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update sheet %s: %w", e.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported monthly metrics",
		"spreadsheet_id", e.spreadsheetID,
		"sheet", e.sheetName,
		"months", len(metrics))

	return writeRange, nil
}

// metricsRows renders the header plus one row per month. Change columns are
// left blank for the first month of the window, matching the engine's nil
// change fields.
func metricsRows(metrics []engine.MonthlyMetrics) [][]any {
	rows := make([][]any, 0, len(metrics)+1)
	rows = append(rows, []any{
		"Month", "Revenue", "Expenses", "Net Profit", "Margin %",
		"Revenue Change %", "Expenses Change %", "Profit Change %",
	})

	for _, m := range metrics {
		rows = append(rows, []any{
			m.Month,
			m.Revenue.StringFixed(2),
			m.Expenses.StringFixed(2),
			m.NetProfit.StringFixed(2),
			fmt.Sprintf("%.1f", m.ProfitMargin),
			changeCell(m.RevenueChange),
			changeCell(m.ExpensesChange),
			changeCell(m.ProfitChange),
		})
	}

	return rows
}

func changeCell(v *float64) any {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}
