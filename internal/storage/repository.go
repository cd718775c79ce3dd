package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finboard/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository stores the ledger in SQLite and reassembles it into snapshots
// for the metrics engine.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadSnapshot reads the whole ledger. Rows with malformed amounts are
// skipped with a warning so one bad row cannot poison the aggregation.
func (r *Repository) LoadSnapshot(ctx context.Context) (core.Snapshot, error) {
	return r.loadSnapshot(ctx, "")
}

// LoadProjectSnapshot reads the ledger scoped to one project id. Payables
// and credit notes without a project assignment are excluded, matching the
// engine's project filter semantics.
func (r *Repository) LoadProjectSnapshot(ctx context.Context, projectID string) (core.Snapshot, error) {
	return r.loadSnapshot(ctx, projectID)
}

func (r *Repository) loadSnapshot(ctx context.Context, projectID string) (core.Snapshot, error) {
	var snap core.Snapshot
	var err error

	if snap.Invoices, err = r.loadInvoices(ctx, projectID); err != nil {
		return core.Snapshot{}, fmt.Errorf("load invoices: %w", err)
	}
	if snap.Expenses, err = r.loadExpenses(ctx, projectID); err != nil {
		return core.Snapshot{}, fmt.Errorf("load expenses: %w", err)
	}
	if snap.Payables, err = r.loadPayables(ctx, projectID); err != nil {
		return core.Snapshot{}, fmt.Errorf("load payables: %w", err)
	}
	if snap.CreditNotes, err = r.loadCreditNotes(ctx, projectID); err != nil {
		return core.Snapshot{}, fmt.Errorf("load credit notes: %w", err)
	}
	if snap.Projects, err = r.ListProjects(ctx); err != nil {
		return core.Snapshot{}, fmt.Errorf("load projects: %w", err)
	}

	return snap, nil
}

func (r *Repository) loadInvoices(ctx context.Context, projectID string) ([]core.Invoice, error) {
	query := `SELECT id, project_id, client_name, amount, date, status FROM invoices`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []core.Invoice
	for rows.Next() {
		var inv core.Invoice
		var amount string
		if err := rows.Scan(&inv.ID, &inv.ProjectID, &inv.ClientName, &amount, &inv.Date, &inv.Status); err != nil {
			return nil, err
		}
		d, ok := parseAmount(amount, "invoice", inv.ID)
		if !ok {
			continue
		}
		inv.Amount = d
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *Repository) loadExpenses(ctx context.Context, projectID string) ([]core.Expense, error) {
	query := `SELECT id, project_id, category, amount, date, type, status FROM expenses`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var exp core.Expense
		var amount string
		if err := rows.Scan(&exp.ID, &exp.ProjectID, &exp.Category, &amount, &exp.Date, &exp.Type, &exp.Status); err != nil {
			return nil, err
		}
		d, ok := parseAmount(amount, "expense", exp.ID)
		if !ok {
			continue
		}
		exp.Amount = d
		expenses = append(expenses, exp)
	}
	return expenses, rows.Err()
}

func (r *Repository) loadPayables(ctx context.Context, projectID string) ([]core.PayableInvoice, error) {
	query := `SELECT id, project_id, vendor_name, amount, date, due_date, status FROM payable_invoices`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payables []core.PayableInvoice
	for rows.Next() {
		var pay core.PayableInvoice
		var amount string
		if err := rows.Scan(&pay.ID, &pay.ProjectID, &pay.VendorName, &amount, &pay.Date, &pay.DueDate, &pay.Status); err != nil {
			return nil, err
		}
		d, ok := parseAmount(amount, "payable", pay.ID)
		if !ok {
			continue
		}
		pay.Amount = d
		payables = append(payables, pay)
	}
	return payables, rows.Err()
}

func (r *Repository) loadCreditNotes(ctx context.Context, projectID string) ([]core.CreditNote, error) {
	query := `SELECT id, invoice_id, project_id, amount, reason, status FROM credit_notes`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []core.CreditNote
	for rows.Next() {
		var cn core.CreditNote
		var amount string
		if err := rows.Scan(&cn.ID, &cn.InvoiceID, &cn.ProjectID, &amount, &cn.Reason, &cn.Status); err != nil {
			return nil, err
		}
		d, ok := parseAmount(amount, "credit note", cn.ID)
		if !ok {
			continue
		}
		cn.Amount = d
		notes = append(notes, cn)
	}
	return notes, rows.Err()
}

func (r *Repository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, budget, expected_revenue, start_date, end_date, status FROM projects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		var p core.Project
		var budget, expected string
		if err := rows.Scan(&p.ID, &p.Name, &budget, &expected, &p.StartDate, &p.EndDate, &p.Status); err != nil {
			return nil, err
		}
		b, ok := parseAmount(budget, "project budget", p.ID)
		if !ok {
			continue
		}
		p.Budget = b
		if e, ok := parseAmount(expected, "project expected revenue", p.ID); ok {
			p.ExpectedRevenue = e
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *Repository) GetProject(ctx context.Context, id string) (core.Project, error) {
	var p core.Project
	var budget, expected string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, budget, expected_revenue, start_date, end_date, status FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &budget, &expected, &p.StartDate, &p.EndDate, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, ErrNotFound
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}

	b, ok := parseAmount(budget, "project budget", p.ID)
	if !ok {
		return core.Project{}, fmt.Errorf("project %s has malformed budget %q", id, budget)
	}
	p.Budget = b
	if e, ok := parseAmount(expected, "project expected revenue", p.ID); ok {
		p.ExpectedRevenue = e
	}
	return p, nil
}

func (r *Repository) CreateProject(ctx context.Context, p core.Project) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("validate project: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, budget, expected_revenue, start_date, end_date, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Budget.String(), p.ExpectedRevenue.String(), p.StartDate, p.EndDate, p.Status)
	if err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}

	slog.InfoContext(ctx, "Project saved", "id", p.ID, "name", p.Name, "budget", p.Budget.String())
	return p.ID, nil
}

func (r *Repository) CreateInvoice(ctx context.Context, inv core.Invoice) (string, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if err := inv.Validate(); err != nil {
		return "", fmt.Errorf("validate invoice: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (id, project_id, client_name, amount, date, status) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ProjectID, inv.ClientName, inv.Amount.String(), inv.Date, inv.Status)
	if err != nil {
		return "", fmt.Errorf("insert invoice: %w", err)
	}

	slog.InfoContext(ctx, "Invoice saved", "id", inv.ID, "project_id", inv.ProjectID, "amount", inv.Amount.String(), "status", inv.Status)
	return inv.ID, nil
}

func (r *Repository) CreateExpense(ctx context.Context, exp core.Expense) (string, error) {
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	if err := exp.Validate(); err != nil {
		return "", fmt.Errorf("validate expense: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, project_id, category, amount, date, type, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.ProjectID, exp.Category, exp.Amount.String(), exp.Date, exp.Type, exp.Status)
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved", "id", exp.ID, "project_id", exp.ProjectID, "amount", exp.Amount.String())
	return exp.ID, nil
}

func (r *Repository) CreatePayable(ctx context.Context, pay core.PayableInvoice) (string, error) {
	if pay.ID == "" {
		pay.ID = uuid.NewString()
	}
	if err := pay.Validate(); err != nil {
		return "", fmt.Errorf("validate payable: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payable_invoices (id, project_id, vendor_name, amount, date, due_date, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pay.ID, pay.ProjectID, pay.VendorName, pay.Amount.String(), pay.Date, pay.DueDate, pay.Status)
	if err != nil {
		return "", fmt.Errorf("insert payable: %w", err)
	}

	slog.InfoContext(ctx, "Payable saved", "id", pay.ID, "vendor", pay.VendorName, "amount", pay.Amount.String())
	return pay.ID, nil
}

func (r *Repository) CreateCreditNote(ctx context.Context, cn core.CreditNote) (string, error) {
	if cn.ID == "" {
		cn.ID = uuid.NewString()
	}
	if err := cn.Validate(); err != nil {
		return "", fmt.Errorf("validate credit note: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_notes (id, invoice_id, project_id, amount, reason, status) VALUES (?, ?, ?, ?, ?, ?)`,
		cn.ID, cn.InvoiceID, cn.ProjectID, cn.Amount.String(), cn.Reason, cn.Status)
	if err != nil {
		return "", fmt.Errorf("insert credit note: %w", err)
	}

	slog.InfoContext(ctx, "Credit note saved", "id", cn.ID, "invoice_id", cn.InvoiceID, "amount", cn.Amount.String())
	return cn.ID, nil
}

// parseAmount parses a stored decimal amount. Malformed values are logged
// and reported as not ok so callers skip the row instead of failing the
// whole snapshot load.
func parseAmount(s, kind, id string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		slog.Warn("Skipping row with malformed amount", "kind", kind, "id", id, "amount", s)
		return decimal.Decimal{}, false
	}
	return d, true
}
