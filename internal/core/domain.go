package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
	InvoicePending   InvoiceStatus = "pending"
)

const (
	ExpensePaid      ExpenseStatus = "paid"
	ExpensePending   ExpenseStatus = "pending"
	ExpenseCancelled ExpenseStatus = "cancelled"
)

const (
	ExpenseFixed    ExpenseType = "fixed"
	ExpenseVariable ExpenseType = "variable"
)

const (
	PayableDraft     PayableStatus = "draft"
	PayableReceived  PayableStatus = "received"
	PayablePaid      PayableStatus = "paid"
	PayableOverdue   PayableStatus = "overdue"
	PayableCancelled PayableStatus = "cancelled"
)

const (
	CreditPending CreditStatus = "pending"
	CreditApplied CreditStatus = "applied"
	CreditVoid    CreditStatus = "void"
)

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectArchived  ProjectStatus = "archived"
)

type (
	InvoiceStatus string
	ExpenseStatus string
	ExpenseType   string
	PayableStatus string
	CreditStatus  string
	ProjectStatus string

	// Invoice is money owed to us by a client. Only paid invoices count
	// toward recognized revenue.
	Invoice struct {
		ID         string          `json:"id"`
		ProjectID  string          `json:"projectId"`
		ClientName string          `json:"clientName"`
		Amount     decimal.Decimal `json:"amount"`
		Date       string          `json:"date"` // YYYY-MM-DD
		Status     InvoiceStatus   `json:"status"`
	}

	// Expense is an operational cost. Only paid expenses count as cash outflow.
	Expense struct {
		ID        string          `json:"id"`
		ProjectID string          `json:"projectId"`
		Category  string          `json:"category"`
		Amount    decimal.Decimal `json:"amount"`
		Date      string          `json:"date"`
		Type      ExpenseType     `json:"type"`
		Status    ExpenseStatus   `json:"status"`
	}

	// PayableInvoice is a bill owed to a vendor. ProjectID may be empty
	// for bills not assigned to any project.
	PayableInvoice struct {
		ID         string          `json:"id"`
		ProjectID  string          `json:"projectId,omitempty"`
		VendorName string          `json:"vendorName"`
		Amount     decimal.Decimal `json:"amount"`
		Date       string          `json:"date"`
		DueDate    string          `json:"dueDate"`
		Status     PayableStatus   `json:"status"`
	}

	// CreditNote reduces the recognized revenue of its target invoice once
	// applied. Notes without an invoice id never enter revenue math.
	CreditNote struct {
		ID        string          `json:"id"`
		InvoiceID string          `json:"invoiceId,omitempty"`
		ProjectID string          `json:"projectId"`
		Amount    decimal.Decimal `json:"amount"`
		Reason    string          `json:"reason,omitempty"`
		Status    CreditStatus    `json:"status"`
	}

	Project struct {
		ID              string          `json:"id"`
		Name            string          `json:"name"`
		Budget          decimal.Decimal `json:"budget"`
		ExpectedRevenue decimal.Decimal `json:"expectedRevenue"`
		StartDate       string          `json:"startDate"`
		EndDate         string          `json:"endDate,omitempty"`
		Status          ProjectStatus   `json:"status"`
	}

	// Snapshot is one tenant's ledger as handed to the engine. It is passed
	// by value and never mutated by computations.
	Snapshot struct {
		Invoices    []Invoice
		Expenses    []Expense
		Payables    []PayableInvoice
		CreditNotes []CreditNote
		Projects    []Project
	}
)

var (
	ErrInvalidAmount = errors.New("amount must not be negative")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidStatus = errors.New("invalid status")
	ErrEmptyName     = errors.New("empty name")
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled, InvoicePending:
		return true
	}
	return false
}

func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpensePaid, ExpensePending, ExpenseCancelled:
		return true
	}
	return false
}

func (t ExpenseType) Valid() bool {
	return t == ExpenseFixed || t == ExpenseVariable
}

func (s PayableStatus) Valid() bool {
	switch s {
	case PayableDraft, PayableReceived, PayablePaid, PayableOverdue, PayableCancelled:
		return true
	}
	return false
}

func (s CreditStatus) Valid() bool {
	switch s {
	case CreditPending, CreditApplied, CreditVoid:
		return true
	}
	return false
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold, ProjectArchived:
		return true
	}
	return false
}

// ParseDate parses a ledger date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func (i Invoice) Validate() error {
	if i.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !i.Status.Valid() {
		return ErrInvalidStatus
	}
	if strings.TrimSpace(i.ClientName) == "" {
		return ErrEmptyName
	}
	if _, err := ParseDate(i.Date); err != nil {
		return err
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if !e.Type.Valid() {
		return ErrInvalidStatus
	}
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	return nil
}

func (p PayableInvoice) Validate() error {
	if p.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if strings.TrimSpace(p.VendorName) == "" {
		return ErrEmptyName
	}
	if _, err := ParseDate(p.Date); err != nil {
		return err
	}
	return nil
}

func (c CreditNote) Validate() error {
	if c.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Budget.IsNegative() {
		return ErrInvalidAmount
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if _, err := ParseDate(p.StartDate); err != nil {
		return err
	}
	return nil
}
