package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreateInvoiceRequest is the draft handed to Create. CustomerName and
// BankInfo are snapshot fields; when empty they are resolved from the
// customer's billing profile.
type CreateInvoiceRequest struct {
	TenantID     snowflake.ID `json:"tenant_id"`
	CustomerID   snowflake.ID `json:"customer_id"`
	CustomerName string       `json:"customer_name,omitempty"`
	IssueDate    time.Time    `json:"issue_date"`
	DueDate      time.Time    `json:"due_date"`
	PeriodStart  time.Time    `json:"period_start"`
	PeriodEnd    time.Time    `json:"period_end"`
	Items        []ItemDraft  `json:"items"`
	Notes        *string      `json:"notes,omitempty"`
	BankInfo     *BankInfo    `json:"bank_info,omitempty"`
}

// UpdateInvoiceRequest is a partial update; nil fields are left untouched.
// Replacing items recomputes every amount.
type UpdateInvoiceRequest struct {
	IssueDate   *time.Time   `json:"issue_date,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	PeriodStart *time.Time   `json:"period_start,omitempty"`
	PeriodEnd   *time.Time   `json:"period_end,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	Items       *[]ItemDraft `json:"items,omitempty"`
}

// Service is the invoice lifecycle surface exposed to HTTP, CLI and batch.
type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateInvoiceRequest) (Invoice, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, to InvoiceStatus) (Invoice, error)
	Cancel(ctx context.Context, id snowflake.ID) (Invoice, error)
	MarkAsPaid(ctx context.Context, id snowflake.ID) (Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (Invoice, error)
	List(ctx context.Context, filter FilterOptions) ([]Invoice, error)
}

// Repository is the persistence surface behind the service and the batch
// processor. Create owns invoice-number assignment. SaveStatus only applies
// the write while the stored status still equals from, so a writer holding a
// stale copy cannot clobber a newer transition.
type Repository interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateInvoiceRequest) (Invoice, error)
	SaveStatus(ctx context.Context, inv Invoice, from InvoiceStatus) error
	FindByID(ctx context.Context, id snowflake.ID) (Invoice, error)
	List(ctx context.Context, filter FilterOptions) ([]Invoice, error)
	ListByStatus(ctx context.Context, status InvoiceStatus) ([]Invoice, error)
	ListDueBefore(ctx context.Context, status InvoiceStatus, before time.Time) ([]Invoice, error)
	ExistsForPeriod(ctx context.Context, customerID snowflake.ID, periodKey string) (bool, error)
}

var (
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrInvalidInvoiceID  = errors.New("invalid_invoice_id")
	ErrInvalidDraft      = errors.New("invalid_invoice_draft")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidStatus     = errors.New("invalid_status")
)
