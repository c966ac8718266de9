// Package domain contains the invoice entity, status lifecycle and
// validation rules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus tracks an invoice through its lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid   InvoiceStatus = "UNPAID"
	InvoiceStatusIssued   InvoiceStatus = "ISSUED"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusOverdue  InvoiceStatus = "OVERDUE"
	InvoiceStatusCanceled InvoiceStatus = "CANCELED"
)

// Valid reports whether s is one of the five lifecycle states.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusIssued, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCanceled:
		return true
	}
	return false
}

// AccountType is the bank account kind carried on an invoice snapshot.
type AccountType string

const (
	AccountTypeOrdinary AccountType = "ordinary"
	AccountTypeChecking AccountType = "checking"
)

// BankInfo is the remittance snapshot taken at invoice creation. Later
// changes to the tenant's bank profile do not alter issued invoices.
type BankInfo struct {
	BankName      string      `gorm:"type:text;not null;default:''" json:"bank_name"`
	BranchName    string      `gorm:"type:text;not null;default:''" json:"branch_name"`
	AccountType   AccountType `gorm:"type:text;not null;default:'ordinary'" json:"account_type"`
	AccountNumber string      `gorm:"type:text;not null;default:''" json:"account_number"`
	AccountHolder string      `gorm:"type:text;not null;default:''" json:"account_holder"`
}

// Invoice is the billing document. Amounts are integer minor units.
type Invoice struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	CustomerID     snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	CustomerName   string            `gorm:"type:text;not null;default:''" json:"customer_name"`
	InvoiceNumber  string            `gorm:"type:text;not null;uniqueIndex:ux_invoices_number" json:"invoice_number"`
	Status         InvoiceStatus     `gorm:"type:text;not null;default:'UNPAID'" json:"status"`
	IssueDate      time.Time         `gorm:"not null" json:"issue_date"`
	DueDate        time.Time         `gorm:"not null" json:"due_date"`
	PeriodStart    time.Time         `gorm:"not null" json:"period_start"`
	PeriodEnd      time.Time         `gorm:"not null" json:"period_end"`
	Items          []InvoiceItem     `gorm:"foreignKey:InvoiceID" json:"items"`
	SubtotalAmount int64             `gorm:"not null;default:0" json:"subtotal_amount"`
	TaxAmount      int64             `gorm:"not null;default:0" json:"tax_amount"`
	TotalAmount    int64             `gorm:"not null;default:0" json:"total_amount"`
	Notes          *string           `gorm:"type:text" json:"notes,omitempty"`
	BankInfo       BankInfo          `gorm:"embedded" json:"bank_info"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	PaidAt         *time.Time        `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CanceledAt     *time.Time        `gorm:"column:canceled_at" json:"canceled_at,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// RecalculateTotals recomputes every line and the invoice aggregates.
func (i *Invoice) RecalculateTotals() {
	var subtotal, tax int64
	for idx := range i.Items {
		i.Items[idx].Recalculate()
		subtotal += i.Items[idx].Amount
		tax += i.Items[idx].TaxAmount
	}
	i.SubtotalAmount = subtotal
	i.TaxAmount = tax
	i.TotalAmount = subtotal + tax
}

// Terminal reports whether the invoice reached an end state under the
// strict lifecycle.
func (i *Invoice) Terminal() bool {
	return i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCanceled
}

// InvoiceItem is a single billed line, owned by its parent invoice.
type InvoiceItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description *string      `gorm:"type:text" json:"description,omitempty"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	UnitPrice   int64        `gorm:"not null" json:"unit_price"`
	TaxRate     int64        `gorm:"not null;default:0" json:"tax_rate"`
	Amount      int64        `gorm:"not null;default:0" json:"amount"`
	TaxAmount   int64        `gorm:"not null;default:0" json:"tax_amount"`
	Position    int64        `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// Recalculate derives the line amount and its tax. Tax rounds down.
func (it *InvoiceItem) Recalculate() {
	it.Amount = it.Quantity * it.UnitPrice
	it.TaxAmount = it.Amount * it.TaxRate / 100
}

// FilterOptions narrows invoice queries. Nil fields impose no constraint.
type FilterOptions struct {
	Status       *InvoiceStatus
	StartDate    *time.Time
	EndDate      *time.Time
	CustomerID   *snowflake.ID
	CustomerName *string
}

// PeriodKey formats a date as the YYYYMM bucket used in invoice numbers
// and the monthly generation guard.
func PeriodKey(date time.Time) string {
	return date.Format("200601")
}
