// Package domain holds the billing profiles the monthly generation reads.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
)

// BillingProfile describes a customer the tenant bills monthly. The bank
// fields are the snapshot source for invoices created for this customer.
type BillingProfile struct {
	ID            snowflake.ID               `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID               `gorm:"not null;index" json:"tenant_id"`
	CustomerName  string                     `gorm:"type:text;not null" json:"customer_name"`
	CustomerEmail string                     `gorm:"type:text;not null;default:''" json:"customer_email"`
	PlanName      string                     `gorm:"type:text;not null;default:''" json:"plan_name"`
	PlanAmount    int64                      `gorm:"not null;default:0" json:"plan_amount"`
	TaxRate       int64                      `gorm:"not null;default:10" json:"tax_rate"`
	Billable      bool                       `gorm:"not null;default:true" json:"billable"`
	BankName      string                     `gorm:"type:text;not null;default:''" json:"bank_name"`
	BranchName    string                     `gorm:"type:text;not null;default:''" json:"branch_name"`
	AccountType   invoicedomain.AccountType  `gorm:"type:text;not null;default:'ordinary'" json:"account_type"`
	AccountNumber string                     `gorm:"type:text;not null;default:''" json:"account_number"`
	AccountHolder string                     `gorm:"type:text;not null;default:''" json:"account_holder"`
	CreatedAt     time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillingProfile) TableName() string { return "billing_profiles" }

// BankInfo returns the remittance snapshot for new invoices.
func (p BillingProfile) BankInfo() invoicedomain.BankInfo {
	return invoicedomain.BankInfo{
		BankName:      p.BankName,
		BranchName:    p.BranchName,
		AccountType:   p.AccountType,
		AccountNumber: p.AccountNumber,
		AccountHolder: p.AccountHolder,
	}
}

// Repository reads billing profiles. ListBillable spans every tenant; the
// batch processor bills all of them in one run.
type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (BillingProfile, error)
	ListBillable(ctx context.Context) ([]BillingProfile, error)
}

var ErrProfileNotFound = errors.New("billing_profile_not_found")
