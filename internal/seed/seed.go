// Package seed bootstraps demo data for non-production environments.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/invoiceflow/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"gorm.io/gorm"
)

// EnsureDemoProfiles seeds a pair of billable customers when the table is
// empty, so a fresh checkout can exercise the batch routines immediately.
func EnsureDemoProfiles(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&customerdomain.BillingProfile{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		tenantID := node.Generate()
		profiles := []customerdomain.BillingProfile{
			{
				ID:            node.Generate(),
				TenantID:      tenantID,
				CustomerName:  "Acme Works",
				CustomerEmail: "billing@acme.example",
				PlanName:      "Standard plan",
				PlanAmount:    30000,
				TaxRate:       10,
				Billable:      true,
				BankName:      "First Demo Bank",
				BranchName:    "Head Office",
				AccountType:   invoicedomain.AccountTypeOrdinary,
				AccountNumber: "1234567",
				AccountHolder: "Acme Works Inc.",
				CreatedAt:     now,
				UpdatedAt:     now,
			},
			{
				ID:            node.Generate(),
				TenantID:      tenantID,
				CustomerName:  "Blue Harbor LLC",
				CustomerEmail: "ap@blueharbor.example",
				PlanName:      "Premium plan",
				PlanAmount:    50000,
				TaxRate:       10,
				Billable:      true,
				BankName:      "First Demo Bank",
				BranchName:    "Harborside",
				AccountType:   invoicedomain.AccountTypeChecking,
				AccountNumber: "7654321",
				AccountHolder: "Blue Harbor LLC",
				CreatedAt:     now,
				UpdatedAt:     now,
			},
		}
		return tx.Create(&profiles).Error
	})
}
