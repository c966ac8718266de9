// Package repository persists invoices through gorm and owns invoice-number
// assignment.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// createAttempts bounds the retry loop when two writers race for the same
// invoice-number sequence; the unique index arbitrates.
const createAttempts = 3

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Repository struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewRepository(p Params) invoicedomain.Repository {
	return &Repository{
		db:    p.DB,
		log:   p.Log.Named("invoice.repository"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Create validates the draft, assigns an invoice number and persists the
// invoice with its items in one transaction. On an invoice-number collision
// the sequence is recomputed and the insert retried.
func (r *Repository) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if err := req.Validate(); err != nil {
		return invoicedomain.Invoice{}, err
	}

	var created invoicedomain.Invoice
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := r.nextInvoiceNumber(ctx, tx, req.CustomerID, req.IssueDate)
			if err != nil {
				return err
			}

			now := r.clock.Now()
			inv := invoicedomain.Invoice{
				ID:            r.genID.Generate(),
				TenantID:      req.TenantID,
				CustomerID:    req.CustomerID,
				CustomerName:  req.CustomerName,
				InvoiceNumber: number,
				Status:        invoicedomain.InvoiceStatusUnpaid,
				IssueDate:     req.IssueDate,
				DueDate:       req.DueDate,
				PeriodStart:   req.PeriodStart,
				PeriodEnd:     req.PeriodEnd,
				Notes:         req.Notes,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if req.BankInfo != nil {
				inv.BankInfo = *req.BankInfo
			}
			inv.Items = r.buildItems(inv.ID, req.Items, now)
			inv.RecalculateTotals()

			if err := tx.Create(&inv).Error; err != nil {
				return err
			}
			created = inv
			return nil
		})
		if err == nil {
			return created, nil
		}
		lastErr = err
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return invoicedomain.Invoice{}, err
		}
		r.log.Debug("invoice number collision, retrying",
			zap.String("customer_id", req.CustomerID.String()),
			zap.Int("attempt", attempt+1))
	}
	return invoicedomain.Invoice{}, lastErr
}

func (r *Repository) buildItems(invoiceID snowflake.ID, drafts []invoicedomain.ItemDraft, now time.Time) []invoicedomain.InvoiceItem {
	items := make([]invoicedomain.InvoiceItem, 0, len(drafts))
	for idx, draft := range drafts {
		item := invoicedomain.InvoiceItem{
			ID:          r.genID.Generate(),
			InvoiceID:   invoiceID,
			Name:        draft.Name,
			Description: draft.Description,
			Quantity:    draft.Quantity,
			UnitPrice:   draft.UnitPrice,
			TaxRate:     draft.TaxRate,
			Position:    int64(idx),
			CreatedAt:   now,
		}
		item.Recalculate()
		items = append(items, item)
	}
	return items
}

// nextInvoiceNumber yields YYYYMM-<customer>-SEQ where SEQ continues from the
// highest sequence ever used for the prefix. Numbers of canceled invoices are
// never reused.
func (r *Repository) nextInvoiceNumber(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, issueDate time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s", invoicedomain.PeriodKey(issueDate), customerID.String())

	var last string
	err := tx.WithContext(ctx).Raw(
		`SELECT invoice_number
		 FROM invoices
		 WHERE invoice_number LIKE ?
		 ORDER BY invoice_number DESC
		 LIMIT 1`,
		prefix+"-%",
	).Scan(&last).Error
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" {
		tail := last[strings.LastIndex(last, "-")+1:]
		parsed, err := strconv.Atoi(tail)
		if err != nil {
			return "", fmt.Errorf("malformed invoice number %q: %w", last, err)
		}
		seq = parsed + 1
	}
	return fmt.Sprintf("%s-%03d", prefix, seq), nil
}

// Update merges the patch into the stored invoice. Replacing items rewrites
// the whole line set and recomputes totals.
func (r *Repository) Update(ctx context.Context, id snowflake.ID, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	var updated invoicedomain.Invoice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := r.findByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if req.IssueDate != nil {
			inv.IssueDate = *req.IssueDate
		}
		if req.DueDate != nil {
			inv.DueDate = *req.DueDate
		}
		if req.PeriodStart != nil {
			inv.PeriodStart = *req.PeriodStart
		}
		if req.PeriodEnd != nil {
			inv.PeriodEnd = *req.PeriodEnd
		}
		if inv.PeriodEnd.Before(inv.PeriodStart) {
			return &invoicedomain.ValidationError{Field: "period_end", Rule: "order", Message: "period_end must not be before period_start"}
		}
		if req.Notes != nil {
			inv.Notes = req.Notes
		}

		now := r.clock.Now()
		if req.Items != nil {
			for idx, draft := range *req.Items {
				if draft.Quantity <= 0 {
					return &invoicedomain.ValidationError{
						Field:   fmt.Sprintf("items[%d].quantity", idx),
						Rule:    "positive",
						Message: "quantity must be greater than zero",
					}
				}
			}
			if err := tx.Where("invoice_id = ?", inv.ID).Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
				return err
			}
			inv.Items = r.buildItems(inv.ID, *req.Items, now)
			if len(inv.Items) > 0 {
				if err := tx.Create(&inv.Items).Error; err != nil {
					return err
				}
			}
		}
		inv.RecalculateTotals()
		inv.UpdatedAt = now

		if err := tx.Omit("Items").Save(&inv).Error; err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return updated, nil
}

// SaveStatus persists the lifecycle columns of an already-transitioned
// invoice. The transition itself is validated by the caller; the UPDATE is a
// compare-and-swap on the pre-transition status, so a writer that read the
// invoice before a concurrent transition gets a conflict instead of
// overwriting it.
func (r *Repository) SaveStatus(ctx context.Context, inv invoicedomain.Invoice, from invoicedomain.InvoiceStatus) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, paid_at = ?, canceled_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		inv.Status,
		inv.PaidAt,
		inv.CanceledAt,
		inv.UpdatedAt,
		inv.ID,
		from,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		current, err := r.findByID(ctx, r.db, inv.ID)
		if err != nil {
			return err
		}
		return &invoicedomain.InvalidTransitionError{From: current.Status, To: inv.Status}
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	return r.findByID(ctx, r.db, id)
}

func (r *Repository) findByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (invoicedomain.Invoice, error) {
	var inv invoicedomain.Invoice
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return inv, nil
}

// List applies the filter predicates conjunctively; nil fields impose no
// constraint.
func (r *Repository) List(ctx context.Context, filter invoicedomain.FilterOptions) ([]invoicedomain.Invoice, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("issue_date DESC, id DESC")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.StartDate != nil {
		query = query.Where("issue_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("issue_date <= ?", *filter.EndDate)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.CustomerName != nil {
		needle := "%" + strings.ToLower(strings.TrimSpace(*filter.CustomerName)) + "%"
		query = query.Where("LOWER(customer_name) LIKE ?", needle)
	}

	var invoices []invoicedomain.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *Repository) ListByStatus(ctx context.Context, status invoicedomain.InvoiceStatus) ([]invoicedomain.Invoice, error) {
	return r.List(ctx, invoicedomain.FilterOptions{Status: &status})
}

// ListDueBefore selects invoices in status whose due date is strictly before
// the given day. Used by the overdue sweep.
func (r *Repository) ListDueBefore(ctx context.Context, status invoicedomain.InvoiceStatus, before time.Time) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", status, before).
		Order("due_date ASC, id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// ExistsForPeriod reports whether the customer already holds an invoice for
// the YYYYMM bucket. This is the monthly generation idempotency guard.
func (r *Repository) ExistsForPeriod(ctx context.Context, customerID snowflake.ID, periodKey string) (bool, error) {
	prefix := fmt.Sprintf("%s-%s-%%", periodKey, customerID.String())
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE invoice_number LIKE ?`,
		prefix,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
