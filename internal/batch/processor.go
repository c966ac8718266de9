// Package batch runs the date-driven invoice routines: overdue detection,
// monthly generation and payment reminders. Every routine is idempotent for
// a given reference date, so cron retries and manual re-runs are safe.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/invoiceflow/internal/customer/domain"
	"github.com/smallbiznis/invoiceflow/internal/events"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	notificationdomain "github.com/smallbiznis/invoiceflow/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ReminderEvent records one reminder sent during a run.
type ReminderEvent struct {
	Kind          notificationdomain.EventKind `json:"kind"`
	InvoiceID     snowflake.ID                 `json:"invoice_id"`
	InvoiceNumber string                       `json:"invoice_number"`
	CustomerID    snowflake.ID                 `json:"customer_id"`
}

// EntityError isolates one entity's failure so the rest of the run proceeds.
type EntityError struct {
	CustomerID snowflake.ID `json:"customer_id,omitempty"`
	InvoiceID  snowflake.ID `json:"invoice_id,omitempty"`
	Step       string       `json:"step"`
	Message    string       `json:"message"`
}

// Result aggregates everything a run produced.
type Result struct {
	Generated []invoicedomain.Invoice `json:"generated_invoices"`
	Updated   []invoicedomain.Invoice `json:"updated_invoices"`
	Reminders []ReminderEvent         `json:"reminders_sent"`
	Errors    []EntityError           `json:"errors"`
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Repo         invoicedomain.Repository
	InvoiceSvc   invoicedomain.Service
	CustomerRepo customerdomain.Repository
	Emitter      notificationdomain.Emitter
	Outbox       *events.Outbox
	Config       Config `optional:"true"`
}

// Processor executes the batch routines against a reference date supplied by
// the caller, never the wall clock.
type Processor struct {
	log          *zap.Logger
	repo         invoicedomain.Repository
	invoiceSvc   invoicedomain.Service
	customerRepo customerdomain.Repository
	emitter      notificationdomain.Emitter
	outbox       *events.Outbox
	cfg          Config
}

func NewProcessor(p Params) *Processor {
	return &Processor{
		log:          p.Log.Named("batch"),
		repo:         p.Repo,
		invoiceSvc:   p.InvoiceSvc,
		customerRepo: p.CustomerRepo,
		emitter:      p.Emitter,
		outbox:       p.Outbox,
		cfg:          p.Config.withDefaults(),
	}
}

// Run executes the daily sweep unconditionally, then the date-gated
// generation and reminder routines, and aggregates the outcome.
func (p *Processor) Run(ctx context.Context, today time.Time) (Result, error) {
	today = truncateToDay(today)
	result := Result{}

	updated, sweepErrs := p.RunDailyOverdueSweep(ctx, today)
	result.Updated = append(result.Updated, updated...)
	result.Errors = append(result.Errors, sweepErrs...)

	generated, genErrs := p.RunMonthlyGeneration(ctx, today)
	result.Generated = append(result.Generated, generated...)
	result.Errors = append(result.Errors, genErrs...)

	unpaid, unpaidErrs := p.RunUnpaidReminder(ctx, today)
	result.Reminders = append(result.Reminders, unpaid...)
	result.Errors = append(result.Errors, unpaidErrs...)

	issued, issuedErrs := p.RunIssuedReminder(ctx, today)
	result.Reminders = append(result.Reminders, issued...)
	result.Errors = append(result.Errors, issuedErrs...)

	p.log.Info("batch run finished",
		zap.Time("today", today),
		zap.Int("generated", len(result.Generated)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("reminders", len(result.Reminders)),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// RunDailyOverdueSweep moves ISSUED invoices past their due date to OVERDUE.
// Already-OVERDUE invoices are excluded by the status predicate, so re-runs
// are no-ops.
func (p *Processor) RunDailyOverdueSweep(ctx context.Context, today time.Time) ([]invoicedomain.Invoice, []EntityError) {
	invoices, err := p.repo.ListDueBefore(ctx, invoicedomain.InvoiceStatusIssued, today)
	if err != nil {
		return nil, []EntityError{{Step: "overdue_sweep", Message: err.Error()}}
	}

	var updated []invoicedomain.Invoice
	var errs []EntityError
	for _, inv := range invoices {
		moved, err := p.invoiceSvc.UpdateStatus(ctx, inv.ID, invoicedomain.InvoiceStatusOverdue)
		if err != nil {
			errs = append(errs, EntityError{
				InvoiceID: inv.ID,
				Step:      "overdue_sweep",
				Message:   err.Error(),
			})
			continue
		}
		updated = append(updated, moved)
	}
	return updated, errs
}

// RunMonthlyGeneration creates one UNPAID invoice per billable customer for
// the previous calendar month. It only fires on the configured day and skips
// customers that already hold an invoice for the month, so a re-run on the
// same day never double-bills.
func (p *Processor) RunMonthlyGeneration(ctx context.Context, today time.Time) ([]invoicedomain.Invoice, []EntityError) {
	if today.Day() != p.cfg.MonthlyGenerationDay {
		return nil, nil
	}

	profiles, err := p.customerRepo.ListBillable(ctx)
	if err != nil {
		return nil, []EntityError{{Step: "monthly_generation", Message: err.Error()}}
	}

	periodStart, periodEnd := previousMonth(today)
	dueDate := endOfMonth(today)
	periodKey := invoicedomain.PeriodKey(today)

	var generated []invoicedomain.Invoice
	var errs []EntityError
	for _, profile := range profiles {
		exists, err := p.repo.ExistsForPeriod(ctx, profile.ID, periodKey)
		if err != nil {
			errs = append(errs, EntityError{CustomerID: profile.ID, Step: "monthly_generation", Message: err.Error()})
			continue
		}
		if exists {
			continue
		}

		inv, err := p.generateFor(ctx, profile, today, dueDate, periodStart, periodEnd)
		if err != nil {
			errs = append(errs, EntityError{CustomerID: profile.ID, Step: "monthly_generation", Message: err.Error()})
			continue
		}
		generated = append(generated, inv)
	}
	return generated, errs
}

func (p *Processor) generateFor(
	ctx context.Context,
	profile customerdomain.BillingProfile,
	issueDate, dueDate, periodStart, periodEnd time.Time,
) (invoicedomain.Invoice, error) {
	name := profile.PlanName
	if name == "" {
		name = fmt.Sprintf("Monthly fee (%s)", periodStart.Format("2006-01"))
	}
	bank := profile.BankInfo()

	return p.invoiceSvc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		TenantID:     profile.TenantID,
		CustomerID:   profile.ID,
		CustomerName: profile.CustomerName,
		IssueDate:    issueDate,
		DueDate:      dueDate,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		BankInfo:     &bank,
		Items: []invoicedomain.ItemDraft{{
			Name:      name,
			Quantity:  1,
			UnitPrice: profile.PlanAmount,
			TaxRate:   profile.TaxRate,
		}},
	})
}

// RunUnpaidReminder reminds about invoices still UNPAID on the configured
// day. Statuses are left untouched.
func (p *Processor) RunUnpaidReminder(ctx context.Context, today time.Time) ([]ReminderEvent, []EntityError) {
	if today.Day() != p.cfg.UnpaidReminderDay {
		return nil, nil
	}
	return p.remind(ctx, today, invoicedomain.InvoiceStatusUnpaid,
		notificationdomain.EventKindUnpaidReminder, events.EventUnpaidReminder)
}

// RunIssuedReminder reminds about ISSUED invoices awaiting payment.
func (p *Processor) RunIssuedReminder(ctx context.Context, today time.Time) ([]ReminderEvent, []EntityError) {
	if today.Day() != p.cfg.IssuedReminderDay {
		return nil, nil
	}
	return p.remind(ctx, today, invoicedomain.InvoiceStatusIssued,
		notificationdomain.EventKindIssuedReminder, events.EventIssuedReminder)
}

func (p *Processor) remind(
	ctx context.Context,
	today time.Time,
	status invoicedomain.InvoiceStatus,
	kind notificationdomain.EventKind,
	eventType string,
) ([]ReminderEvent, []EntityError) {
	invoices, err := p.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, []EntityError{{Step: string(kind), Message: err.Error()}}
	}

	var reminders []ReminderEvent
	var errs []EntityError
	for _, inv := range invoices {
		// One reminder per invoice per day: the notification and the outbox
		// event share a dedupe key, so a same-day re-run writes neither.
		dedupeKey := fmt.Sprintf("reminder:%s:%s", inv.ID.String(), today.Format("20060102"))

		if _, err := p.emitter.Emit(ctx, notificationdomain.Event{
			Kind:      kind,
			Invoice:   inv,
			DedupeKey: dedupeKey,
		}); err != nil {
			if errors.Is(err, notificationdomain.ErrDuplicateNotification) {
				continue
			}
			errs = append(errs, EntityError{InvoiceID: inv.ID, Step: string(kind), Message: err.Error()})
			continue
		}

		if err := p.outbox.Publish(ctx, events.Event{
			TenantID: inv.TenantID,
			Type:     eventType,
			Payload: events.InvoicePayload{
				InvoiceID:     inv.ID.String(),
				InvoiceNumber: inv.InvoiceNumber,
				CustomerID:    inv.CustomerID.String(),
				Status:        string(inv.Status),
			}.ToMap(),
			DedupeKey: dedupeKey,
		}); err != nil {
			p.log.Warn("failed to publish reminder event",
				zap.String("invoice_id", inv.ID.String()), zap.Error(err))
		}

		reminders = append(reminders, ReminderEvent{
			Kind:          kind,
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			CustomerID:    inv.CustomerID,
		})
	}
	return reminders, errs
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// previousMonth returns the first and last day of the month before t.
func previousMonth(t time.Time) (time.Time, time.Time) {
	firstOfCurrent := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := firstOfCurrent.AddDate(0, -1, 0)
	end := firstOfCurrent.AddDate(0, 0, -1)
	return start, end
}

// endOfMonth returns the last day of t's month.
func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
