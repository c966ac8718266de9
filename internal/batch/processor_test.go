package batch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	customerdomain "github.com/smallbiznis/invoiceflow/internal/customer/domain"
	customerrepository "github.com/smallbiznis/invoiceflow/internal/customer/repository"
	"github.com/smallbiznis/invoiceflow/internal/events"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/invoiceflow/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/invoiceflow/internal/invoice/service"
	notificationdomain "github.com/smallbiznis/invoiceflow/internal/notification/domain"
	notificationservice "github.com/smallbiznis/invoiceflow/internal/notification/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testSchema = []string{
	`CREATE TABLE IF NOT EXISTS billing_profiles (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL DEFAULT '',
		plan_name TEXT NOT NULL DEFAULT '',
		plan_amount BIGINT NOT NULL DEFAULT 0,
		tax_rate BIGINT NOT NULL DEFAULT 10,
		billable BOOLEAN NOT NULL DEFAULT true,
		bank_name TEXT NOT NULL DEFAULT '',
		branch_name TEXT NOT NULL DEFAULT '',
		account_type TEXT NOT NULL DEFAULT 'ordinary',
		account_number TEXT NOT NULL DEFAULT '',
		account_holder TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		invoice_number TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'UNPAID',
		issue_date TIMESTAMP NOT NULL,
		due_date TIMESTAMP NOT NULL,
		period_start TIMESTAMP NOT NULL,
		period_end TIMESTAMP NOT NULL,
		subtotal_amount BIGINT NOT NULL DEFAULT 0,
		tax_amount BIGINT NOT NULL DEFAULT 0,
		total_amount BIGINT NOT NULL DEFAULT 0,
		notes TEXT,
		bank_name TEXT NOT NULL DEFAULT '',
		branch_name TEXT NOT NULL DEFAULT '',
		account_type TEXT NOT NULL DEFAULT 'ordinary',
		account_number TEXT NOT NULL DEFAULT '',
		account_holder TEXT NOT NULL DEFAULT '',
		metadata TEXT,
		paid_at TIMESTAMP,
		canceled_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_invoices_number ON invoices (invoice_number)`,
	`CREATE TABLE IF NOT EXISTS invoice_items (
		id BIGINT PRIMARY KEY,
		invoice_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		quantity BIGINT NOT NULL,
		unit_price BIGINT NOT NULL,
		tax_rate BIGINT NOT NULL DEFAULT 0,
		amount BIGINT NOT NULL DEFAULT 0,
		tax_amount BIGINT NOT NULL DEFAULT 0,
		position BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_notifications (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		invoice_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT false,
		dedupe_key TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_invoice_notifications_dedupe ON invoice_notifications (dedupe_key)`,
	`CREATE TABLE IF NOT EXISTS billing_events (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT,
		dedupe_key TEXT,
		published BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_billing_events_dedupe ON billing_events (tenant_id, dedupe_key)`,
}

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	repo      invoicedomain.Repository
	svc       invoicedomain.Service
	processor *Processor
}

func setupFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	log := zap.NewNop()
	clk := clock.Fixed(now)
	outbox := events.NewOutbox(db, node, clk)

	repo := invoicerepository.NewRepository(invoicerepository.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
	})
	customerRepo := customerrepository.NewRepository(customerrepository.Params{
		DB: db, Log: log,
	})
	emitter := notificationservice.NewEmitter(notificationservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
	})
	svc := invoiceservice.NewService(invoiceservice.Params{
		Log:          log,
		Clock:        clk,
		Policy:       invoicedomain.StrictPolicy{},
		Repo:         repo,
		CustomerRepo: customerRepo,
		Emitter:      emitter,
		Outbox:       outbox,
	})
	processor := NewProcessor(Params{
		Log:          log,
		Repo:         repo,
		InvoiceSvc:   svc,
		CustomerRepo: customerRepo,
		Emitter:      emitter,
		Outbox:       outbox,
	})
	return &fixture{db: db, node: node, repo: repo, svc: svc, processor: processor}
}

func (f *fixture) insertProfile(t *testing.T, name string, amount int64, billable bool) customerdomain.BillingProfile {
	t.Helper()
	profile := customerdomain.BillingProfile{
		ID:            f.node.Generate(),
		TenantID:      100,
		CustomerName:  name,
		PlanName:      "Standard plan",
		PlanAmount:    amount,
		TaxRate:       10,
		Billable:      billable,
		BankName:      "Mizuho Bank",
		BranchName:    "Shibuya",
		AccountType:   invoicedomain.AccountTypeOrdinary,
		AccountNumber: "1234567",
		AccountHolder: name,
	}
	if err := f.db.Create(&profile).Error; err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	return profile
}

func (f *fixture) insertInvoice(t *testing.T, customerID snowflake.ID, dueDate time.Time, status invoicedomain.InvoiceStatus) invoicedomain.Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := f.repo.Create(ctx, invoicedomain.CreateInvoiceRequest{
		TenantID:    100,
		CustomerID:  customerID,
		IssueDate:   dueDate.AddDate(0, 0, -21),
		DueDate:     dueDate,
		PeriodStart: time.Date(dueDate.Year(), dueDate.Month()-1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(dueDate.Year(), dueDate.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1),
		Items: []invoicedomain.ItemDraft{
			{Name: "Monthly fee", Quantity: 1, UnitPrice: 30000, TaxRate: 10},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if status != invoicedomain.InvoiceStatusUnpaid {
		moved, err := invoicedomain.ApplyTransition(invoicedomain.PermissivePolicy{}, inv, status, dueDate.AddDate(0, 0, -20))
		if err != nil {
			t.Fatalf("apply transition: %v", err)
		}
		if err := f.repo.SaveStatus(ctx, moved, inv.Status); err != nil {
			t.Fatalf("save status: %v", err)
		}
		inv = moved
	}
	return inv
}

func TestOverdueSweepMovesPastDueInvoices(t *testing.T) {
	today := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	f := setupFixture(t, today)
	ctx := context.Background()

	due := f.insertInvoice(t, f.node.Generate(),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), invoicedomain.InvoiceStatusIssued)
	notDue := f.insertInvoice(t, f.node.Generate(),
		time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), invoicedomain.InvoiceStatusIssued)
	unpaid := f.insertInvoice(t, f.node.Generate(),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), invoicedomain.InvoiceStatusUnpaid)

	updated, errs := f.processor.RunDailyOverdueSweep(ctx, today)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(updated) != 1 || updated[0].ID != due.ID {
		t.Fatalf("expected only the past-due ISSUED invoice, got %d", len(updated))
	}
	if updated[0].Status != invoicedomain.InvoiceStatusOverdue {
		t.Fatalf("expected OVERDUE, got %s", updated[0].Status)
	}

	for _, id := range []snowflake.ID{notDue.ID, unpaid.ID} {
		stored, err := f.repo.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if stored.Status == invoicedomain.InvoiceStatusOverdue {
			t.Fatalf("invoice %s should not have been swept", id)
		}
	}

	// The next day's sweep finds nothing left in ISSUED.
	again, errs := f.processor.RunDailyOverdueSweep(ctx, today.AddDate(0, 0, 1))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors on re-run: %+v", errs)
	}
	if len(again) != 0 {
		t.Fatalf("expected re-run to be a no-op, got %d updates", len(again))
	}
}

func TestMonthlyGenerationOnConfiguredDay(t *testing.T) {
	today := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	f := setupFixture(t, today)
	ctx := context.Background()

	acme := f.insertProfile(t, "Acme Works", 30000, true)
	f.insertProfile(t, "Dormant Co", 10000, false)

	generated, errs := f.processor.RunMonthlyGeneration(ctx, today)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(generated) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(generated))
	}

	inv := generated[0]
	if inv.CustomerID != acme.ID {
		t.Fatalf("expected invoice for the billable profile")
	}
	if inv.Status != invoicedomain.InvoiceStatusUnpaid {
		t.Fatalf("expected UNPAID, got %s", inv.Status)
	}
	wantNumber := fmt.Sprintf("202402-%s-001", acme.ID.String())
	if inv.InvoiceNumber != wantNumber {
		t.Fatalf("expected %q, got %q", wantNumber, inv.InvoiceNumber)
	}
	if !inv.PeriodStart.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) ||
		!inv.PeriodEnd.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected january billing period, got %v - %v", inv.PeriodStart, inv.PeriodEnd)
	}
	if !inv.DueDate.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected due date at end of february, got %v", inv.DueDate)
	}
	if inv.SubtotalAmount != 30000 || inv.TaxAmount != 3000 || inv.TotalAmount != 33000 {
		t.Fatalf("unexpected totals: %d/%d/%d", inv.SubtotalAmount, inv.TaxAmount, inv.TotalAmount)
	}
	if inv.BankInfo.BankName != "Mizuho Bank" {
		t.Fatalf("expected bank snapshot from profile, got %+v", inv.BankInfo)
	}

	// A re-run on the same day is guarded by the period check.
	rerun, errs := f.processor.RunMonthlyGeneration(ctx, today)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors on re-run: %+v", errs)
	}
	if len(rerun) != 0 {
		t.Fatalf("expected re-run to generate nothing, got %d", len(rerun))
	}
}

func TestMonthlyGenerationSkipsOtherDays(t *testing.T) {
	today := time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC)
	f := setupFixture(t, today)
	f.insertProfile(t, "Acme Works", 30000, true)

	generated, errs := f.processor.RunMonthlyGeneration(context.Background(), today)
	if len(generated) != 0 || len(errs) != 0 {
		t.Fatalf("expected nothing outside the configured day, got %d/%d", len(generated), len(errs))
	}
}

func TestMonthlyGenerationIsolatesFailures(t *testing.T) {
	today := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	f := setupFixture(t, today)
	ctx := context.Background()

	broken := f.insertProfile(t, "Broken Plan Co", -500, true)
	f.insertProfile(t, "Acme Works", 30000, true)

	generated, errs := f.processor.RunMonthlyGeneration(ctx, today)
	if len(generated) != 1 {
		t.Fatalf("expected the healthy customer to be billed, got %d", len(generated))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 isolated error, got %+v", errs)
	}
	if errs[0].CustomerID != broken.ID || errs[0].Step != "monthly_generation" {
		t.Fatalf("unexpected error entry: %+v", errs[0])
	}
}

func TestUnpaidReminderOnConfiguredDay(t *testing.T) {
	today := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	f := setupFixture(t, today)
	ctx := context.Background()

	inv := f.insertInvoice(t, f.node.Generate(),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), invoicedomain.InvoiceStatusUnpaid)
	f.insertInvoice(t, f.node.Generate(),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), invoicedomain.InvoiceStatusIssued)

	reminders, errs := f.processor.RunUnpaidReminder(ctx, today)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(reminders) != 1 || reminders[0].InvoiceID != inv.ID {
		t.Fatalf("expected 1 reminder for the UNPAID invoice, got %d", len(reminders))
	}
	if reminders[0].Kind != notificationdomain.EventKindUnpaidReminder {
		t.Fatalf("unexpected kind %s", reminders[0].Kind)
	}

	// The reminder never changes invoice state.
	stored, err := f.repo.FindByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Status != invoicedomain.InvoiceStatusUnpaid {
		t.Fatalf("expected status untouched, got %s", stored.Status)
	}

	none, _ := f.processor.RunUnpaidReminder(ctx, today.AddDate(0, 0, 1))
	if len(none) != 0 {
		t.Fatalf("expected no reminders off the configured day, got %d", len(none))
	}
}

func TestReminderRerunSameDayWritesNothing(t *testing.T) {
	today := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	f := setupFixture(t, today)
	ctx := context.Background()

	f.insertInvoice(t, f.node.Generate(),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), invoicedomain.InvoiceStatusUnpaid)

	first, errs := f.processor.RunUnpaidReminder(ctx, today)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(first))
	}

	// Cron retry on the same day: neither the inbox nor the outbox grows,
	// and the re-run reports nothing sent.
	second, errs := f.processor.RunUnpaidReminder(ctx, today)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors on re-run: %+v", errs)
	}
	if len(second) != 0 {
		t.Fatalf("expected re-run to send nothing, got %d", len(second))
	}

	var notifications int64
	if err := f.db.Table("invoice_notifications").Count(&notifications).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if notifications != 1 {
		t.Fatalf("expected 1 notification after re-run, got %d", notifications)
	}

	var published int64
	if err := f.db.Table("billing_events").Count(&published).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if published != 1 {
		t.Fatalf("expected 1 outbox event after re-run, got %d", published)
	}

	// A later day is a fresh reminder.
	nextMonth, errs := f.processor.RunUnpaidReminder(ctx, today.AddDate(0, 1, 0))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors next month: %+v", errs)
	}
	if len(nextMonth) != 1 {
		t.Fatalf("expected a fresh reminder on a later day, got %d", len(nextMonth))
	}
}

func TestIssuedReminderOnConfiguredDay(t *testing.T) {
	today := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	f := setupFixture(t, today)
	ctx := context.Background()

	inv := f.insertInvoice(t, f.node.Generate(),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), invoicedomain.InvoiceStatusIssued)

	reminders, errs := f.processor.RunIssuedReminder(ctx, today)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(reminders) != 1 || reminders[0].InvoiceID != inv.ID {
		t.Fatalf("expected 1 reminder, got %d", len(reminders))
	}
	if reminders[0].Kind != notificationdomain.EventKindIssuedReminder {
		t.Fatalf("unexpected kind %s", reminders[0].Kind)
	}
}

func TestRunAggregatesRoutines(t *testing.T) {
	// Feb 10 is the generation day; an overdue candidate is swept in the
	// same pass.
	today := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	f := setupFixture(t, today)
	ctx := context.Background()

	f.insertProfile(t, "Acme Works", 30000, true)
	f.insertInvoice(t, f.node.Generate(),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), invoicedomain.InvoiceStatusIssued)

	result, err := f.processor.Run(ctx, today)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Updated) != 1 {
		t.Fatalf("expected 1 swept invoice, got %d", len(result.Updated))
	}
	if len(result.Generated) != 1 {
		t.Fatalf("expected 1 generated invoice, got %d", len(result.Generated))
	}
	if len(result.Reminders) != 0 {
		t.Fatalf("expected no reminders on day 10, got %d", len(result.Reminders))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
}
