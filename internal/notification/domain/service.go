package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
)

// EventKind names the lifecycle moments that produce a notification.
type EventKind string

const (
	EventKindIssued         EventKind = "issued"
	EventKindPaid           EventKind = "paid"
	EventKindOverdue        EventKind = "overdue"
	EventKindCanceled       EventKind = "canceled"
	EventKindUnpaidReminder EventKind = "unpaid_reminder"
	EventKindIssuedReminder EventKind = "issued_reminder"
)

// Event is a lifecycle or reminder occurrence to notify about. The addressee
// is always the invoice's customer. A non-empty DedupeKey makes repeated
// emission of the same logical event a no-op.
type Event struct {
	Kind      EventKind
	Invoice   invoicedomain.Invoice
	DedupeKey string
}

// Emitter turns lifecycle events into notification records and manages the
// read flag.
type Emitter interface {
	Emit(ctx context.Context, event Event) (InvoiceNotification, error)
	MarkRead(ctx context.Context, id snowflake.ID) error
	MarkAllRead(ctx context.Context, userID snowflake.ID) error
	List(ctx context.Context, userID snowflake.ID) ([]InvoiceNotification, error)
}

var (
	ErrNotificationNotFound  = errors.New("notification_not_found")
	ErrUnknownEventKind      = errors.New("unknown_event_kind")
	ErrDuplicateNotification = errors.New("duplicate_notification")
)
