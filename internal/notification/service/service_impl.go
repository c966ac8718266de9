// Package service implements the notification emitter over gorm.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	notificationdomain "github.com/smallbiznis/invoiceflow/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Emitter struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewEmitter(p Params) notificationdomain.Emitter {
	return &Emitter{
		db:    p.DB,
		log:   p.Log.Named("notification.emitter"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Emit maps the event to its template and appends the notification record.
// When the event carries a dedupe key and a notification with that key
// already exists, nothing is written and ErrDuplicateNotification is
// returned.
func (e *Emitter) Emit(ctx context.Context, event notificationdomain.Event) (notificationdomain.InvoiceNotification, error) {
	title, message, err := render(event)
	if err != nil {
		return notificationdomain.InvoiceNotification{}, err
	}

	record := notificationdomain.InvoiceNotification{
		ID:        e.genID.Generate(),
		TenantID:  event.Invoice.TenantID,
		UserID:    event.Invoice.CustomerID,
		InvoiceID: event.Invoice.ID,
		Title:     title,
		Message:   message,
		CreatedAt: e.clock.Now(),
	}
	if event.DedupeKey != "" {
		key := event.DedupeKey
		record.DedupeKey = &key
	}
	if err := e.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return notificationdomain.InvoiceNotification{}, notificationdomain.ErrDuplicateNotification
		}
		return notificationdomain.InvoiceNotification{}, err
	}

	e.log.Debug("notification emitted",
		zap.String("kind", string(event.Kind)),
		zap.String("invoice_id", event.Invoice.ID.String()))
	return record, nil
}

func render(event notificationdomain.Event) (string, string, error) {
	number := event.Invoice.InvoiceNumber
	switch event.Kind {
	case notificationdomain.EventKindIssued:
		return "Invoice issued",
			fmt.Sprintf("Invoice %s has been issued. Payment is due by %s.",
				number, event.Invoice.DueDate.Format("2006-01-02")), nil
	case notificationdomain.EventKindPaid:
		return "Payment received",
			fmt.Sprintf("Payment for invoice %s has been received. Thank you.", number), nil
	case notificationdomain.EventKindOverdue:
		return "Payment overdue",
			fmt.Sprintf("Invoice %s is past its due date of %s. Please arrange payment.",
				number, event.Invoice.DueDate.Format("2006-01-02")), nil
	case notificationdomain.EventKindCanceled:
		return "Invoice canceled",
			fmt.Sprintf("Invoice %s has been canceled.", number), nil
	case notificationdomain.EventKindUnpaidReminder:
		return "Invoice reminder",
			fmt.Sprintf("Invoice %s has not been issued yet. Please review it.", number), nil
	case notificationdomain.EventKindIssuedReminder:
		return "Payment reminder",
			fmt.Sprintf("Invoice %s is awaiting payment, due by %s.",
				number, event.Invoice.DueDate.Format("2006-01-02")), nil
	}
	return "", "", notificationdomain.ErrUnknownEventKind
}

// MarkRead flips the read flag. Marking an already-read notification again
// is a no-op.
func (e *Emitter) MarkRead(ctx context.Context, id snowflake.ID) error {
	result := e.db.WithContext(ctx).Exec(
		`UPDATE invoice_notifications SET is_read = true WHERE id = ?`, id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		exists, err := e.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return notificationdomain.ErrNotificationNotFound
		}
	}
	return nil
}

// MarkAllRead marks every unread notification for the user.
func (e *Emitter) MarkAllRead(ctx context.Context, userID snowflake.ID) error {
	return e.db.WithContext(ctx).Exec(
		`UPDATE invoice_notifications SET is_read = true WHERE user_id = ? AND is_read = false`,
		userID,
	).Error
}

// List returns the user's notifications, newest first.
func (e *Emitter) List(ctx context.Context, userID snowflake.ID) ([]notificationdomain.InvoiceNotification, error) {
	var records []notificationdomain.InvoiceNotification
	err := e.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (e *Emitter) exists(ctx context.Context, id snowflake.ID) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&notificationdomain.InvoiceNotification{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
