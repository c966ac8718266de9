// Package service implements the invoice lifecycle surface.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	customerdomain "github.com/smallbiznis/invoiceflow/internal/customer/domain"
	"github.com/smallbiznis/invoiceflow/internal/events"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/internal/logger"
	notificationdomain "github.com/smallbiznis/invoiceflow/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Policy       invoicedomain.TransitionPolicy
	Repo         invoicedomain.Repository
	CustomerRepo customerdomain.Repository
	Emitter      notificationdomain.Emitter
	Outbox       *events.Outbox
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	policy       invoicedomain.TransitionPolicy
	repo         invoicedomain.Repository
	customerRepo customerdomain.Repository
	emitter      notificationdomain.Emitter
	outbox       *events.Outbox
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		log:          p.Log.Named("invoice.service"),
		clock:        p.Clock,
		policy:       p.Policy,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		emitter:      p.Emitter,
		outbox:       p.Outbox,
	}
}

// Create persists a new UNPAID invoice. Missing snapshot fields (customer
// name, bank info) are resolved from the customer's billing profile.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if req.CustomerName == "" || req.BankInfo == nil {
		profile, err := s.customerRepo.FindByID(ctx, req.CustomerID)
		if err != nil && !errors.Is(err, customerdomain.ErrProfileNotFound) {
			return invoicedomain.Invoice{}, err
		}
		if err == nil {
			if req.CustomerName == "" {
				req.CustomerName = profile.CustomerName
			}
			if req.BankInfo == nil {
				bank := profile.BankInfo()
				req.BankInfo = &bank
			}
		}
	}

	inv, err := s.repo.Create(ctx, req)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("bank_account", logger.MaskAccountNumber(inv.BankInfo.AccountNumber)))
	return inv, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	return s.repo.Update(ctx, id, req)
}

// UpdateStatus validates the move under the active transition policy,
// persists it, and reports the change to the notification emitter and the
// billing-events outbox. The invoice is left unchanged when the move is
// rejected.
func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, to invoicedomain.InvoiceStatus) (invoicedomain.Invoice, error) {
	if !to.Valid() {
		return invoicedomain.Invoice{}, fmt.Errorf("%w: %q", invoicedomain.ErrInvalidStatus, to)
	}

	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	updated, err := invoicedomain.ApplyTransition(s.policy, inv, to, s.clock.Now())
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := s.repo.SaveStatus(ctx, updated, inv.Status); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.notifyTransition(ctx, updated)
	s.log.Info("invoice status updated",
		zap.String("invoice_id", updated.ID.String()),
		zap.String("from", string(inv.Status)),
		zap.String("to", string(to)))
	return updated, nil
}

// Cancel is sugar for UpdateStatus(id, CANCELED).
func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	return s.UpdateStatus(ctx, id, invoicedomain.InvoiceStatusCanceled)
}

// MarkAsPaid is sugar for UpdateStatus(id, PAID).
func (s *Service) MarkAsPaid(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	return s.UpdateStatus(ctx, id, invoicedomain.InvoiceStatusPaid)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter invoicedomain.FilterOptions) ([]invoicedomain.Invoice, error) {
	return s.repo.List(ctx, filter)
}

// notifyTransition emits the notification and outbox event for a persisted
// transition. Failures here are logged, not propagated: the status change is
// already durable and re-publication is deduped.
func (s *Service) notifyTransition(ctx context.Context, inv invoicedomain.Invoice) {
	kind, eventType, ok := transitionEvent(inv.Status)
	if !ok {
		return
	}

	if _, err := s.emitter.Emit(ctx, notificationdomain.Event{Kind: kind, Invoice: inv}); err != nil {
		s.log.Warn("failed to emit notification",
			zap.String("invoice_id", inv.ID.String()), zap.Error(err))
	}

	err := s.outbox.Publish(ctx, events.Event{
		TenantID: inv.TenantID,
		Type:     eventType,
		Payload: events.InvoicePayload{
			InvoiceID:     inv.ID.String(),
			InvoiceNumber: inv.InvoiceNumber,
			CustomerID:    inv.CustomerID.String(),
			Status:        string(inv.Status),
		}.ToMap(),
		DedupeKey: fmt.Sprintf("status:%s:%s", inv.ID.String(), inv.Status),
	})
	if err != nil {
		s.log.Warn("failed to publish billing event",
			zap.String("invoice_id", inv.ID.String()), zap.Error(err))
	}
}

func transitionEvent(status invoicedomain.InvoiceStatus) (notificationdomain.EventKind, string, bool) {
	switch status {
	case invoicedomain.InvoiceStatusIssued:
		return notificationdomain.EventKindIssued, events.EventInvoiceIssued, true
	case invoicedomain.InvoiceStatusPaid:
		return notificationdomain.EventKindPaid, events.EventInvoicePaid, true
	case invoicedomain.InvoiceStatusOverdue:
		return notificationdomain.EventKindOverdue, events.EventInvoiceOverdue, true
	case invoicedomain.InvoiceStatusCanceled:
		return notificationdomain.EventKindCanceled, events.EventInvoiceCanceled, true
	}
	return "", "", false
}
