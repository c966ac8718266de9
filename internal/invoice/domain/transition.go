package domain

import (
	"fmt"
	"time"
)

// TransitionPolicy decides which status moves are legal.
type TransitionPolicy interface {
	Name() string
	IsTransitionAllowed(from, to InvoiceStatus) bool
}

// StrictPolicy is the production lifecycle: UNPAID -> ISSUED -> PAID, with
// OVERDUE reachable from UNPAID/ISSUED and CANCELED from any non-terminal
// state. PAID and CANCELED have no outgoing transitions.
type StrictPolicy struct{}

var strictTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusUnpaid:   {InvoiceStatusIssued, InvoiceStatusOverdue, InvoiceStatusCanceled},
	InvoiceStatusIssued:   {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCanceled},
	InvoiceStatusOverdue:  {InvoiceStatusPaid, InvoiceStatusCanceled},
	InvoiceStatusPaid:     {},
	InvoiceStatusCanceled: {},
}

func (StrictPolicy) Name() string { return "strict" }

func (StrictPolicy) IsTransitionAllowed(from, to InvoiceStatus) bool {
	for _, allowed := range strictTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PermissivePolicy allows any move between valid states. It exists for demo
// environments where invoices are dragged freely across a board; the batch
// routines assume the strict lifecycle, so keep this off in production.
type PermissivePolicy struct{}

func (PermissivePolicy) Name() string { return "permissive" }

func (PermissivePolicy) IsTransitionAllowed(from, to InvoiceStatus) bool {
	return from.Valid() && to.Valid() && from != to
}

// PolicyFromName resolves a configured policy name, defaulting to strict.
func PolicyFromName(name string) TransitionPolicy {
	if name == "permissive" {
		return PermissivePolicy{}
	}
	return StrictPolicy{}
}

// InvalidTransitionError reports a status move rejected by the policy.
type InvalidTransitionError struct {
	From InvoiceStatus
	To   InvoiceStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ApplyTransition validates the move under policy and returns a copy of the
// invoice with the new status applied. PaidAt/CanceledAt are set the first
// time the matching state is reached; re-reaching it never overwrites them.
func ApplyTransition(policy TransitionPolicy, inv Invoice, to InvoiceStatus, now time.Time) (Invoice, error) {
	if !to.Valid() {
		return inv, &InvalidTransitionError{From: inv.Status, To: to}
	}
	if !policy.IsTransitionAllowed(inv.Status, to) {
		return inv, &InvalidTransitionError{From: inv.Status, To: to}
	}

	updated := inv
	updated.Status = to
	updated.UpdatedAt = now
	switch to {
	case InvoiceStatusPaid:
		if updated.PaidAt == nil {
			paidAt := now
			updated.PaidAt = &paidAt
		}
	case InvoiceStatusCanceled:
		if updated.CanceledAt == nil {
			canceledAt := now
			updated.CanceledAt = &canceledAt
		}
	}
	return updated, nil
}
