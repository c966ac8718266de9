package domain

import (
	"errors"
	"testing"
	"time"
)

func TestStrictPolicyTable(t *testing.T) {
	policy := StrictPolicy{}

	allowed := []struct{ from, to InvoiceStatus }{
		{InvoiceStatusUnpaid, InvoiceStatusIssued},
		{InvoiceStatusUnpaid, InvoiceStatusOverdue},
		{InvoiceStatusUnpaid, InvoiceStatusCanceled},
		{InvoiceStatusIssued, InvoiceStatusPaid},
		{InvoiceStatusIssued, InvoiceStatusOverdue},
		{InvoiceStatusIssued, InvoiceStatusCanceled},
		{InvoiceStatusOverdue, InvoiceStatusPaid},
		{InvoiceStatusOverdue, InvoiceStatusCanceled},
	}
	for _, tc := range allowed {
		if !policy.IsTransitionAllowed(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to InvoiceStatus }{
		{InvoiceStatusPaid, InvoiceStatusUnpaid},
		{InvoiceStatusPaid, InvoiceStatusIssued},
		{InvoiceStatusPaid, InvoiceStatusCanceled},
		{InvoiceStatusCanceled, InvoiceStatusUnpaid},
		{InvoiceStatusCanceled, InvoiceStatusPaid},
		{InvoiceStatusUnpaid, InvoiceStatusPaid},
		{InvoiceStatusOverdue, InvoiceStatusIssued},
		{InvoiceStatusIssued, InvoiceStatusUnpaid},
	}
	for _, tc := range denied {
		if policy.IsTransitionAllowed(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestPermissivePolicyAllowsAnyMove(t *testing.T) {
	policy := PermissivePolicy{}

	if !policy.IsTransitionAllowed(InvoiceStatusPaid, InvoiceStatusUnpaid) {
		t.Error("expected PAID -> UNPAID under the permissive policy")
	}
	if policy.IsTransitionAllowed(InvoiceStatusPaid, InvoiceStatusPaid) {
		t.Error("expected identity move to be denied")
	}
	if policy.IsTransitionAllowed(InvoiceStatusPaid, InvoiceStatus("BOGUS")) {
		t.Error("expected unknown state to be denied")
	}
}

func TestPolicyFromName(t *testing.T) {
	if PolicyFromName("permissive").Name() != "permissive" {
		t.Error("expected permissive policy")
	}
	if PolicyFromName("strict").Name() != "strict" {
		t.Error("expected strict policy")
	}
	if PolicyFromName("").Name() != "strict" {
		t.Error("expected strict policy as default")
	}
}

func TestApplyTransitionSetsTimestamps(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	inv := Invoice{Status: InvoiceStatusIssued}

	paid, err := ApplyTransition(StrictPolicy{}, inv, InvoiceStatusPaid, now)
	if err != nil {
		t.Fatalf("apply transition: %v", err)
	}
	if paid.Status != InvoiceStatusPaid {
		t.Fatalf("expected PAID, got %s", paid.Status)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(now) {
		t.Fatalf("expected paid_at %v, got %v", now, paid.PaidAt)
	}
	if !paid.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated_at %v, got %v", now, paid.UpdatedAt)
	}
}

func TestApplyTransitionKeepsExistingPaidAt(t *testing.T) {
	firstPaid := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	later := firstPaid.AddDate(0, 0, 10)
	inv := Invoice{Status: InvoiceStatusOverdue, PaidAt: &firstPaid}

	paid, err := ApplyTransition(PermissivePolicy{}, inv, InvoiceStatusPaid, later)
	if err != nil {
		t.Fatalf("apply transition: %v", err)
	}
	if !paid.PaidAt.Equal(firstPaid) {
		t.Fatalf("expected paid_at to stay %v, got %v", firstPaid, paid.PaidAt)
	}
}

func TestApplyTransitionRejectsIllegalMove(t *testing.T) {
	inv := Invoice{Status: InvoiceStatusPaid}

	_, err := ApplyTransition(StrictPolicy{}, inv, InvoiceStatusCanceled, time.Now().UTC())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
	if transitionErr.From != InvoiceStatusPaid || transitionErr.To != InvoiceStatusCanceled {
		t.Fatalf("unexpected transition detail: %v", transitionErr)
	}
}

func TestApplyTransitionRejectsUnknownState(t *testing.T) {
	inv := Invoice{Status: InvoiceStatusUnpaid}
	_, err := ApplyTransition(StrictPolicy{}, inv, InvoiceStatus("LOST"), time.Now().UTC())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
