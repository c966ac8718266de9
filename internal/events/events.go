// Package events stores invoice lifecycle events in a billing-events outbox
// for downstream delivery (inbox, email, SMS).
package events

// Invoice lifecycle event types.
const (
	EventInvoiceIssued   = "invoice_issued"
	EventInvoicePaid     = "invoice_paid"
	EventInvoiceOverdue  = "invoice_overdue"
	EventInvoiceCanceled = "invoice_canceled"
	EventUnpaidReminder  = "invoice_unpaid_reminder"
	EventIssuedReminder  = "invoice_issued_reminder"
)

// InvoicePayload captures the minimal data a consumer needs to act on an
// invoice event.
type InvoicePayload struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	CustomerID    string `json:"customer_id"`
	Status        string `json:"status,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p InvoicePayload) ToMap() map[string]any {
	payload := map[string]any{
		"invoice_id":     p.InvoiceID,
		"invoice_number": p.InvoiceNumber,
		"customer_id":    p.CustomerID,
	}
	if p.Status != "" {
		payload["status"] = p.Status
	}
	return payload
}
