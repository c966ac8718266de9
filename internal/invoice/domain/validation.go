package domain

import "fmt"

// ValidationError reports a malformed invoice draft with the offending field.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation_failed: %s (%s)", e.Field, e.Rule)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDraft
}

func newValidationError(field, rule, message string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule, Message: message}
}

// ItemDraft is one requested invoice line.
type ItemDraft struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	TaxRate     int64   `json:"tax_rate"`
}

// Validate enforces the draft invariants before anything is persisted.
func (d CreateInvoiceRequest) Validate() error {
	if d.TenantID == 0 {
		return newValidationError("tenant_id", "required", "tenant_id is required")
	}
	if d.CustomerID == 0 {
		return newValidationError("customer_id", "required", "customer_id is required")
	}
	if d.IssueDate.IsZero() {
		return newValidationError("issue_date", "required", "issue_date is required")
	}
	if d.DueDate.IsZero() {
		return newValidationError("due_date", "required", "due_date is required")
	}
	if d.PeriodStart.IsZero() || d.PeriodEnd.IsZero() {
		return newValidationError("period", "required", "period_start and period_end are required")
	}
	if d.PeriodEnd.Before(d.PeriodStart) {
		return newValidationError("period_end", "order", "period_end must not be before period_start")
	}
	if len(d.Items) == 0 {
		return newValidationError("items", "required", "at least one item is required")
	}
	for idx, item := range d.Items {
		if item.Name == "" {
			return newValidationError(fmt.Sprintf("items[%d].name", idx), "required", "item name is required")
		}
		if item.Quantity <= 0 {
			return newValidationError(fmt.Sprintf("items[%d].quantity", idx), "positive", "quantity must be greater than zero")
		}
		if item.UnitPrice < 0 {
			return newValidationError(fmt.Sprintf("items[%d].unit_price", idx), "non_negative", "unit_price must not be negative")
		}
		if item.TaxRate < 0 {
			return newValidationError(fmt.Sprintf("items[%d].tax_rate", idx), "non_negative", "tax_rate must not be negative")
		}
	}
	return nil
}
