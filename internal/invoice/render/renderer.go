// Package render produces a printable HTML view of an invoice.
package render

import (
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
)

type Renderer interface {
	RenderHTML(inv invoicedomain.Invoice) (string, error)
}
