package render

import (
	"strings"
	"testing"
	"time"

	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
)

func TestRenderHTML(t *testing.T) {
	inv := invoicedomain.Invoice{
		CustomerName:  "Acme Works",
		InvoiceNumber: "202402-1234-001",
		Status:        invoicedomain.InvoiceStatusIssued,
		IssueDate:     time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		PeriodStart:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		BankInfo: invoicedomain.BankInfo{
			BankName:      "Mizuho Bank",
			BranchName:    "Shibuya",
			AccountType:   invoicedomain.AccountTypeOrdinary,
			AccountNumber: "1234567",
			AccountHolder: "Acme Works Inc.",
		},
		Items: []invoicedomain.InvoiceItem{
			{Name: "Monthly fee", Quantity: 1, UnitPrice: 30000, TaxRate: 10, Amount: 30000, TaxAmount: 3000},
		},
		SubtotalAmount: 30000,
		TaxAmount:      3000,
		TotalAmount:    33000,
	}

	html, err := NewRenderer().RenderHTML(inv)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"202402-1234-001",
		"Acme Works",
		"Monthly fee",
		"¥30,000",
		"¥3,000",
		"¥33,000",
		"Mizuho Bank",
		"2024-02-29",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected rendered HTML to contain %q", want)
		}
	}
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	inv := invoicedomain.Invoice{
		CustomerName:  "<script>alert(1)</script>",
		InvoiceNumber: "202402-1-001",
		Status:        invoicedomain.InvoiceStatusUnpaid,
	}

	html, err := NewRenderer().RenderHTML(inv)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatal("expected customer name to be escaped")
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "¥0"},
		{999, "¥999"},
		{1000, "¥1,000"},
		{1234567, "¥1,234,567"},
		{-5000, "-¥5,000"},
	}
	for _, tc := range cases {
		if got := formatMoney(tc.in); got != tc.want {
			t.Errorf("formatMoney(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
