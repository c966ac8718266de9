package render

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"
	"time"

	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.InvoiceNumber}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 32px;
      font-family: "Helvetica Neue", Arial, sans-serif;
      color: #111827;
      background: #ffffff;
    }
    .invoice {
      max-width: 820px;
      margin: 0 auto;
    }
    .header {
      display: flex;
      justify-content: space-between;
      align-items: flex-start;
      border-bottom: 2px solid #111827;
      padding-bottom: 16px;
      margin-bottom: 24px;
    }
    .meta {
      text-align: right;
      font-size: 14px;
    }
    .label {
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.04em;
      font-size: 11px;
    }
    .section {
      margin-bottom: 24px;
    }
    table {
      width: 100%;
      border-collapse: collapse;
      font-size: 14px;
    }
    th, td {
      padding: 10px;
      border-bottom: 1px solid #e5e7eb;
      text-align: left;
    }
    th {
      text-transform: uppercase;
      font-size: 11px;
      letter-spacing: 0.04em;
      color: #6b7280;
    }
    .totals {
      margin-top: 12px;
      margin-left: auto;
      width: 280px;
      font-size: 14px;
    }
    .totals div {
      display: flex;
      justify-content: space-between;
      padding: 4px 0;
    }
    .totals .grand {
      border-top: 1px solid #111827;
      font-size: 16px;
      font-weight: bold;
    }
    .footer {
      border-top: 1px solid #e5e7eb;
      padding-top: 16px;
      font-size: 12px;
      color: #6b7280;
    }
  </style>
</head>
<body>
  <div class="invoice">
    <div class="header">
      <div>
        <div class="label">Bill To</div>
        <div><strong>{{.CustomerName}}</strong></div>
      </div>
      <div class="meta">
        <div class="label">Invoice</div>
        <div><strong>{{.InvoiceNumber}}</strong></div>
        <div>Status: {{.Status}}</div>
        <div>Issued: {{formatDate .IssueDate}}</div>
        <div>Due: {{formatDate .DueDate}}</div>
      </div>
    </div>

    <div class="section">
      <div class="label">Billing Period</div>
      <div>{{formatDate .PeriodStart}} - {{formatDate .PeriodEnd}}</div>
    </div>

    <div class="section">
      <table>
        <thead>
          <tr>
            <th>Description</th>
            <th>Quantity</th>
            <th>Unit Price</th>
            <th>Tax</th>
            <th>Amount</th>
          </tr>
        </thead>
        <tbody>
          {{range .Items}}
          <tr>
            <td>{{.Name}}</td>
            <td>{{.Quantity}}</td>
            <td>{{formatMoney .UnitPrice}}</td>
            <td>{{.TaxRate}}%</td>
            <td>{{formatMoney .Amount}}</td>
          </tr>
          {{end}}
        </tbody>
      </table>
      <div class="totals">
        <div><span>Subtotal</span><span>{{formatMoney .SubtotalAmount}}</span></div>
        <div><span>Tax</span><span>{{formatMoney .TaxAmount}}</span></div>
        <div class="grand"><span>Total</span><span>{{formatMoney .TotalAmount}}</span></div>
      </div>
    </div>

    {{if .BankInfo.BankName}}
    <div class="section">
      <div class="label">Payment By Bank Transfer</div>
      <div>{{.BankInfo.BankName}} {{.BankInfo.BranchName}}</div>
      <div>{{.BankInfo.AccountType}} {{.BankInfo.AccountNumber}}</div>
      <div>{{.BankInfo.AccountHolder}}</div>
    </div>
    {{end}}

    <div class="footer">
      {{if .Notes}}<div>{{.Notes}}</div>{{end}}
      <div>Please settle the total amount by the due date.</div>
    </div>
  </div>
</body>
</html>
`

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatMoney": formatMoney,
		"formatDate":  formatDate,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(inv invoicedomain.Invoice) (string, error) {
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, inv); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatMoney renders a minor-unit amount as yen with thousands grouping.
func formatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return sign + "¥" + strings.Join(groups, ",")
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format("2006-01-02")
}
