package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
)

type createInvoiceRequest struct {
	TenantID     string                    `json:"tenant_id"`
	CustomerID   string                    `json:"customer_id"`
	CustomerName string                    `json:"customer_name"`
	IssueDate    string                    `json:"issue_date"`
	DueDate      string                    `json:"due_date"`
	PeriodStart  string                    `json:"period_start"`
	PeriodEnd    string                    `json:"period_end"`
	Notes        *string                   `json:"notes"`
	Items        []invoicedomain.ItemDraft `json:"items"`
	BankInfo     *invoicedomain.BankInfo   `json:"bank_info"`
}

// @Summary      Create Invoice
// @Description  Create a new invoice draft
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body createInvoiceRequest true "Create Invoice Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices [post]
func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenantID, err := parseID(req.TenantID)
	if err != nil {
		AbortWithError(c, newValidationError("tenant_id", "invalid_id", "invalid tenant_id"))
		return
	}
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_id", "invalid customer_id"))
		return
	}

	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_date", "invalid due_date"))
		return
	}
	periodStart, err := parseDate(req.PeriodStart)
	if err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_date", "invalid period_start"))
		return
	}
	periodEnd, err := parseDate(req.PeriodEnd)
	if err != nil {
		AbortWithError(c, newValidationError("period_end", "invalid_date", "invalid period_end"))
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		TenantID:     tenantID,
		CustomerID:   customerID,
		CustomerName: strings.TrimSpace(req.CustomerName),
		IssueDate:    issueDate,
		DueDate:      dueDate,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		Notes:        req.Notes,
		Items:        req.Items,
		BankInfo:     req.BankInfo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Invoices
// @Description  List invoices with optional filters
// @Tags         invoices
// @Produce      json
// @Param        status         query  string  false  "Status"
// @Param        start_date     query  string  false  "Issue date from"
// @Param        end_date       query  string  false  "Issue date to"
// @Param        customer_id    query  string  false  "Customer ID"
// @Param        customer_name  query  string  false  "Customer name substring"
// @Success      200  {object}  []invoicedomain.Invoice
// @Router       /invoices [get]
func (s *Server) ListInvoices(c *gin.Context) {
	var filter invoicedomain.FilterOptions

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := invoicedomain.InvoiceStatus(raw)
		if !status.Valid() {
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("start_date")); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			AbortWithError(c, newValidationError("start_date", "invalid_date", "invalid start_date"))
			return
		}
		filter.StartDate = &start
	}
	if raw := strings.TrimSpace(c.Query("end_date")); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			AbortWithError(c, newValidationError("end_date", "invalid_date", "invalid end_date"))
			return
		}
		filter.EndDate = &end
	}
	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		customerID, err := parseID(raw)
		if err != nil {
			AbortWithError(c, newValidationError("customer_id", "invalid_id", "invalid customer_id"))
			return
		}
		filter.CustomerID = &customerID
	}
	if raw := strings.TrimSpace(c.Query("customer_name")); raw != "" {
		filter.CustomerName = &raw
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Invoice
// @Description  Get invoice by ID
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id} [get]
func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateInvoiceRequest struct {
	IssueDate   *string                    `json:"issue_date"`
	DueDate     *string                    `json:"due_date"`
	PeriodStart *string                    `json:"period_start"`
	PeriodEnd   *string                    `json:"period_end"`
	Notes       *string                    `json:"notes"`
	Items       *[]invoicedomain.ItemDraft `json:"items"`
}

// @Summary      Update Invoice
// @Description  Patch invoice fields; replacing items recomputes totals
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "Invoice ID"
// @Param        request  body  updateInvoiceRequest  true  "Update Invoice Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id} [patch]
func (s *Server) UpdateInvoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patch := invoicedomain.UpdateInvoiceRequest{
		Notes: req.Notes,
		Items: req.Items,
	}
	if patch.IssueDate, err = parseOptionalDate(req.IssueDate); err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_date", "invalid issue_date"))
		return
	}
	if patch.DueDate, err = parseOptionalDate(req.DueDate); err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_date", "invalid due_date"))
		return
	}
	if patch.PeriodStart, err = parseOptionalDate(req.PeriodStart); err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_date", "invalid period_start"))
		return
	}
	if patch.PeriodEnd, err = parseOptionalDate(req.PeriodEnd); err != nil {
		AbortWithError(c, newValidationError("period_end", "invalid_date", "invalid period_end"))
		return
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), id, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// @Summary      Update Invoice Status
// @Description  Move the invoice through its lifecycle
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path  string               true  "Invoice ID"
// @Param        request  body  updateStatusRequest  true  "Target status"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id}/status [post]
func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.UpdateStatus(c.Request.Context(), id, invoicedomain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(req.Status))))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Cancel Invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path  string  true  "Invoice ID"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id}/cancel [post]
func (s *Server) CancelInvoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	resp, err := s.invoiceSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Mark Invoice Paid
// @Tags         invoices
// @Produce      json
// @Param        id   path  string  true  "Invoice ID"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id}/pay [post]
func (s *Server) MarkInvoicePaid(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	resp, err := s.invoiceSvc.MarkAsPaid(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Render Invoice HTML
// @Description  Printable HTML view of an invoice
// @Tags         invoices
// @Produce      html
// @Param        id   path  string  true  "Invoice ID"
// @Success      200  {string}  string
// @Router       /invoices/{id}/html [get]
func (s *Server) RenderInvoiceHTML(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	html, err := s.renderer.RenderHTML(inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(value))
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
