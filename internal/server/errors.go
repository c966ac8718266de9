package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/invoiceflow/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	notificationdomain "github.com/smallbiznis/invoiceflow/internal/notification/domain"
)

// APIError is the JSON error envelope returned by every handler.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code }

func newValidationError(field, code, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Field: field, Message: message}
}

func invalidRequestError() *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "malformed request body"}
}

// AbortWithError maps domain errors onto HTTP statuses and writes the
// envelope.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	var validationErr *invoicedomain.ValidationError
	if errors.As(err, &validationErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": &APIError{
			Code:    "validation_failed",
			Field:   validationErr.Field,
			Message: validationErr.Message,
		}})
		return
	}

	var transitionErr *invoicedomain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": &APIError{
			Code:    "invalid_transition",
			Message: transitionErr.Error(),
		}})
		return
	}

	switch {
	case errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, notificationdomain.ErrNotificationNotFound),
		errors.Is(err, customerdomain.ErrProfileNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": &APIError{
			Code:    "not_found",
			Message: err.Error(),
		}})
	case errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceID):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": &APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": &APIError{
			Code:    "internal_error",
			Message: "internal server error",
		}})
	}
}
