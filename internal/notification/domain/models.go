// Package domain contains the invoice notification records handed to the
// UI/email collaborator.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceNotification is an append-only inbox record. IsRead is the only
// field that changes after creation. DedupeKey, when set, makes repeated
// emission of the same logical event a no-op.
type InvoiceNotification struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Message   string       `gorm:"type:text;not null" json:"message"`
	IsRead    bool         `gorm:"not null;default:false" json:"is_read"`
	DedupeKey *string      `gorm:"uniqueIndex:ux_invoice_notifications_dedupe" json:"-"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceNotification) TableName() string { return "invoice_notifications" }
