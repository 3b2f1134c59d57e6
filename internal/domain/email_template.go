package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TemplateTypeHTML = "html"
	TemplateTypeText = "text"
)

// EmailTemplate is a notification template. At most one template is the
// active default; the reset flow renders that one.
type EmailTemplate struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	Subject     string    `db:"subject" json:"subject"`
	Content     string    `db:"content" json:"content"`
	Type        string    `db:"type" json:"type"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	IsDefault   bool      `db:"is_default" json:"is_default"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
