package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditStatusPending = "pending"
	AuditStatusSuccess = "success"
	AuditStatusError   = "error"
)

// Auditing records one password-reset attempt. A row with a token set always
// carries an expiry and starts in pending status. token_used never reverts
// to false once set.
type Auditing struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	MoodleUserID   *int64     `db:"moodle_user_id" json:"moodle_user_id"`
	Username       *string    `db:"username" json:"username"`
	Email          *string    `db:"email" json:"email"`
	WebServiceID   *uuid.UUID `db:"webservice_id" json:"webservice_id"`
	Token          *string    `db:"token_user" json:"-"`
	TokenUsed      bool       `db:"token_used" json:"token_used"`
	EmailSent      bool       `db:"email_sent" json:"email_sent"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at"`
	Status         string     `db:"status" json:"status"`
	Description    *string    `db:"description" json:"description"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// AuditingPatch is a partial update. Nil fields are left untouched. The
// consumption flag is deliberately absent: it only flips through the
// conditional consume operation.
type AuditingPatch struct {
	Status      *string
	Description *string
	EmailSent   *bool
}
