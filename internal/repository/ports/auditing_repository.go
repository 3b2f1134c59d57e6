package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
)

type AuditingCreate struct {
	MoodleUserID   *int64
	Username       *string
	Email          *string
	WebServiceID   *uuid.UUID
	Token          *string
	TokenExpiresAt *time.Time
	Status         string
	Description    string
}

type AuditingRepository interface {
	Create(ctx context.Context, input AuditingCreate) (*domain.Auditing, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.AuditingPatch) (*domain.Auditing, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Auditing, error)
	FindByToken(ctx context.Context, token string) (*domain.Auditing, error)
	// ConsumeToken flips token_used for the row holding this token, guarded
	// so that concurrent callers see exactly one true result.
	ConsumeToken(ctx context.Context, token, description string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]domain.Auditing, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
