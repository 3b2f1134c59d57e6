package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
)

type EmailTemplateInput struct {
	Name        string
	Description *string
	Subject     string
	Content     string
	Type        string
	IsActive    bool
	IsDefault   bool
}

type EmailTemplateUpdate struct {
	Name        *string
	Description *string
	Subject     *string
	Content     *string
	Type        *string
}

type EmailTemplateRepository interface {
	Create(ctx context.Context, input EmailTemplateInput) (*domain.EmailTemplate, error)
	Update(ctx context.Context, id uuid.UUID, patch EmailTemplateUpdate) (*domain.EmailTemplate, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error)
	// FindDefault returns the single template that is both default and
	// active, the one the reset flow renders.
	FindDefault(ctx context.Context) (*domain.EmailTemplate, error)
	List(ctx context.Context, limit, offset int) ([]domain.EmailTemplate, int64, error)
	// SetDefault clears every default flag and then sets one, inside a single
	// transaction.
	SetDefault(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
