package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
)

type WebServiceInput struct {
	Protocol       string
	URL            string
	Token          string
	Route          string
	ServiceName    string
	MoodleUser     *string
	MoodlePassword *string
	IsActive       bool
}

// WebServiceUpdate is a partial update; nil fields are left untouched.
type WebServiceUpdate struct {
	Protocol       *string
	URL            *string
	Token          *string
	Route          *string
	ServiceName    *string
	MoodleUser     *string
	MoodlePassword *string
}

type WebServiceRepository interface {
	Create(ctx context.Context, input WebServiceInput) (*domain.WebService, error)
	Update(ctx context.Context, id uuid.UUID, patch WebServiceUpdate) (*domain.WebService, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.WebService, error)
	FindActiveByURL(ctx context.Context, url string) (*domain.WebService, error)
	List(ctx context.Context, limit, offset int) ([]domain.WebService, int64, error)
	ListActive(ctx context.Context) ([]domain.WebService, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*domain.WebService, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
