package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, name, email string, passwordHash, passwordSalt []byte, role string) (*domain.User, error)
	UpsertGoogleUser(ctx context.Context, email string, name *string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
