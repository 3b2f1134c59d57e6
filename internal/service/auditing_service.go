package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
)

var ErrAuditingMissing = errors.New("auditing record not found")

// AuditingService exposes the reset ledger to operators. It never touches
// the consumption flag; that only moves through the reset flow.
type AuditingService struct {
	repo ports.AuditingRepository
}

func NewAuditingService(repo ports.AuditingRepository) *AuditingService {
	return &AuditingService{repo: repo}
}

func (s *AuditingService) List(ctx context.Context, limit, offset int) ([]domain.Auditing, int64, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.List(ctx, limit, offset)
}

func (s *AuditingService) Get(ctx context.Context, id uuid.UUID) (*domain.Auditing, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAuditingMissing
		}
		return nil, err
	}
	return record, nil
}

func (s *AuditingService) Update(ctx context.Context, id uuid.UUID, patch domain.AuditingPatch) (*domain.Auditing, error) {
	if patch.Status != nil {
		switch *patch.Status {
		case domain.AuditStatusPending, domain.AuditStatusSuccess, domain.AuditStatusError:
		default:
			return nil, fmt.Errorf("invalid status %q", *patch.Status)
		}
	}
	record, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAuditingMissing
		}
		return nil, fmt.Errorf("update auditing record: %w", err)
	}
	return record, nil
}

func (s *AuditingService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrAuditingMissing
		}
		return err
	}
	return nil
}
