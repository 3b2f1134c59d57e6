package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
	"github.com/dvizioon/oxypass/internal/template"
)

var (
	ErrTemplateMissing     = errors.New("email template not found")
	ErrInvalidTemplateType = errors.New("type must be html or text")
)

// TemplateService manages the stored notification templates.
type TemplateService struct {
	repo ports.EmailTemplateRepository
}

func NewTemplateService(repo ports.EmailTemplateRepository) *TemplateService {
	return &TemplateService{repo: repo}
}

func validateTemplateFields(name, subject, content, typ string) error {
	if n := len(strings.TrimSpace(name)); n < 2 || n > 100 {
		return errors.New("name must be between 2 and 100 characters")
	}
	if n := len(strings.TrimSpace(subject)); n < 2 || n > 200 {
		return errors.New("subject must be between 2 and 200 characters")
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("content is required")
	}
	if typ != domain.TemplateTypeHTML && typ != domain.TemplateTypeText {
		return ErrInvalidTemplateType
	}
	return nil
}

func (s *TemplateService) Create(ctx context.Context, input ports.EmailTemplateInput) (*domain.EmailTemplate, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Type = strings.ToLower(strings.TrimSpace(input.Type))

	if err := validateTemplateFields(input.Name, input.Subject, input.Content, input.Type); err != nil {
		return nil, err
	}
	if input.Description != nil && len(*input.Description) > 500 {
		return nil, errors.New("description must be at most 500 characters")
	}

	tmpl, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return tmpl, nil
}

func (s *TemplateService) Update(ctx context.Context, id uuid.UUID, patch ports.EmailTemplateUpdate) (*domain.EmailTemplate, error) {
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		if len(n) < 2 || len(n) > 100 {
			return nil, errors.New("name must be between 2 and 100 characters")
		}
		patch.Name = &n
	}
	if patch.Subject != nil {
		sub := strings.TrimSpace(*patch.Subject)
		if len(sub) < 2 || len(sub) > 200 {
			return nil, errors.New("subject must be between 2 and 200 characters")
		}
		patch.Subject = &sub
	}
	if patch.Description != nil && len(*patch.Description) > 500 {
		return nil, errors.New("description must be at most 500 characters")
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return nil, errors.New("content cannot be empty")
	}
	if patch.Type != nil {
		typ := strings.ToLower(strings.TrimSpace(*patch.Type))
		if typ != domain.TemplateTypeHTML && typ != domain.TemplateTypeText {
			return nil, ErrInvalidTemplateType
		}
		patch.Type = &typ
	}

	tmpl, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTemplateMissing
		}
		return nil, fmt.Errorf("update template: %w", err)
	}
	return tmpl, nil
}

func (s *TemplateService) Get(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	tmpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTemplateMissing
		}
		return nil, err
	}
	return tmpl, nil
}

func (s *TemplateService) List(ctx context.Context, limit, offset int) ([]domain.EmailTemplate, int64, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.List(ctx, limit, offset)
}

// SetDefault promotes one template to be the default. The previous default
// is demoted in the same transaction, so there is never more than one.
func (s *TemplateService) SetDefault(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	tmpl, err := s.repo.SetDefault(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTemplateMissing
		}
		return nil, fmt.Errorf("set default template: %w", err)
	}
	return tmpl, nil
}

func (s *TemplateService) ToggleActive(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	tmpl, err := s.repo.ToggleActive(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTemplateMissing
		}
		return nil, err
	}
	return tmpl, nil
}

func (s *TemplateService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrTemplateMissing
		}
		return err
	}
	return nil
}

// Variables lists every placeholder a template may use.
func (s *TemplateService) Variables() []template.VariableDoc {
	return template.Catalogue()
}
