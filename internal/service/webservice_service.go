package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
)

var (
	ErrWebServiceExists  = errors.New("a web service for this url already exists")
	ErrInvalidProtocol   = errors.New("protocol must be http or https")
	ErrWebServiceMissing = errors.New("web service not found")
)

// WebServiceService manages the registered Moodle connection profiles.
type WebServiceService struct {
	repo ports.WebServiceRepository
}

func NewWebServiceService(repo ports.WebServiceRepository) *WebServiceService {
	return &WebServiceService{repo: repo}
}

func (s *WebServiceService) Create(ctx context.Context, input ports.WebServiceInput) (*domain.WebService, error) {
	input.Protocol = strings.ToLower(strings.TrimSpace(input.Protocol))
	input.URL = normalizeHost(input.URL)
	input.Token = strings.TrimSpace(input.Token)
	input.ServiceName = strings.TrimSpace(input.ServiceName)

	if input.Protocol != domain.ProtocolHTTP && input.Protocol != domain.ProtocolHTTPS {
		return nil, ErrInvalidProtocol
	}
	if input.URL == "" {
		return nil, errors.New("url is required")
	}
	if input.Token == "" {
		return nil, errors.New("token is required")
	}
	if input.ServiceName == "" {
		return nil, errors.New("serviceName is required")
	}
	if input.Route == "" {
		input.Route = domain.DefaultWebServiceRoute
	}

	ws, err := s.repo.Create(ctx, input)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrWebServiceExists
		}
		return nil, fmt.Errorf("create web service: %w", err)
	}
	return ws, nil
}

func (s *WebServiceService) Update(ctx context.Context, id uuid.UUID, patch ports.WebServiceUpdate) (*domain.WebService, error) {
	if patch.Protocol != nil {
		p := strings.ToLower(strings.TrimSpace(*patch.Protocol))
		if p != domain.ProtocolHTTP && p != domain.ProtocolHTTPS {
			return nil, ErrInvalidProtocol
		}
		patch.Protocol = &p
	}
	if patch.URL != nil {
		u := normalizeHost(*patch.URL)
		if u == "" {
			return nil, errors.New("url cannot be empty")
		}
		patch.URL = &u
	}

	ws, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrWebServiceMissing
		}
		if isUniqueViolation(err) {
			return nil, ErrWebServiceExists
		}
		return nil, fmt.Errorf("update web service: %w", err)
	}
	return ws, nil
}

func (s *WebServiceService) Get(ctx context.Context, id uuid.UUID) (*domain.WebService, error) {
	ws, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrWebServiceMissing
		}
		return nil, err
	}
	return ws, nil
}

func (s *WebServiceService) List(ctx context.Context, limit, offset int) ([]domain.WebService, int64, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.List(ctx, limit, offset)
}

func (s *WebServiceService) ToggleActive(ctx context.Context, id uuid.UUID) (*domain.WebService, error) {
	ws, err := s.repo.ToggleActive(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrWebServiceMissing
		}
		return nil, err
	}
	return ws, nil
}

func (s *WebServiceService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrWebServiceMissing
		}
		return err
	}
	return nil
}

// ListURLs exposes the active instances to anonymous clients. base=simple
// returns hostnames only; base=full returns the scheme-qualified address.
// Tokens and credentials are never included either way.
func (s *WebServiceService) ListURLs(ctx context.Context, base string) ([]string, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active web services: %w", err)
	}
	urls := make([]string, 0, len(active))
	for i := range active {
		if base == "full" {
			urls = append(urls, active[i].BaseURL())
		} else {
			urls = append(urls, active[i].URL)
		}
	}
	return urls, nil
}

// normalizeHost strips a scheme pasted into the host field and any trailing
// slash, so "https://moodle.example.com/" stores as "moodle.example.com".
func normalizeHost(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	return strings.TrimRight(raw, "/")
}
