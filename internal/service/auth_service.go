package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
	"github.com/dvizioon/oxypass/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
)

// googleValidator verifies a Google ID token. The indirection exists so
// tests do not have to mint real Google credentials.
type googleValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// AuthService authenticates the administrative users of the service itself,
// not the Moodle accounts it proxies.
type AuthService struct {
	users          ports.UserRepository
	sessions       *util.JWTManager
	googleAudience string
	validateGoogle googleValidator
	logger         *log.Logger
}

func NewAuthService(users ports.UserRepository, sessions *util.JWTManager, googleAudience string, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		googleAudience: googleAudience,
		validateGoogle: idtoken.Validate,
		logger:         logger,
	}
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(user)
}

// LoginWithGoogle exchanges a verified Google ID token for a session. The
// account is created on first sight so operators can be onboarded through
// the identity provider alone.
func (s *AuthService) LoginWithGoogle(ctx context.Context, googleToken string) (*Session, error) {
	if strings.TrimSpace(googleToken) == "" {
		return nil, ErrInvalidCredentials
	}

	payload, err := s.validateGoogle(ctx, googleToken, s.googleAudience)
	if err != nil {
		s.logger.Printf("google token rejected: %v", err)
		return nil, ErrInvalidCredentials
	}

	email, _ := payload.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	var name *string
	if n, ok := payload.Claims["name"].(string); ok && n != "" {
		name = &n
	}

	user, err := s.users.UpsertGoogleUser(ctx, email, name)
	if err != nil {
		return nil, fmt.Errorf("upsert google user: %w", err)
	}

	return s.issueSession(user)
}

// Authenticate resolves a session token back to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *AuthService) Register(ctx context.Context, name, email, password, role string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	if err := util.ValidateNewPassword(password); err != nil {
		return nil, err
	}
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}

	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		return nil, fmt.Errorf("derive password: %w", err)
	}

	user, err := s.users.Create(ctx, name, email, hash, salt, role)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	limit, offset = normalizePage(limit, offset)
	return s.users.List(ctx, limit, offset)
}

func (s *AuthService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *AuthService) issueSession(user *domain.User) (*Session, error) {
	token, expiresAt, err := s.sessions.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
