package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
	"github.com/dvizioon/oxypass/internal/template"
	"github.com/dvizioon/oxypass/internal/util"
)

// MaskedResetMessage is the only thing an anonymous caller learns about a
// reset request, whether or not the account exists.
const MaskedResetMessage = "If the user exists, a password reset email has been sent"

var (
	ErrIdentifierRequired = errors.New("email or username is required")
	ErrIdentifierConflict = errors.New("provide either email or username, not both")
	ErrMoodleURLRequired  = errors.New("moodleUrl is required")
	ErrWebServiceNotFound = errors.New("no active web service for this moodle url")
	ErrUserSuspended      = errors.New("account is suspended")

	ErrTemplateNotConfigured = errors.New("no default email template configured")
	ErrEmailSendFailed       = errors.New("could not send the reset email")

	ErrTokenNotFound = errors.New("token not found")
	ErrTokenConsumed = errors.New("token already used or expired")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("token invalid")
)

// ResetRequestResult is the caller-visible outcome of a reset request.
// Masked outcomes carry Message alone; a genuinely started reset also
// carries the remote user's basic identity and the token lifetime.
type ResetRequestResult struct {
	Message   string            `json:"message"`
	User      *ResetRequestUser `json:"user,omitempty"`
	ExpiresIn string            `json:"expiresIn,omitempty"`
}

// ResetRequestUser is the slice of the remote identity the caller gets
// back after a reset email went out.
type ResetRequestUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// ResetMailSender delivers one rendered notification.
type ResetMailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type ResetConfig struct {
	// FrontendBaseURL is where the reset link points, e.g. the SPA origin.
	FrontendBaseURL string
	// ResetPath is appended to the base URL with the token as its value.
	ResetPath string
	// ServiceName is exposed to templates as {{system.name}}.
	ServiceName string
}

// ResetService orchestrates the password reset lifecycle: request, token
// validation, consumption and the remote password change.
type ResetService struct {
	audits    ports.AuditingRepository
	services  ports.WebServiceRepository
	templates ports.EmailTemplateRepository
	moodle    ports.MoodleClient
	tokens    *util.ResetTokenManager
	mailer    ResetMailSender
	cfg       ResetConfig
	logger    *log.Logger
	now       func() time.Time
}

func NewResetService(
	audits ports.AuditingRepository,
	services ports.WebServiceRepository,
	templates ports.EmailTemplateRepository,
	moodle ports.MoodleClient,
	tokens *util.ResetTokenManager,
	mailer ResetMailSender,
	cfg ResetConfig,
	logger *log.Logger,
) *ResetService {
	if cfg.ResetPath == "" {
		cfg.ResetPath = "reset-password?token"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "OxyPass"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ResetService{
		audits:    audits,
		services:  services,
		templates: templates,
		moodle:    moodle,
		tokens:    tokens,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// RequestPasswordReset starts a reset for the account matching email or
// username on the Moodle instance at moodleURL. Lookup failures of any kind
// are masked behind MaskedResetMessage so callers cannot probe which
// accounts exist; a suspended account is the one deliberate exception.
func (s *ResetService) RequestPasswordReset(ctx context.Context, moodleURL, email, username string) (*ResetRequestResult, error) {
	moodleURL = strings.TrimSpace(moodleURL)
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if moodleURL == "" {
		return nil, ErrMoodleURLRequired
	}
	if email == "" && username == "" {
		return nil, ErrIdentifierRequired
	}
	if email != "" && username != "" {
		return nil, ErrIdentifierConflict
	}

	field := ports.MoodleSearchByEmail
	value := email
	if username != "" {
		field = ports.MoodleSearchByUsername
		value = username
	}

	ws, err := s.services.FindActiveByURL(ctx, moodleURL)
	if err != nil {
		if isNotFound(err) {
			s.logger.Printf("reset request for unknown moodle url %q", moodleURL)
			s.recordFailure(ctx, nil, field, value, nil, "no active web service for this url")
			return &ResetRequestResult{Message: MaskedResetMessage}, nil
		}
		return nil, fmt.Errorf("lookup web service: %w", err)
	}

	user, err := s.moodle.FindUser(ctx, ws, field, value)
	if err != nil {
		s.logger.Printf("reset lookup failed on %s: %v", ws.URL, err)
		s.recordFailure(ctx, ws, field, value, nil, fmt.Sprintf("user lookup failed: %v", err))
		return &ResetRequestResult{Message: MaskedResetMessage}, nil
	}

	if user.Suspended {
		s.recordFailure(ctx, ws, field, value, user, "account is suspended")
		return nil, ErrUserSuspended
	}

	token, expiresAt, err := s.tokens.Generate(user.ID, user.Username, user.Email, moodleURL)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	record, err := s.audits.Create(ctx, ports.AuditingCreate{
		MoodleUserID:   &user.ID,
		Username:       &user.Username,
		Email:          &user.Email,
		WebServiceID:   &ws.ID,
		Token:          &token,
		TokenExpiresAt: &expiresAt,
		Status:         domain.AuditStatusPending,
		Description:    "password reset requested",
	})
	if err != nil {
		return nil, fmt.Errorf("record reset request: %w", err)
	}

	if err := s.sendResetEmail(ctx, user, ws, token, record); err != nil {
		return nil, err
	}

	return &ResetRequestResult{
		Message: "Password reset email sent successfully",
		User: &ResetRequestUser{
			ID:       user.ID,
			Username: user.Username,
			Fullname: user.Fullname,
			Email:    user.Email,
		},
		ExpiresIn: util.HumanDuration(s.tokens.TTL()),
	}, nil
}

func (s *ResetService) sendResetEmail(ctx context.Context, user *domain.MoodleUser, ws *domain.WebService, token string, record *domain.Auditing) error {
	tmpl, err := s.templates.FindDefault(ctx)
	if err != nil {
		if isNotFound(err) {
			s.markError(ctx, record.ID, "no default email template configured")
			return ErrTemplateNotConfigured
		}
		return fmt.Errorf("load default template: %w", err)
	}

	link := fmt.Sprintf("%s/%s=%s", strings.TrimRight(s.cfg.FrontendBaseURL, "/"), s.cfg.ResetPath, token)
	vars := template.Variables(user, ws, template.Extra{
		ResetLink:      link,
		ResetToken:     token,
		ExpirationTime: util.HumanDuration(s.tokens.TTL()),
		SystemName:     s.cfg.ServiceName,
		Now:            s.now(),
	})

	subject := template.Replace(tmpl.Subject, vars)
	body := template.Replace(tmpl.Content, vars)

	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Printf("reset email to %s failed: %v", user.Email, err)
		s.markError(ctx, record.ID, fmt.Sprintf("email delivery failed: %v", err))
		return ErrEmailSendFailed
	}

	sent := true
	status := domain.AuditStatusSuccess
	description := "reset email sent"
	if _, err := s.audits.Update(ctx, record.ID, domain.AuditingPatch{Status: &status, Description: &description, EmailSent: &sent}); err != nil {
		s.logger.Printf("could not finalize record %s after send: %v", record.ID, err)
	}
	return nil
}

// ValidateResetToken checks a token against the ledger first and the
// signature second. The ledger's expiry is authoritative; the embedded
// expiry is a secondary integrity check. Validation has no side effects on
// success, but a token found to be expired is marked so in the ledger.
func (s *ResetService) ValidateResetToken(ctx context.Context, token string) (*util.ResetClaims, *domain.Auditing, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrTokenInvalid
	}

	record, err := s.audits.FindByToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrTokenNotFound
		}
		return nil, nil, fmt.Errorf("lookup token: %w", err)
	}

	if record.TokenUsed {
		return nil, nil, ErrTokenConsumed
	}
	if record.TokenExpiresAt != nil && s.now().After(*record.TokenExpiresAt) {
		s.markError(ctx, record.ID, "token expired")
		return nil, nil, ErrTokenExpired
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrResetTokenExpired):
			s.markError(ctx, record.ID, "token expired")
			return nil, nil, ErrTokenExpired
		default:
			s.markError(ctx, record.ID, "token failed verification")
			return nil, nil, ErrTokenInvalid
		}
	}

	return claims, record, nil
}

// MarkTokenAsUsed consumes a token. At most one caller ever succeeds for a
// given token; every later attempt gets ErrTokenConsumed.
func (s *ResetService) MarkTokenAsUsed(ctx context.Context, token, description string) error {
	if _, _, err := s.ValidateResetToken(ctx, token); err != nil {
		return err
	}
	if description == "" {
		description = "used successfully"
	}
	ok, err := s.audits.ConsumeToken(ctx, token, description)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if !ok {
		return ErrTokenConsumed
	}
	return nil
}

// ChangePassword applies a new password on the remote Moodle instance after
// the token checks out, then consumes the token. A failure to consume after
// the remote accepted the change is logged but does not fail the call: the
// password is already changed.
func (s *ResetService) ChangePassword(ctx context.Context, token, newPassword string) error {
	if err := util.ValidateNewPassword(newPassword); err != nil {
		return err
	}

	claims, _, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		return err
	}

	ws, err := s.services.FindActiveByURL(ctx, claims.MoodleURL)
	if err != nil {
		if isNotFound(err) {
			return ErrWebServiceNotFound
		}
		return fmt.Errorf("lookup web service: %w", err)
	}

	if _, err := s.moodle.UpdateUser(ctx, ws, claims.UserID, map[string]string{"password": newPassword}); err != nil {
		s.markErrorByToken(ctx, token, fmt.Sprintf("password update failed: %v", err))
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.MarkTokenAsUsed(ctx, token, "used successfully"); err != nil {
		s.logger.Printf("password changed but token %q could not be consumed: %v", token, err)
	}
	return nil
}

// FindUser is the administrative lookup. Unlike the reset request it is not
// masked: the caller is authenticated and entitled to the real answer.
func (s *ResetService) FindUser(ctx context.Context, moodleURL string, field ports.MoodleSearchField, value string) (*domain.MoodleUser, error) {
	moodleURL = strings.TrimSpace(moodleURL)
	value = strings.TrimSpace(value)
	if moodleURL == "" {
		return nil, ErrMoodleURLRequired
	}
	if value == "" {
		return nil, ErrIdentifierRequired
	}

	ws, err := s.services.FindActiveByURL(ctx, moodleURL)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrWebServiceNotFound
		}
		return nil, fmt.Errorf("lookup web service: %w", err)
	}

	return s.moodle.FindUser(ctx, ws, field, value)
}

// recordFailure writes an error row so failed attempts stay visible to
// operators even when the caller only sees the masked message.
func (s *ResetService) recordFailure(ctx context.Context, ws *domain.WebService, field ports.MoodleSearchField, value string, user *domain.MoodleUser, description string) {
	input := ports.AuditingCreate{
		Status:      domain.AuditStatusError,
		Description: description,
	}
	if ws != nil {
		input.WebServiceID = &ws.ID
	}
	if user != nil {
		input.MoodleUserID = &user.ID
		input.Username = &user.Username
		input.Email = &user.Email
	} else if field == ports.MoodleSearchByEmail {
		input.Email = &value
	} else {
		input.Username = &value
	}
	if _, err := s.audits.Create(ctx, input); err != nil {
		s.logger.Printf("could not record failed reset attempt: %v", err)
	}
}

func (s *ResetService) markError(ctx context.Context, id uuid.UUID, description string) {
	status := domain.AuditStatusError
	if _, err := s.audits.Update(ctx, id, domain.AuditingPatch{Status: &status, Description: &description}); err != nil {
		s.logger.Printf("could not mark record %s as error: %v", id, err)
	}
}

func (s *ResetService) markErrorByToken(ctx context.Context, token, description string) {
	record, err := s.audits.FindByToken(ctx, token)
	if err != nil {
		s.logger.Printf("could not load record for token: %v", err)
		return
	}
	s.markError(ctx, record.ID, description)
}
