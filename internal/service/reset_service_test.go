package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
	"github.com/dvizioon/oxypass/internal/util"
)

type fakeAuditingRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.Auditing

	createErr  error
	consumeErr error
}

func newFakeAuditingRepo() *fakeAuditingRepo {
	return &fakeAuditingRepo{records: make(map[uuid.UUID]*domain.Auditing)}
}

func (f *fakeAuditingRepo) Create(ctx context.Context, input ports.AuditingCreate) (*domain.Auditing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	desc := input.Description
	record := &domain.Auditing{
		ID:             uuid.New(),
		MoodleUserID:   input.MoodleUserID,
		Username:       input.Username,
		Email:          input.Email,
		WebServiceID:   input.WebServiceID,
		Token:          input.Token,
		TokenExpiresAt: input.TokenExpiresAt,
		Status:         input.Status,
		Description:    &desc,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeAuditingRepo) Update(ctx context.Context, id uuid.UUID, patch domain.AuditingPatch) (*domain.Auditing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if patch.Status != nil {
		record.Status = *patch.Status
	}
	if patch.Description != nil {
		record.Description = patch.Description
	}
	if patch.EmailSent != nil {
		record.EmailSent = *patch.EmailSent
	}
	record.UpdatedAt = time.Now()
	return record, nil
}

func (f *fakeAuditingRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Auditing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (f *fakeAuditingRepo) FindByToken(ctx context.Context, token string) (*domain.Auditing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.Token != nil && *record.Token == token {
			copied := *record
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuditingRepo) ConsumeToken(ctx context.Context, token, description string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return false, f.consumeErr
	}
	for _, record := range f.records {
		if record.Token != nil && *record.Token == token && !record.TokenUsed {
			record.TokenUsed = true
			record.Status = domain.AuditStatusSuccess
			record.Description = &description
			record.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAuditingRepo) List(ctx context.Context, limit, offset int) ([]domain.Auditing, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Auditing, 0, len(f.records))
	for _, record := range f.records {
		out = append(out, *record)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAuditingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.records, id)
	return nil
}

func (f *fakeAuditingRepo) byToken(t *testing.T, token string) *domain.Auditing {
	t.Helper()
	record, err := f.FindByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ledger row for token missing: %v", err)
	}
	return record
}

func (f *fakeAuditingRepo) statuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.records))
	for _, record := range f.records {
		out = append(out, record.Status)
	}
	return out
}

type fakeWebServiceRepo struct {
	byURL map[string]*domain.WebService
}

func (f *fakeWebServiceRepo) Create(ctx context.Context, input ports.WebServiceInput) (*domain.WebService, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeWebServiceRepo) Update(ctx context.Context, id uuid.UUID, patch ports.WebServiceUpdate) (*domain.WebService, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeWebServiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.WebService, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeWebServiceRepo) FindActiveByURL(ctx context.Context, url string) (*domain.WebService, error) {
	ws, ok := f.byURL[url]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ws, nil
}

func (f *fakeWebServiceRepo) List(ctx context.Context, limit, offset int) ([]domain.WebService, int64, error) {
	return nil, 0, nil
}

func (f *fakeWebServiceRepo) ListActive(ctx context.Context) ([]domain.WebService, error) {
	out := make([]domain.WebService, 0, len(f.byURL))
	for _, ws := range f.byURL {
		out = append(out, *ws)
	}
	return out, nil
}

func (f *fakeWebServiceRepo) ToggleActive(ctx context.Context, id uuid.UUID) (*domain.WebService, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeWebServiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return sql.ErrNoRows
}

type fakeTemplateRepo struct {
	defaultTemplate *domain.EmailTemplate
	defaultErr      error
}

func (f *fakeTemplateRepo) Create(ctx context.Context, input ports.EmailTemplateInput) (*domain.EmailTemplate, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTemplateRepo) Update(ctx context.Context, id uuid.UUID, patch ports.EmailTemplateUpdate) (*domain.EmailTemplate, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeTemplateRepo) FindDefault(ctx context.Context) (*domain.EmailTemplate, error) {
	if f.defaultErr != nil {
		return nil, f.defaultErr
	}
	return f.defaultTemplate, nil
}

func (f *fakeTemplateRepo) List(ctx context.Context, limit, offset int) ([]domain.EmailTemplate, int64, error) {
	return nil, 0, nil
}

func (f *fakeTemplateRepo) SetDefault(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeTemplateRepo) ToggleActive(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return sql.ErrNoRows
}

type fakeMoodleClient struct {
	mu sync.Mutex

	findResult *domain.MoodleUser
	findErr    error
	findCalls  int

	updateErr    error
	updateCalls  int
	updateUserID int64
	updateFields map[string]string
}

func (f *fakeMoodleClient) FindUser(ctx context.Context, ws *domain.WebService, field ports.MoodleSearchField, value string) (*domain.MoodleUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	return f.findResult, f.findErr
}

func (f *fakeMoodleClient) UpdateUser(ctx context.Context, ws *domain.WebService, userID int64, fields map[string]string) (*domain.MoodleUpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.updateUserID = userID
	f.updateFields = fields
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.MoodleUpdateResult{UserID: userID}, nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sendErr error
	to      string
	subject string
	body    string
	sent    int
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	f.to = to
	f.subject = subject
	f.body = body
	return f.sendErr
}

type resetFixture struct {
	svc       *ResetService
	audits    *fakeAuditingRepo
	services  *fakeWebServiceRepo
	templates *fakeTemplateRepo
	moodle    *fakeMoodleClient
	mailer    *fakeMailer
	tokens    *util.ResetTokenManager
	ws        *domain.WebService
	user      *domain.MoodleUser
}

func newResetFixture() *resetFixture {
	ws := &domain.WebService{
		ID:          uuid.New(),
		Protocol:    domain.ProtocolHTTPS,
		URL:         "moodle.example.com",
		Token:       "abc123",
		Route:       domain.DefaultWebServiceRoute,
		ServiceName: "Example Campus",
		IsActive:    true,
	}
	user := &domain.MoodleUser{
		ID:        42,
		Username:  "jdoe",
		Firstname: "Jane",
		Lastname:  "Doe",
		Fullname:  "Jane Doe",
		Email:     "jdoe@example.com",
		Confirmed: true,
	}
	f := &resetFixture{
		audits:   newFakeAuditingRepo(),
		services: &fakeWebServiceRepo{byURL: map[string]*domain.WebService{ws.URL: ws}},
		templates: &fakeTemplateRepo{defaultTemplate: &domain.EmailTemplate{
			ID:        uuid.New(),
			Name:      "Default Reset",
			Subject:   "Reset your {{system.name}} password",
			Content:   "<p>Hello {{user.firstname}}, open {{reset.link}} within {{reset.expirationTime}}.</p>",
			Type:      domain.TemplateTypeHTML,
			IsActive:  true,
			IsDefault: true,
		}},
		moodle: &fakeMoodleClient{findResult: user},
		mailer: &fakeMailer{},
		tokens: util.NewResetTokenManager("test-secret", util.DefaultResetTokenTTL),
		ws:     ws,
		user:   user,
	}
	f.svc = NewResetService(
		f.audits, f.services, f.templates, f.moodle, f.tokens, f.mailer,
		ResetConfig{FrontendBaseURL: "https://app.example.com", ServiceName: "OxyPass"},
		log.New(io.Discard, "", 0),
	)
	return f
}

// issueToken seeds the ledger with a live token the way a completed request
// would have.
func (f *resetFixture) issueToken(t *testing.T) string {
	t.Helper()
	if _, err := f.svc.RequestPasswordReset(context.Background(), f.ws.URL, f.user.Email, ""); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := extractToken(t, f.mailer.body)
	return token
}

func extractToken(t *testing.T, body string) string {
	t.Helper()
	marker := "reset-password?token="
	idx := strings.Index(body, marker)
	if idx < 0 {
		t.Fatalf("no reset link in body: %q", body)
	}
	rest := body[idx+len(marker):]
	if end := strings.IndexAny(rest, " <\""); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func TestRequestPasswordResetSuccess(t *testing.T) {
	f := newResetFixture()

	result, err := f.svc.RequestPasswordReset(context.Background(), "moodle.example.com", "jdoe@example.com", "")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if result.User == nil {
		t.Fatal("success result missing the remote identity")
	}
	if result.User.ID != 42 || result.User.Username != "jdoe" || result.User.Fullname != "Jane Doe" || result.User.Email != "jdoe@example.com" {
		t.Fatalf("result user = %+v", result.User)
	}
	if result.ExpiresIn != "5 minutes" {
		t.Fatalf("expiresIn = %q", result.ExpiresIn)
	}

	if f.mailer.sent != 1 {
		t.Fatalf("sent = %d, want 1", f.mailer.sent)
	}
	if f.mailer.to != "jdoe@example.com" {
		t.Fatalf("to = %q", f.mailer.to)
	}
	if f.mailer.subject != "Reset your OxyPass password" {
		t.Fatalf("subject = %q", f.mailer.subject)
	}
	if !strings.Contains(f.mailer.body, "Hello Jane") {
		t.Fatalf("body missing greeting: %q", f.mailer.body)
	}
	if !strings.Contains(f.mailer.body, "https://app.example.com/reset-password?token=") {
		t.Fatalf("body missing reset link: %q", f.mailer.body)
	}
	if !strings.Contains(f.mailer.body, "5 minutes") {
		t.Fatalf("body missing expiration: %q", f.mailer.body)
	}

	token := extractToken(t, f.mailer.body)
	record := f.audits.byToken(t, token)
	if record.Status != domain.AuditStatusSuccess {
		t.Fatalf("status = %q, want success", record.Status)
	}
	if !record.EmailSent {
		t.Fatal("email_sent not flagged")
	}
	if record.TokenUsed {
		t.Fatal("token must not start consumed")
	}
	if record.TokenExpiresAt == nil {
		t.Fatal("expiry missing on ledger row")
	}
	if remaining := time.Until(*record.TokenExpiresAt); remaining <= 0 || remaining > util.DefaultResetTokenTTL {
		t.Fatalf("unexpected ledger expiry: %v", record.TokenExpiresAt)
	}
	if record.MoodleUserID == nil || *record.MoodleUserID != 42 {
		t.Fatalf("moodle user id = %v", record.MoodleUserID)
	}
	if record.WebServiceID == nil || *record.WebServiceID != f.ws.ID {
		t.Fatalf("web service id = %v", record.WebServiceID)
	}
}

func TestRequestPasswordResetUnknownUserMasked(t *testing.T) {
	f := newResetFixture()
	f.moodle.findResult = nil
	f.moodle.findErr = ports.ErrMoodleUserNotFound

	result, err := f.svc.RequestPasswordReset(context.Background(), "moodle.example.com", "ghost@example.com", "")
	if err != nil {
		t.Fatalf("expected masked success, got %v", err)
	}
	if result.Message != MaskedResetMessage {
		t.Fatalf("message = %q", result.Message)
	}
	if result.User != nil || result.ExpiresIn != "" {
		t.Fatalf("masked result must not leak identity: %+v", result)
	}
	if f.mailer.sent != 0 {
		t.Fatalf("no mail should go out, sent = %d", f.mailer.sent)
	}

	statuses := f.audits.statuses()
	if len(statuses) != 1 || statuses[0] != domain.AuditStatusError {
		t.Fatalf("statuses = %v, want one error row", statuses)
	}
}

func TestRequestPasswordResetCommunicationFailureMasked(t *testing.T) {
	f := newResetFixture()
	f.moodle.findResult = nil
	f.moodle.findErr = errors.New("dial tcp: connection refused")

	result, err := f.svc.RequestPasswordReset(context.Background(), "moodle.example.com", "jdoe@example.com", "")
	if err != nil {
		t.Fatalf("expected masked success, got %v", err)
	}
	if result.Message != MaskedResetMessage || result.User != nil {
		t.Fatalf("result = %+v", result)
	}
	if f.mailer.sent != 0 {
		t.Fatal("no mail should go out")
	}
}

func TestRequestPasswordResetUnknownWebServiceMasked(t *testing.T) {
	f := newResetFixture()

	result, err := f.svc.RequestPasswordReset(context.Background(), "other.example.com", "jdoe@example.com", "")
	if err != nil {
		t.Fatalf("expected masked success, got %v", err)
	}
	if result.Message != MaskedResetMessage || result.User != nil {
		t.Fatalf("result = %+v", result)
	}
	if f.moodle.findCalls != 0 {
		t.Fatal("remote must not be queried without a web service")
	}
}

func TestRequestPasswordResetSuspendedNotMasked(t *testing.T) {
	f := newResetFixture()
	f.moodle.findResult = &domain.MoodleUser{ID: 42, Username: "jdoe", Email: "jdoe@example.com", Suspended: true}

	_, err := f.svc.RequestPasswordReset(context.Background(), "moodle.example.com", "jdoe@example.com", "")
	if !errors.Is(err, ErrUserSuspended) {
		t.Fatalf("expected ErrUserSuspended, got %v", err)
	}
	if f.mailer.sent != 0 {
		t.Fatal("no mail should go out for a suspended account")
	}

	statuses := f.audits.statuses()
	if len(statuses) != 1 || statuses[0] != domain.AuditStatusError {
		t.Fatalf("statuses = %v, want one error row", statuses)
	}
}

func TestRequestPasswordResetValidation(t *testing.T) {
	f := newResetFixture()
	ctx := context.Background()

	if _, err := f.svc.RequestPasswordReset(ctx, "", "jdoe@example.com", ""); !errors.Is(err, ErrMoodleURLRequired) {
		t.Fatalf("expected ErrMoodleURLRequired, got %v", err)
	}
	if _, err := f.svc.RequestPasswordReset(ctx, "moodle.example.com", "", ""); !errors.Is(err, ErrIdentifierRequired) {
		t.Fatalf("expected ErrIdentifierRequired, got %v", err)
	}
	if _, err := f.svc.RequestPasswordReset(ctx, "moodle.example.com", "jdoe@example.com", "jdoe"); !errors.Is(err, ErrIdentifierConflict) {
		t.Fatalf("expected ErrIdentifierConflict, got %v", err)
	}
}

func TestRequestPasswordResetNoDefaultTemplate(t *testing.T) {
	f := newResetFixture()
	f.templates.defaultTemplate = nil
	f.templates.defaultErr = sql.ErrNoRows

	_, err := f.svc.RequestPasswordReset(context.Background(), "moodle.example.com", "jdoe@example.com", "")
	if !errors.Is(err, ErrTemplateNotConfigured) {
		t.Fatalf("expected ErrTemplateNotConfigured, got %v", err)
	}

	statuses := f.audits.statuses()
	if len(statuses) != 1 || statuses[0] != domain.AuditStatusError {
		t.Fatalf("statuses = %v, want the pending row flipped to error", statuses)
	}
}

func TestRequestPasswordResetMailFailure(t *testing.T) {
	f := newResetFixture()
	f.mailer.sendErr = errors.New("smtp: connection reset")

	_, err := f.svc.RequestPasswordReset(context.Background(), "moodle.example.com", "jdoe@example.com", "")
	if !errors.Is(err, ErrEmailSendFailed) {
		t.Fatalf("expected ErrEmailSendFailed, got %v", err)
	}

	statuses := f.audits.statuses()
	if len(statuses) != 1 || statuses[0] != domain.AuditStatusError {
		t.Fatalf("statuses = %v, want the pending row flipped to error", statuses)
	}
}

func TestValidateResetTokenSuccess(t *testing.T) {
	f := newResetFixture()
	token := f.issueToken(t)

	claims, record, err := f.svc.ValidateResetToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "jdoe" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.MoodleURL != "moodle.example.com" {
		t.Fatalf("moodle url = %q", claims.MoodleURL)
	}

	// Validation is side-effect-free on success.
	after := f.audits.byToken(t, token)
	if after.Status != domain.AuditStatusPending || after.TokenUsed {
		t.Fatalf("record mutated by validation: %+v", after)
	}
	if record.ID != after.ID {
		t.Fatalf("record mismatch")
	}
}

func TestValidateResetTokenUnknown(t *testing.T) {
	f := newResetFixture()

	if _, _, err := f.svc.ValidateResetToken(context.Background(), "no-such-token"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestValidateResetTokenConsumed(t *testing.T) {
	f := newResetFixture()
	token := f.issueToken(t)

	if ok, err := f.audits.ConsumeToken(context.Background(), token, "used"); err != nil || !ok {
		t.Fatalf("seed consume: ok=%v err=%v", ok, err)
	}

	if _, _, err := f.svc.ValidateResetToken(context.Background(), token); !errors.Is(err, ErrTokenConsumed) {
		t.Fatalf("expected ErrTokenConsumed, got %v", err)
	}
}

func TestValidateResetTokenLedgerExpiry(t *testing.T) {
	f := newResetFixture()
	token := f.issueToken(t)

	// The ledger expiry governs even while the signed expiry is still live.
	f.svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	if _, _, err := f.svc.ValidateResetToken(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	record := f.audits.byToken(t, token)
	if record.Status != domain.AuditStatusError {
		t.Fatalf("expired token should mark the row, status = %q", record.Status)
	}
}

func TestValidateResetTokenForeignSignature(t *testing.T) {
	f := newResetFixture()

	other := util.NewResetTokenManager("other-secret", util.DefaultResetTokenTTL)
	token, expiresAt, err := other.Generate(42, "jdoe", "jdoe@example.com", "moodle.example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.audits.Create(context.Background(), ports.AuditingCreate{
		Token:          &token,
		TokenExpiresAt: &expiresAt,
		Status:         domain.AuditStatusPending,
		Description:    "seeded",
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	if _, _, err := f.svc.ValidateResetToken(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestMarkTokenAsUsedOnce(t *testing.T) {
	f := newResetFixture()
	token := f.issueToken(t)

	if err := f.svc.MarkTokenAsUsed(context.Background(), token, ""); err != nil {
		t.Fatalf("first consume: %v", err)
	}

	record := f.audits.byToken(t, token)
	if !record.TokenUsed || record.Status != domain.AuditStatusSuccess {
		t.Fatalf("record after consume: %+v", record)
	}
	if record.Description == nil || *record.Description != "used successfully" {
		t.Fatalf("description = %v", record.Description)
	}

	if err := f.svc.MarkTokenAsUsed(context.Background(), token, "again"); !errors.Is(err, ErrTokenConsumed) {
		t.Fatalf("second consume: expected ErrTokenConsumed, got %v", err)
	}
}

func TestMarkTokenAsUsedConcurrent(t *testing.T) {
	f := newResetFixture()
	token := f.issueToken(t)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.MarkTokenAsUsed(context.Background(), token, "raced")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, ErrTokenConsumed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestChangePassword(t *testing.T) {
	f := newResetFixture()
	token := f.issueToken(t)

	if err := f.svc.ChangePassword(context.Background(), token, "new-secret-1"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if f.moodle.updateCalls != 1 {
		t.Fatalf("update calls = %d, want 1", f.moodle.updateCalls)
	}
	if f.moodle.updateUserID != 42 {
		t.Fatalf("update user id = %d", f.moodle.updateUserID)
	}
	if f.moodle.updateFields["password"] != "new-secret-1" {
		t.Fatalf("update fields = %v", f.moodle.updateFields)
	}

	record := f.audits.byToken(t, token)
	if !record.TokenUsed || record.Status != domain.AuditStatusSuccess {
		t.Fatalf("token not consumed after change: %+v", record)
	}
	if record.Description == nil || *record.Description != "used successfully" {
		t.Fatalf("description = %v", record.Description)
	}

	if err := f.svc.ChangePassword(context.Background(), token, "another-pass"); !errors.Is(err, ErrTokenConsumed) {
		t.Fatalf("replay: expected ErrTokenConsumed, got %v", err)
	}
}

func TestChangePasswordTooShortNoSideEffects(t *testing.T) {
	f := newResetFixture()
	token := f.issueToken(t)

	if err := f.svc.ChangePassword(context.Background(), token, "abc"); !errors.Is(err, util.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if f.moodle.updateCalls != 0 {
		t.Fatal("remote must not be called for an invalid password")
	}
	if record := f.audits.byToken(t, token); record.TokenUsed {
		t.Fatal("token must survive a rejected password")
	}
}

func TestChangePasswordRemoteFailureKeepsToken(t *testing.T) {
	f := newResetFixture()
	token := f.issueToken(t)
	f.moodle.updateErr = ports.ErrMoodleUpdateRejected

	if err := f.svc.ChangePassword(context.Background(), token, "new-secret-1"); err == nil {
		t.Fatal("expected error from rejected update")
	}
	if record := f.audits.byToken(t, token); record.TokenUsed {
		t.Fatal("token must not be consumed when the remote rejects")
	}
}

func TestFindUser(t *testing.T) {
	f := newResetFixture()

	user, err := f.svc.FindUser(context.Background(), "moodle.example.com", ports.MoodleSearchByUsername, "jdoe")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.ID != 42 {
		t.Fatalf("user id = %d", user.ID)
	}

	if _, err := f.svc.FindUser(context.Background(), "other.example.com", ports.MoodleSearchByEmail, "x@example.com"); !errors.Is(err, ErrWebServiceNotFound) {
		t.Fatalf("expected ErrWebServiceNotFound, got %v", err)
	}

	f.moodle.findResult = nil
	f.moodle.findErr = ports.ErrMoodleUserNotFound
	if _, err := f.svc.FindUser(context.Background(), "moodle.example.com", ports.MoodleSearchByEmail, "ghost@example.com"); !errors.Is(err, ports.ErrMoodleUserNotFound) {
		t.Fatalf("expected unmasked ErrMoodleUserNotFound, got %v", err)
	}
}
