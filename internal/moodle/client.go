package moodle

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
)

const (
	wsFunctionFindUsers   = "core_user_get_users_by_field"
	wsFunctionUpdateUsers = "core_user_update_users"

	userAgent      = "OxyPass-API/1.0"
	defaultTimeout = 30 * time.Second
)

// Client talks to Moodle's REST webservice endpoint. All calls are bounded
// by the configured timeout; a timeout surfaces as an ordinary error, never
// a retry.
type Client struct {
	http   *http.Client
	logger *log.Logger
}

// NewClient builds a Moodle client. insecureTLS skips certificate
// verification, needed for institutional instances with broken chains.
func NewClient(timeout time.Duration, insecureTLS bool, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		http:   &http.Client{Timeout: timeout, Transport: transport},
		logger: logger,
	}
}

func (c *Client) FindUser(ctx context.Context, ws *domain.WebService, field ports.MoodleSearchField, value string) (*domain.MoodleUser, error) {
	params := url.Values{}
	params.Set("field", string(field))
	params.Set("values[0]", value)

	body, err := c.call(ctx, ws, wsFunctionFindUsers, params)
	if err != nil {
		return nil, err
	}
	if remote := decodeRemoteError(body); remote != nil {
		c.logger.Printf("moodle find-user rejected by %s: %v", ws.URL, remote)
		return nil, remote
	}

	var users []moodleUserPayload
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("decode moodle user response: %w", err)
	}
	if len(users) == 0 {
		return nil, ports.ErrMoodleUserNotFound
	}
	return users[0].toDomain(), nil
}

func (c *Client) UpdateUser(ctx context.Context, ws *domain.WebService, userID int64, fields map[string]string) (*domain.MoodleUpdateResult, error) {
	params := url.Values{}
	params.Set("users[0][id]", strconv.FormatInt(userID, 10))
	for key, value := range fields {
		params.Set(fmt.Sprintf("users[0][%s]", key), value)
	}

	body, err := c.call(ctx, ws, wsFunctionUpdateUsers, params)
	if err != nil {
		return nil, err
	}
	if remote := decodeRemoteError(body); remote != nil {
		c.logger.Printf("moodle update rejected by %s: %v", ws.URL, remote)
		return nil, remote
	}

	result := &domain.MoodleUpdateResult{
		UserID:        userID,
		UpdatedFields: fieldNames(fields),
	}

	var payload struct {
		Warnings []domain.MoodleWarning `json:"warnings"`
	}
	// An empty or null body means the update went through with no warnings.
	if len(body) > 0 && string(body) != "null" {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode moodle update response: %w", err)
		}
	}
	result.Warnings = payload.Warnings

	for _, warning := range payload.Warnings {
		code := strings.ToLower(warning.WarningCode)
		if strings.Contains(code, "error") || strings.Contains(code, "invalid") {
			c.logger.Printf("moodle update warning treated as failure: %s - %s", warning.WarningCode, warning.Message)
			return nil, fmt.Errorf("%w: %s", ports.ErrMoodleUpdateRejected, warning.Message)
		}
		c.logger.Printf("moodle update warning: %s - %s", warning.WarningCode, warning.Message)
	}

	return result, nil
}

func (c *Client) call(ctx context.Context, ws *domain.WebService, wsFunction string, params url.Values) ([]byte, error) {
	params.Set("wstoken", ws.Token)
	params.Set("wsfunction", wsFunction)
	params.Set("moodlewsrestformat", "json")

	endpoint := ws.BaseURL() + ws.Route + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build moodle request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moodle request to %s: %w", ws.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read moodle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("moodle responded with status %d", resp.StatusCode)
	}
	return body, nil
}

type moodleUserPayload struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Fullname    string `json:"fullname"`
	Email       string `json:"email"`
	IDNumber    string `json:"idnumber"`
	Suspended   bool   `json:"suspended"`
	Confirmed   bool   `json:"confirmed"`
	Address     string `json:"address"`
	Phone1      string `json:"phone1"`
	Phone2      string `json:"phone2"`
	Department  string `json:"department"`
	Institution string `json:"institution"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

func (p moodleUserPayload) toDomain() *domain.MoodleUser {
	return &domain.MoodleUser{
		ID:          p.ID,
		Username:    p.Username,
		Firstname:   p.Firstname,
		Lastname:    p.Lastname,
		Fullname:    p.Fullname,
		Email:       p.Email,
		IDNumber:    p.IDNumber,
		Suspended:   p.Suspended,
		Confirmed:   p.Confirmed,
		Address:     p.Address,
		Phone1:      p.Phone1,
		Phone2:      p.Phone2,
		Department:  p.Department,
		Institution: p.Institution,
		City:        p.City,
		Country:     p.Country,
	}
}

// decodeRemoteError recognizes Moodle's errorcode payload. Successful
// responses are arrays or warning objects, so an object carrying errorcode
// is always a remote failure.
func decodeRemoteError(body []byte) *ports.MoodleRemoteError {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var payload struct {
		Exception string `json:"exception"`
		ErrorCode string `json:"errorcode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if payload.ErrorCode == "" {
		return nil
	}
	return &ports.MoodleRemoteError{Code: payload.ErrorCode, Message: payload.Message}
}

func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
