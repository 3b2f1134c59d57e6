package moodle

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dvizioon/oxypass/internal/domain"
	"github.com/dvizioon/oxypass/internal/repository/ports"
)

func testWebService(serverURL string) *domain.WebService {
	return &domain.WebService{
		Protocol:    domain.ProtocolHTTP,
		URL:         strings.TrimPrefix(serverURL, "http://"),
		Token:       "secret-token",
		Route:       domain.DefaultWebServiceRoute,
		ServiceName: "Test Campus",
		IsActive:    true,
	}
}

func testClient() *Client {
	return NewClient(5*time.Second, false, log.New(io.Discard, "", 0))
}

func TestFindUserSuccess(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 42, "username": "jdoe", "firstname": "Jane", "lastname": "Doe", "fullname": "Jane Doe", "email": "jdoe@example.com", "suspended": false, "confirmed": true, "city": "Recife", "country": "BR"}]`))
	}))
	defer server.Close()

	user, err := testClient().FindUser(context.Background(), testWebService(server.URL), ports.MoodleSearchByEmail, "jdoe@example.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.ID != 42 || user.Username != "jdoe" || user.City != "Recife" {
		t.Fatalf("user = %+v", user)
	}

	if query.Get("wstoken") != "secret-token" {
		t.Fatalf("wstoken = %q", query.Get("wstoken"))
	}
	if query.Get("wsfunction") != "core_user_get_users_by_field" {
		t.Fatalf("wsfunction = %q", query.Get("wsfunction"))
	}
	if query.Get("moodlewsrestformat") != "json" {
		t.Fatalf("moodlewsrestformat = %q", query.Get("moodlewsrestformat"))
	}
	if query.Get("field") != "email" {
		t.Fatalf("field = %q", query.Get("field"))
	}
	if query.Get("values[0]") != "jdoe@example.com" {
		t.Fatalf("values[0] = %q", query.Get("values[0]"))
	}
}

func TestFindUserNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := testClient().FindUser(context.Background(), testWebService(server.URL), ports.MoodleSearchByUsername, "ghost")
	if !errors.Is(err, ports.ErrMoodleUserNotFound) {
		t.Fatalf("expected ErrMoodleUserNotFound, got %v", err)
	}
}

func TestFindUserRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"exception": "webservice_access_exception", "errorcode": "invalidtoken", "message": "Invalid token"}`))
	}))
	defer server.Close()

	_, err := testClient().FindUser(context.Background(), testWebService(server.URL), ports.MoodleSearchByEmail, "jdoe@example.com")
	var remote *ports.MoodleRemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected MoodleRemoteError, got %v", err)
	}
	if remote.Code != "invalidtoken" {
		t.Fatalf("code = %q", remote.Code)
	}
}

func TestFindUserHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := testClient().FindUser(context.Background(), testWebService(server.URL), ports.MoodleSearchByEmail, "x"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestUpdateUserSuccess(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`null`))
	}))
	defer server.Close()

	result, err := testClient().UpdateUser(context.Background(), testWebService(server.URL), 42, map[string]string{"password": "new-pass"})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if result.UserID != 42 {
		t.Fatalf("user id = %d", result.UserID)
	}
	if len(result.UpdatedFields) != 1 || result.UpdatedFields[0] != "password" {
		t.Fatalf("updated fields = %v", result.UpdatedFields)
	}

	if query.Get("wsfunction") != "core_user_update_users" {
		t.Fatalf("wsfunction = %q", query.Get("wsfunction"))
	}
	if query.Get("users[0][id]") != "42" {
		t.Fatalf("users[0][id] = %q", query.Get("users[0][id]"))
	}
	if query.Get("users[0][password]") != "new-pass" {
		t.Fatalf("users[0][password] = %q", query.Get("users[0][password]"))
	}
}

func TestUpdateUserBenignWarning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"warnings": [{"item": "user", "itemid": 42, "warningcode": "profilenotupdated", "message": "minor issue"}]}`))
	}))
	defer server.Close()

	result, err := testClient().UpdateUser(context.Background(), testWebService(server.URL), 42, map[string]string{"city": "Recife"})
	if err != nil {
		t.Fatalf("benign warning must not fail: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v", result.Warnings)
	}
}

func TestUpdateUserCriticalWarning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"warnings": [{"item": "user", "itemid": 42, "warningcode": "invalidpassword", "message": "password does not meet policy"}]}`))
	}))
	defer server.Close()

	_, err := testClient().UpdateUser(context.Background(), testWebService(server.URL), 42, map[string]string{"password": "weak"})
	if !errors.Is(err, ports.ErrMoodleUpdateRejected) {
		t.Fatalf("expected ErrMoodleUpdateRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "password does not meet policy") {
		t.Fatalf("error should carry the warning message: %v", err)
	}
}

func TestUpdateUserRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errorcode": "invalidparameter", "message": "Invalid parameter value detected"}`))
	}))
	defer server.Close()

	_, err := testClient().UpdateUser(context.Background(), testWebService(server.URL), 42, map[string]string{"password": "x"})
	var remote *ports.MoodleRemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected MoodleRemoteError, got %v", err)
	}
}
