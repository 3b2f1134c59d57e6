package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGatewaySenderPostsPayload(t *testing.T) {
	var got gatewayPayload
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewGatewaySender(server.URL)
	if err := sender.Send(context.Background(), "jdoe@example.com", "Reset your password", "<p>hello</p>"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}
	if got.Email != "jdoe@example.com" {
		t.Fatalf("email = %q", got.Email)
	}
	if got.Subject != "Reset your password" {
		t.Fatalf("assunto = %q", got.Subject)
	}
	if got.Message != "<p>hello</p>" {
		t.Fatalf("mensagem = %q", got.Message)
	}
}

func TestGatewaySenderRejectsFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewGatewaySender(server.URL)
	if err := sender.Send(context.Background(), "jdoe@example.com", "s", "b"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestGatewaySenderUnconfigured(t *testing.T) {
	sender := NewGatewaySender("  ")
	if err := sender.Send(context.Background(), "a@b.com", "s", "b"); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
