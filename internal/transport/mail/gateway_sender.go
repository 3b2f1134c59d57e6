package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const gatewayTimeout = 30 * time.Second

// GatewaySender posts notifications to an HTTP mail gateway instead of
// speaking SMTP directly. The gateway accepts a JSON body with the
// recipient, subject and message.
type GatewaySender struct {
	endpoint string
	http     *http.Client
}

func NewGatewaySender(endpoint string) *GatewaySender {
	return &GatewaySender{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: gatewayTimeout},
	}
}

type gatewayPayload struct {
	Email   string `json:"email"`
	Subject string `json:"assunto"`
	Message string `json:"mensagem"`
}

func (g *GatewaySender) Send(ctx context.Context, to, subject, body string) error {
	if g == nil || g.endpoint == "" {
		return errors.New("mail gateway not configured")
	}

	payload, err := json.Marshal(gatewayPayload{Email: to, Subject: subject, Message: body})
	if err != nil {
		return fmt.Errorf("encode gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "OxyPass-API/1.0")

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("call mail gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
