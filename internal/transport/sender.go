package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/glowdesk/messaging-backend/internal/config"
)

// Sender hands one message to the SMS provider and returns the provider's
// message ID. The call looks synchronous but only confirms acceptance;
// delivery itself is reported later through the status webhook.
type Sender interface {
	Send(ctx context.Context, to, body string) (providerSID string, err error)
}

// HTTPSender posts form-encoded send requests to a provider endpoint.
// Provider-specific SDK bindings live outside this service; this client
// speaks the lowest common denominator (basic auth + form POST + JSON sid).
type HTTPSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewHTTPSender(cfg config.SMSConfig) *HTTPSender {
	return &HTTPSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("From", s.cfg.From)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ProviderURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}
	if out.SID == "" {
		return "", fmt.Errorf("provider response missing sid")
	}
	return out.SID, nil
}

var _ Sender = (*HTTPSender)(nil)
