package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
)

const (
	defaultSendTimeout       = 10 * time.Second
	maxSendResponseBodyBytes = 8 << 10

	signatureHeader = "X-Attribution-Signature"
	eventHeader     = "X-Attribution-Event"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSender posts notifications to workspace endpoints as signed JSON.
// The signature uses the same t=<unix>,v1=<hmac> scheme the inbound
// verifier expects, keyed by the endpoint's own secret.
type HTTPSender struct {
	client  HTTPDoer
	timeout time.Duration
	now     func() time.Time
}

type HTTPSenderConfig struct {
	Client  HTTPDoer
	Timeout time.Duration
	Now     func() time.Time
}

func NewHTTPSender(cfg HTTPSenderConfig) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &HTTPSender{
		client:  client,
		timeout: timeout,
		now:     now,
	}
}

func (s *HTTPSender) Send(ctx context.Context, endpoint core.WebhookEndpoint, notification core.Notification) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: http sender is not configured")
	}
	target := strings.TrimSpace(endpoint.URL)
	if target == "" {
		return fmt.Errorf("notify: endpoint %s has no url", endpoint.ID)
	}

	body, err := json.Marshal(map[string]any{
		"id":          notification.ID,
		"event":       notification.EventName,
		"created_at":  notification.OccurredAt.UTC().Format(time.RFC3339),
		"data":        notification.Payload,
		"workspace":   notification.WorkspaceID,
		"api_version": "2024-01",
	})
	if err != nil {
		return fmt.Errorf("notify: encode notification %s: %w", notification.ID, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request for endpoint %s: %w", endpoint.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventHeader, notification.EventName)
	if secret := strings.TrimSpace(endpoint.Secret); secret != "" {
		req.Header.Set(signatureHeader, signPayload(secret, s.now().Unix(), body))
	}

	response, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver to endpoint %s: %w", endpoint.ID, err)
	}
	defer response.Body.Close()
	io.Copy(io.Discard, io.LimitReader(response.Body, maxSendResponseBodyBytes))

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notify: endpoint %s responded %d", endpoint.ID, response.StatusCode)
	}
	return nil
}

func signPayload(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

var _ core.WebhookSender = (*HTTPSender)(nil)
