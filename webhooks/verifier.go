package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
)

const defaultSignatureTolerance = 5 * time.Minute

// SignatureVerifier checks the processor's signature header against the
// mode-specific shared secret. The scheme is t=<unix>,v1=<hex hmac-sha256
// over "<t>.<body>">; comparison is constant time and fails closed on any
// missing or malformed part.
type SignatureVerifier struct {
	Secrets   core.SecretProvider
	Tolerance time.Duration
	Now       func() time.Time
}

func NewSignatureVerifier(secrets core.SecretProvider, tolerance time.Duration) (*SignatureVerifier, error) {
	if secrets == nil {
		return nil, fmt.Errorf("webhooks: secret provider is required")
	}
	if tolerance <= 0 {
		tolerance = defaultSignatureTolerance
	}
	return &SignatureVerifier{
		Secrets:   secrets,
		Tolerance: tolerance,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (v *SignatureVerifier) Verify(ctx context.Context, body []byte, header string, mode core.Mode) error {
	if v == nil || v.Secrets == nil {
		return fmt.Errorf("webhooks: signature verifier is not configured")
	}
	if strings.TrimSpace(header) == "" {
		return fmt.Errorf("webhooks: signature header is required")
	}

	secret, err := v.Secrets.WebhookSecret(ctx, mode)
	if err != nil {
		return fmt.Errorf("webhooks: resolve webhook secret: %w", err)
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = defaultSignatureTolerance
	}
	now := v.now()
	signedAt := time.Unix(timestamp, 0).UTC()
	if signedAt.Before(now.Add(-tolerance)) || signedAt.After(now.Add(tolerance)) {
		return fmt.Errorf("webhooks: signature timestamp outside tolerance window")
	}

	expected := computeSignature(secret, timestamp, body)
	for _, candidate := range signatures {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("webhooks: signature mismatch")
}

// Sign produces a valid header for the given body; used by tests and by the
// outbound workspace-webhook sender.
func Sign(secret string, timestamp int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, computeSignature(secret, timestamp, body))
}

func computeSignature(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		timestamp  int64
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("webhooks: invalid signature timestamp: %w", err)
			}
			timestamp = parsed
		case "v1":
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				signatures = append(signatures, trimmed)
			}
		}
	}
	if timestamp == 0 {
		return 0, nil, fmt.Errorf("webhooks: signature timestamp is required")
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("webhooks: signature is required")
	}
	return timestamp, signatures, nil
}

func (v *SignatureVerifier) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now().UTC()
	}
	return time.Now().UTC()
}
