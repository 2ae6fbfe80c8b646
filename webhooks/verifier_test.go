package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-attribution/core"
)

func newTestVerifier(t *testing.T, secret string, now time.Time) *SignatureVerifier {
	t.Helper()
	verifier, err := NewSignatureVerifier(core.StaticSecretProvider{
		Secrets: core.SecretsConfig{Live: secret, Test: secret, Sandbox: secret},
	}, 5*time.Minute)
	if err != nil {
		t.Fatalf("new signature verifier: %v", err)
	}
	verifier.Now = func() time.Time { return now }
	return verifier
}

func TestVerify_SignRoundTrip(t *testing.T) {
	now := time.Unix(1756000000, 0).UTC()
	verifier := newTestVerifier(t, "whsec_test", now)
	body := []byte(`{"id":"evt_1"}`)

	header := Sign("whsec_test", now.Unix(), body)
	if err := verifier.Verify(context.Background(), body, header, core.ModeLive); err != nil {
		t.Fatalf("verify signed payload: %v", err)
	}
}

func TestVerify_RejectsWrongSecretAndTamperedBody(t *testing.T) {
	now := time.Unix(1756000000, 0).UTC()
	verifier := newTestVerifier(t, "whsec_test", now)
	body := []byte(`{"id":"evt_1"}`)

	header := Sign("whsec_other", now.Unix(), body)
	if err := verifier.Verify(context.Background(), body, header, core.ModeLive); err == nil {
		t.Fatalf("expected mismatch for wrong secret")
	}

	header = Sign("whsec_test", now.Unix(), body)
	if err := verifier.Verify(context.Background(), []byte(`{"id":"evt_2"}`), header, core.ModeLive); err == nil {
		t.Fatalf("expected mismatch for tampered body")
	}
}

func TestVerify_ToleranceWindow(t *testing.T) {
	now := time.Unix(1756000000, 0).UTC()
	verifier := newTestVerifier(t, "whsec_test", now)
	body := []byte(`{}`)

	withinWindow := now.Add(-4 * time.Minute).Unix()
	if err := verifier.Verify(context.Background(), body, Sign("whsec_test", withinWindow, body), core.ModeLive); err != nil {
		t.Fatalf("expected timestamp inside tolerance to verify: %v", err)
	}

	tooOld := now.Add(-6 * time.Minute).Unix()
	if err := verifier.Verify(context.Background(), body, Sign("whsec_test", tooOld, body), core.ModeLive); err == nil {
		t.Fatalf("expected stale timestamp rejection")
	}

	tooNew := now.Add(6 * time.Minute).Unix()
	if err := verifier.Verify(context.Background(), body, Sign("whsec_test", tooNew, body), core.ModeLive); err == nil {
		t.Fatalf("expected future timestamp rejection")
	}
}

func TestVerify_MalformedHeaders(t *testing.T) {
	now := time.Unix(1756000000, 0).UTC()
	verifier := newTestVerifier(t, "whsec_test", now)
	body := []byte(`{}`)

	cases := []struct {
		name   string
		header string
	}{
		{"empty", "  "},
		{"missing timestamp", "v1=abcdef"},
		{"missing signature", "t=1756000000"},
		{"bad timestamp", "t=notanumber,v1=abcdef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := verifier.Verify(context.Background(), body, tc.header, core.ModeLive); err == nil {
				t.Fatalf("expected header %q to fail verification", tc.header)
			}
		})
	}
}

func TestVerify_AcceptsAnyMatchingCandidate(t *testing.T) {
	now := time.Unix(1756000000, 0).UTC()
	verifier := newTestVerifier(t, "whsec_test", now)
	body := []byte(`{"id":"evt_1"}`)

	header := Sign("whsec_test", now.Unix(), body) + ",v1=deadbeef"
	if err := verifier.Verify(context.Background(), body, header, core.ModeLive); err != nil {
		t.Fatalf("expected verification when one candidate matches: %v", err)
	}
}

func TestVerify_MissingSecretFailsClosed(t *testing.T) {
	verifier, err := NewSignatureVerifier(core.StaticSecretProvider{}, time.Minute)
	if err != nil {
		t.Fatalf("new signature verifier: %v", err)
	}
	body := []byte(`{}`)
	header := Sign("whatever", time.Now().Unix(), body)
	if err := verifier.Verify(context.Background(), body, header, core.ModeLive); err == nil {
		t.Fatalf("expected missing secret to fail verification")
	}
}

func TestNewSignatureVerifier_RequiresSecrets(t *testing.T) {
	if _, err := NewSignatureVerifier(nil, time.Minute); err == nil {
		t.Fatalf("expected secret provider requirement error")
	}
}
