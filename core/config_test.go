package core

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.Processor != "stripe" {
		t.Fatalf("expected stripe processor default, got %q", cfg.Processor)
	}
	if cfg.BaseCurrency != "usd" {
		t.Fatalf("expected usd base currency default, got %q", cfg.BaseCurrency)
	}
	if cfg.ClientReferencePrefix != "dub_id_" {
		t.Fatalf("expected client reference prefix default, got %q", cfg.ClientReferencePrefix)
	}
	if cfg.IdempotencyTTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day idempotency ttl, got %s", cfg.IdempotencyTTL)
	}
	if cfg.SignatureTolerance != 5*time.Minute {
		t.Fatalf("expected 5 minute signature tolerance, got %s", cfg.SignatureTolerance)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing service name", func(c *Config) { c.ServiceName = "  " }},
		{"missing processor", func(c *Config) { c.Processor = "" }},
		{"missing base currency", func(c *Config) { c.BaseCurrency = "" }},
		{"missing client reference prefix", func(c *Config) { c.ClientReferencePrefix = "" }},
		{"zero idempotency ttl", func(c *Config) { c.IdempotencyTTL = 0 }},
		{"negative signature tolerance", func(c *Config) { c.SignatureTolerance = -time.Second }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestStaticSecretProvider(t *testing.T) {
	provider := StaticSecretProvider{
		Secrets: SecretsConfig{
			Live: " whsec_live ",
			Test: "whsec_test",
		},
	}

	secret, err := provider.WebhookSecret(context.Background(), ModeLive)
	if err != nil {
		t.Fatalf("live secret: %v", err)
	}
	if secret != "whsec_live" {
		t.Fatalf("expected trimmed live secret, got %q", secret)
	}

	secret, err = provider.WebhookSecret(context.Background(), ModeTest)
	if err != nil {
		t.Fatalf("test secret: %v", err)
	}
	if secret != "whsec_test" {
		t.Fatalf("expected test secret, got %q", secret)
	}

	if _, err := provider.WebhookSecret(context.Background(), ModeSandbox); err == nil {
		t.Fatalf("expected missing sandbox secret to fail closed")
	}
	if _, err := provider.WebhookSecret(context.Background(), Mode("production")); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
}
