package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type SecretsConfig struct {
	Live    string `koanf:"live" mapstructure:"live"`
	Test    string `koanf:"test" mapstructure:"test"`
	Sandbox string `koanf:"sandbox" mapstructure:"sandbox"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// Processor names the payment processor this pipeline ingests from; it
	// prefixes idempotency keys and is stamped on recorded sales.
	Processor string `koanf:"processor" mapstructure:"processor"`
	// BaseCurrency is the currency all sale amounts are normalized to
	// before any durable write.
	BaseCurrency string `koanf:"base_currency" mapstructure:"base_currency"`
	// ClientReferencePrefix marks platform-originated client reference ids
	// carrying a click id.
	ClientReferencePrefix string        `koanf:"client_reference_prefix" mapstructure:"client_reference_prefix"`
	IdempotencyTTL        time.Duration `koanf:"idempotency_ttl" mapstructure:"idempotency_ttl"`
	SignatureTolerance    time.Duration `koanf:"signature_tolerance" mapstructure:"signature_tolerance"`
	Secrets               SecretsConfig `koanf:"secrets" mapstructure:"secrets"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:           "attribution",
		Processor:             "stripe",
		BaseCurrency:          "usd",
		ClientReferencePrefix: "dub_id_",
		IdempotencyTTL:        7 * 24 * time.Hour,
		SignatureTolerance:    5 * time.Minute,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Processor) == "" {
		return fmt.Errorf("core: processor is required")
	}
	if strings.TrimSpace(c.BaseCurrency) == "" {
		return fmt.Errorf("core: base_currency is required")
	}
	if strings.TrimSpace(c.ClientReferencePrefix) == "" {
		return fmt.Errorf("core: client_reference_prefix is required")
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("core: idempotency_ttl must be positive")
	}
	if c.SignatureTolerance <= 0 {
		return fmt.Errorf("core: signature_tolerance must be positive")
	}
	return nil
}

// StaticSecretProvider serves mode secrets straight from configuration. A
// blank secret for a mode fails closed.
type StaticSecretProvider struct {
	Secrets SecretsConfig
}

func (p StaticSecretProvider) WebhookSecret(_ context.Context, mode Mode) (string, error) {
	var secret string
	switch mode {
	case ModeLive:
		secret = p.Secrets.Live
	case ModeTest:
		secret = p.Secrets.Test
	case ModeSandbox:
		secret = p.Secrets.Sandbox
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("core: webhook secret is not configured for mode %q", mode)
	}
	return strings.TrimSpace(secret), nil
}
