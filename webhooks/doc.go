// Package webhooks receives payment-processor deliveries: it verifies the
// signature against the mode-specific secret, filters event types through a
// closed allow-list, guards against cross-mode fan-out, and routes each
// event to exactly one handler.
//
// Handlers return a human-readable outcome string. Business skips never
// raise: they come back as 200 with the reason as body so the processor does
// not retry them. Only unexpected infrastructure failures produce a 5xx.
package webhooks
