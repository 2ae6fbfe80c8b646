package webhooks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventKind is the closed set of event types this pipeline handles. Routing
// is a statically-built table keyed by these constants, not a runtime
// string registry.
type EventKind string

const (
	EventCheckoutSessionCompleted EventKind = "checkout.session.completed"
	EventInvoicePaid              EventKind = "invoice.paid"
	EventChargeRefunded           EventKind = "charge.refunded"
	EventCustomerCreated          EventKind = "customer.created"
	EventCustomerUpdated          EventKind = "customer.updated"
	EventSubscriptionCreated      EventKind = "customer.subscription.created"
)

// AllowedEventKinds lists every kind the dispatcher routes, in the order the
// processor documentation enumerates them.
func AllowedEventKinds() []EventKind {
	return []EventKind{
		EventCheckoutSessionCompleted,
		EventInvoicePaid,
		EventChargeRefunded,
		EventCustomerCreated,
		EventCustomerUpdated,
		EventSubscriptionCreated,
	}
}

func ParseEventKind(value string) (EventKind, bool) {
	kind := EventKind(strings.TrimSpace(value))
	for _, allowed := range AllowedEventKinds() {
		if kind == allowed {
			return kind, true
		}
	}
	return "", false
}

// Event is the processor's delivery envelope. Data.Object stays raw until
// the routed handler decodes it into its concrete payload.
type Event struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Livemode bool   `json:"livemode"`
	Account  string `json:"account"`
	Created  int64  `json:"created"`
	Data     struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func ParseEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("webhooks: malformed event payload: %w", err)
	}
	if strings.TrimSpace(event.Type) == "" {
		return Event{}, fmt.Errorf("webhooks: event type is required")
	}
	return event, nil
}

func (e Event) OccurredAt() time.Time {
	if e.Created <= 0 {
		return time.Time{}
	}
	return time.Unix(e.Created, 0).UTC()
}

type CheckoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Customer          string            `json:"customer"`
	ClientReferenceID string            `json:"client_reference_id"`
	Invoice           string            `json:"invoice"`
	PaymentIntent     string            `json:"payment_intent"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
	Discounts         []struct {
		PromotionCode string `json:"promotion_code"`
	} `json:"discounts"`
	CustomerDetails struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Address struct {
			Country string `json:"country"`
		} `json:"address"`
	} `json:"customer_details"`
}

// PromotionCode returns the first promotion code attached to the session.
func (s CheckoutSession) PromotionCode() string {
	for _, discount := range s.Discounts {
		if code := strings.TrimSpace(discount.PromotionCode); code != "" {
			return code
		}
	}
	return ""
}

// InvoiceID prefers the invoice over the payment intent for non-invoiced
// charges, matching the idempotency key of a later invoice.paid delivery.
func (s CheckoutSession) InvoiceID() string {
	if invoice := strings.TrimSpace(s.Invoice); invoice != "" {
		return invoice
	}
	return strings.TrimSpace(s.PaymentIntent)
}

type Invoice struct {
	ID            string            `json:"id"`
	Customer      string            `json:"customer"`
	Subscription  string            `json:"subscription"`
	BillingReason string            `json:"billing_reason"`
	AmountPaid    int64             `json:"amount_paid"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
	// Settlement carries the processor's own FX conversion into the
	// account's settlement currency when the charge was converted.
	Settlement *struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"settlement"`
}

type Charge struct {
	ID             string `json:"id"`
	Customer       string `json:"customer"`
	Invoice        string `json:"invoice"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
	Refunded       bool   `json:"refunded"`
}

type CustomerPayload struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
	Address  struct {
		Country string `json:"country"`
	} `json:"address"`
}

type Subscription struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

func decodeObject[T any](event Event, out *T) error {
	if len(event.Data.Object) == 0 {
		return fmt.Errorf("webhooks: event %q has no data object", event.Type)
	}
	if err := json.Unmarshal(event.Data.Object, out); err != nil {
		return fmt.Errorf("webhooks: decode %q object: %w", event.Type, err)
	}
	return nil
}
