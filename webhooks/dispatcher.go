package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-attribution/core"
)

// Delivery is one raw inbound webhook request.
type Delivery struct {
	Body            []byte
	SignatureHeader string
	Mode            core.Mode
}

// Result is what the HTTP layer writes back: a status code and a plaintext
// outcome message.
type Result struct {
	StatusCode int
	Message    string
}

type IdentityResolver interface {
	Resolve(ctx context.Context, in core.ResolveInput) (core.ResolvedIdentity, error)
	// BindProcessorCustomer attaches a processor customer id to an existing
	// customer; bound=false means no matching customer was found.
	BindProcessorCustomer(ctx context.Context, in core.ResolveInput) (core.Customer, bool, error)
}

type SaleRecorder interface {
	RecordSale(ctx context.Context, in core.RecordSaleInput) (core.SaleEvent, error)
	RecordLead(ctx context.Context, in core.RecordLeadInput) (core.LeadEvent, error)
}

type CommissionAttributor interface {
	AttributeCommission(ctx context.Context, in core.AttributeCommissionInput) (*core.Commission, error)
	// RefundCommission reverses the commission recorded for the invoice;
	// the returned message describes the outcome.
	RefundCommission(ctx context.Context, invoiceID string, programID string) (string, error)
}

type Notifier interface {
	LeadCreated(ctx context.Context, identity core.ResolvedIdentity, lead core.LeadEvent)
	SaleCreated(ctx context.Context, identity core.ResolvedIdentity, sale core.SaleEvent)
}

type handlerFunc func(ctx context.Context, delivery Delivery, event Event) (string, error)

// Dependencies wires the pipeline components behind the dispatcher. All are
// required except Observer.
type Dependencies struct {
	Verifier    *SignatureVerifier
	Claims      core.IdempotencyClaimStore
	Workspaces  core.WorkspaceStore
	Resolver    IdentityResolver
	Recorder    SaleRecorder
	Commissions CommissionAttributor
	Notifier    Notifier
	Customers   core.CustomerStore
	Links       core.LinkStore
	Observer    *core.Observer
}

type Dispatcher struct {
	config      core.Config
	verifier    *SignatureVerifier
	claims      core.IdempotencyClaimStore
	workspaces  core.WorkspaceStore
	resolver    IdentityResolver
	recorder    SaleRecorder
	commissions CommissionAttributor
	notifier    Notifier
	customers   core.CustomerStore
	links       core.LinkStore
	observer    *core.Observer
	handlers    map[EventKind]handlerFunc
	now         func() time.Time
}

func NewDispatcher(cfg core.Config, deps Dependencies) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("webhooks: signature verifier is required")
	}
	if deps.Claims == nil {
		return nil, fmt.Errorf("webhooks: idempotency claim store is required")
	}
	if deps.Workspaces == nil {
		return nil, fmt.Errorf("webhooks: workspace store is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("webhooks: identity resolver is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("webhooks: sale recorder is required")
	}
	if deps.Commissions == nil {
		return nil, fmt.Errorf("webhooks: commission attributor is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("webhooks: notifier is required")
	}
	if deps.Customers == nil {
		return nil, fmt.Errorf("webhooks: customer store is required")
	}
	if deps.Links == nil {
		return nil, fmt.Errorf("webhooks: link store is required")
	}

	d := &Dispatcher{
		config:      cfg,
		verifier:    deps.Verifier,
		claims:      deps.Claims,
		workspaces:  deps.Workspaces,
		resolver:    deps.Resolver,
		recorder:    deps.Recorder,
		commissions: deps.Commissions,
		notifier:    deps.Notifier,
		customers:   deps.Customers,
		links:       deps.Links,
		observer:    deps.Observer,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	d.handlers = map[EventKind]handlerFunc{
		EventCheckoutSessionCompleted: d.handleCheckoutCompleted,
		EventInvoicePaid:              d.handleInvoicePaid,
		EventChargeRefunded:           d.handleChargeRefunded,
		EventCustomerCreated:          d.handleCustomerUpserted,
		EventCustomerUpdated:          d.handleCustomerUpserted,
		EventSubscriptionCreated:      d.handleSubscriptionCreated,
	}
	return d, nil
}

// Dispatch runs one delivery through verification, filtering, and routing.
// The returned error is non-nil only for 4xx/5xx outcomes; the Result is
// always populated.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery Delivery) (Result, error) {
	if d == nil {
		return Result{StatusCode: http.StatusInternalServerError, Message: "Internal server error"},
			fmt.Errorf("webhooks: dispatcher is nil")
	}
	startedAt := d.now()

	if err := d.verifier.Verify(ctx, delivery.Body, delivery.SignatureHeader, delivery.Mode); err != nil {
		d.observe(ctx, startedAt, "dispatch", err, map[string]any{"mode": string(delivery.Mode)})
		return Result{StatusCode: http.StatusBadRequest, Message: "Invalid signature"}, err
	}

	event, err := ParseEvent(delivery.Body)
	if err != nil {
		d.observe(ctx, startedAt, "dispatch", err, map[string]any{"mode": string(delivery.Mode)})
		return Result{StatusCode: http.StatusBadRequest, Message: "Malformed payload"}, err
	}

	fields := map[string]any{
		"event_type": event.Type,
		"event_id":   event.ID,
		"mode":       string(delivery.Mode),
	}

	kind, supported := ParseEventKind(event.Type)
	if !supported {
		skip := core.Skipf("Unsupported event type %q, skipping...", event.Type)
		d.observe(ctx, startedAt, "dispatch", skip, fields)
		return Result{StatusCode: http.StatusOK, Message: skip.Error()}, nil
	}

	// Processor fan-out can deliver sandbox events to the live endpoint;
	// those are logged and dropped, never treated as failures.
	if !event.Livemode && delivery.Mode.Live() {
		skip := core.Skipf("Test event %s delivered to live endpoint, skipping...", event.ID)
		d.observe(ctx, startedAt, "dispatch", skip, fields)
		return Result{StatusCode: http.StatusOK, Message: skip.Error()}, nil
	}

	message, err := d.handlers[kind](ctx, delivery, event)
	if err != nil {
		d.observe(ctx, startedAt, "dispatch", err, fields)
		if reason, skipped := core.SkipReason(err); skipped {
			return Result{StatusCode: http.StatusOK, Message: reason}, nil
		}
		status := attributionStatus(err)
		message := "Internal server error"
		if status == http.StatusBadRequest {
			message = "Malformed payload"
		}
		return Result{StatusCode: status, Message: message}, err
	}

	d.observe(ctx, startedAt, "dispatch", nil, fields)
	return Result{StatusCode: http.StatusOK, Message: message}, nil
}

func (d *Dispatcher) observe(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	if d == nil || d.observer == nil {
		return
	}
	d.observer.ObserveOperation(ctx, startedAt, operation, err, fields)
}

// attributionStatus maps handler errors onto the processor retry contract:
// malformed payloads are 400, everything else that escapes a handler is a
// transient failure surfaced as 5xx so the processor retries.
func attributionStatus(err error) int {
	mapped := core.MapError(err)
	switch {
	case mapped == nil:
		return http.StatusInternalServerError
	case mapped.Code == http.StatusBadRequest:
		return http.StatusBadRequest
	case mapped.Code >= http.StatusInternalServerError:
		return mapped.Code
	default:
		return http.StatusInternalServerError
	}
}
