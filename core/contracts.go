package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// SecretProvider resolves the shared signing secret for a webhook mode. A
// missing secret must return an error so verification fails closed.
type SecretProvider interface {
	WebhookSecret(ctx context.Context, mode Mode) (string, error)
}

type CreateCustomerInput struct {
	WorkspaceID         string
	ExternalID          string
	ProcessorCustomerID string
	Name                string
	Email               string
	Country             string
	ClickID             string
	LinkID              string
	ClickedAt           time.Time
}

type UpdateCustomerInput struct {
	ID                  string
	ProcessorCustomerID string
	Name                string
	Email               string
	Country             string
	ClickID             string
	LinkID              string
	ClickedAt           time.Time
}

// CustomerStore is the relational customer row. Lookups return
// ErrCustomerNotFound when no row matches.
type CustomerStore interface {
	Get(ctx context.Context, id string) (Customer, error)
	GetByProcessorID(ctx context.Context, processorCustomerID string) (Customer, error)
	GetByExternalID(ctx context.Context, workspaceID string, externalID string) (Customer, error)
	GetByEmail(ctx context.Context, workspaceID string, email string) (Customer, error)
	Create(ctx context.Context, in CreateCustomerInput) (Customer, error)
	Update(ctx context.Context, in UpdateCustomerInput) (Customer, error)
	// IncrementSales adds one sale of the given amount to the customer's
	// cumulative aggregate with a single additive statement.
	IncrementSales(ctx context.Context, id string, amount int64) error
}

type LinkSaleIncrement struct {
	LinkID string
	Amount int64
	// FirstConversion bumps the conversions counter alongside sales.
	FirstConversion bool
}

type LinkStore interface {
	Get(ctx context.Context, id string) (Link, error)
	// IncrementSales applies sales += 1, sale_amount += Amount, and
	// conversions += 1 when FirstConversion, as one additive statement.
	IncrementSales(ctx context.Context, in LinkSaleIncrement) error
	// IncrementLeads applies leads += 1 and advances last_lead_at.
	IncrementLeads(ctx context.Context, linkID string, at time.Time) error
}

type DiscountStore interface {
	GetByCode(ctx context.Context, code string) (Discount, error)
}

type CommissionStore interface {
	Create(ctx context.Context, commission Commission) (Commission, error)
	GetByInvoiceAndProgram(ctx context.Context, invoiceID string, programID string) (Commission, error)
	// UpdateStatus persists a status transition together with the payout
	// binding (empty payout id clears the binding).
	UpdateStatus(ctx context.Context, id string, status CommissionStatus, payoutID string) error
	// MarkRefunded flips the commission to refunded, clears its payout
	// binding, and when payoutID is non-empty subtracts earnings from that
	// payout. The effects must land atomically: either all rows change or
	// none do, so a redelivered refund after a transient failure cannot
	// decrement the payout a second time.
	MarkRefunded(ctx context.Context, id string, payoutID string, earnings int64) error
}

type PayoutStore interface {
	Get(ctx context.Context, id string) (Payout, error)
}

// WorkspaceStore maps connected sub-accounts to workspaces and owns the
// workspace usage counters.
type WorkspaceStore interface {
	GetByConnectedAccount(ctx context.Context, accountID string) (Workspace, error)
	// IncrementSalesUsage bumps the workspace sales-usage counter.
	IncrementSalesUsage(ctx context.Context, workspaceID string, delta int64) error
}

// ClickStore reads the analytics click stream; Append exists only for the
// synthetic click written by the promotion-code fallback.
type ClickStore interface {
	Get(ctx context.Context, clickID string) (ClickEvent, error)
	Append(ctx context.Context, click ClickEvent) error
}

type LeadStore interface {
	Append(ctx context.Context, lead LeadEvent) error
	// LatestByCustomer returns the most recent lead for the customer,
	// ErrLeadNotFound when none exists.
	LatestByCustomer(ctx context.Context, customerID string) (LeadEvent, error)
}

type SaleStore interface {
	Append(ctx context.Context, sale SaleEvent) error
	// ExistsForCustomerLink reports whether any prior sale is recorded for
	// the (customer, link) pair; drives first-conversion detection.
	ExistsForCustomerLink(ctx context.Context, customerID string, linkID string) (bool, error)
}

// IdempotencyClaimStore is the only cross-delivery synchronization point.
// ClaimOnce must be atomic at the store level: set-if-absent with TTL.
type IdempotencyClaimStore interface {
	ClaimOnce(ctx context.Context, key string, payload []byte, ttl time.Duration) (bool, error)
}

// ProcessorClient is the read-only payment-processor API surface, scoped by
// connected-account identifier and environment mode.
type ProcessorClient interface {
	GetCustomer(ctx context.Context, accountID string, customerID string, mode Mode) (ProcessorCustomer, error)
	// SubscriptionProductID resolves the product identifier behind a
	// subscription/line item for commission context.
	SubscriptionProductID(ctx context.Context, accountID string, subscriptionID string, mode Mode) (string, error)
}

type CurrencyConverter interface {
	Convert(ctx context.Context, amount int64, fromCurrency string) (int64, string, error)
}

type CommissionRules interface {
	// Compute returns nil when the sale earns no commission.
	Compute(ctx context.Context, in CommissionContext) (*CommissionResult, error)
}

type WorkflowEmitter interface {
	Emit(ctx context.Context, event WorkflowEvent) error
}

type PartnerStatsResyncer interface {
	Resync(ctx context.Context, programID string, partnerID string, linkID string) error
}

type WebhookEndpointStore interface {
	ListByWorkspace(ctx context.Context, workspaceID string) ([]WebhookEndpoint, error)
}

// WebhookSender delivers one notification to one workspace endpoint. Fire
// and forget: failures are logged per recipient, never retried here.
type WebhookSender interface {
	Send(ctx context.Context, endpoint WebhookEndpoint, notification Notification) error
}

// NotificationOutboxStore is the durable side of fire-and-forget: pending
// notifications survive a crash and are drained by a background dispatcher.
type NotificationOutboxStore interface {
	Enqueue(ctx context.Context, notification Notification) error
	ClaimBatch(ctx context.Context, limit int) ([]Notification, error)
	Ack(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error
}

type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg any) error
}

// BackgroundRunner schedules fire-and-forget work decoupled from the
// webhook response lifecycle. Implementations recover panics and log task
// failures; callers get no error channel back.
type BackgroundRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}
