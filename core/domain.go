package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidMode                       = errors.New("core: invalid webhook mode")
	ErrInvalidCommissionStatusTransition = errors.New("core: invalid commission status transition")
	ErrCustomerNotFound                  = errors.New("core: customer not found")
	ErrClickNotFound                     = errors.New("core: click event not found")
	ErrLeadNotFound                      = errors.New("core: lead event not found")
	ErrLinkNotFound                      = errors.New("core: link not found")
	ErrDiscountNotFound                  = errors.New("core: discount not found")
	ErrCommissionNotFound                = errors.New("core: commission not found")
	ErrWorkspaceNotFound                 = errors.New("core: workspace not found")
	ErrPayoutNotFound                    = errors.New("core: payout not found")
)

// MetadataKeyExternalID is the processor metadata key under which callers
// stash the platform's customer external id.
const MetadataKeyExternalID = "dubCustomerId"

// Mode identifies which endpoint variant received a delivery. Each mode has
// its own shared signing secret.
type Mode string

const (
	ModeLive    Mode = "live"
	ModeTest    Mode = "test"
	ModeSandbox Mode = "sandbox"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.TrimSpace(strings.ToLower(value))) {
	case ModeLive:
		return ModeLive, nil
	case ModeTest:
		return ModeTest, nil
	case ModeSandbox:
		return ModeSandbox, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, value)
	}
}

// Live reports whether deliveries for this mode carry live-mode events.
// Test and sandbox endpoints both receive test-flagged events.
func (m Mode) Live() bool {
	return m == ModeLive
}

type Customer struct {
	ID                  string
	WorkspaceID         string
	ExternalID          string
	ProcessorCustomerID string
	Name                string
	Email               string
	Country             string
	ClickID             string
	LinkID              string
	SaleCount           int64
	SaleAmount          int64
	ClickedAt           time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ClickEvent is the root of an attribution chain. Immutable; read-only here
// except for the synthetic click written by the promotion-code fallback.
type ClickEvent struct {
	ID          string
	LinkID      string
	WorkspaceID string
	Country     string
	Timestamp   time.Time
}

type LeadEvent struct {
	ID          string
	CustomerID  string
	LinkID      string
	WorkspaceID string
	EventName   string
	Timestamp   time.Time
}

type SaleEvent struct {
	ID          string
	CustomerID  string
	LinkID      string
	WorkspaceID string
	InvoiceID   string
	Amount      int64
	Currency    string
	Processor   string
	Metadata    map[string]any
	Timestamp   time.Time
}

// Link carries denormalized counters mutated additively by this module. The
// rest of the record is owned by the link-management subsystem.
type Link struct {
	ID          string
	WorkspaceID string
	ProgramID   string
	PartnerID   string
	Leads       int64
	Sales       int64
	SaleAmount  int64
	Conversions int64
	LastLeadAt  time.Time
}

// Partnered reports whether sales through this link earn commissions.
func (l Link) Partnered() bool {
	return strings.TrimSpace(l.ProgramID) != "" && strings.TrimSpace(l.PartnerID) != ""
}

type Discount struct {
	ID          string
	WorkspaceID string
	LinkID      string
	Code        string
	ProgramID   string
	PartnerID   string
}

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusProcessed CommissionStatus = "processed"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusRefunded  CommissionStatus = "refunded"
)

type Commission struct {
	ID         string
	ProgramID  string
	PartnerID  string
	LinkID     string
	CustomerID string
	EventID    string
	PayoutID   string
	InvoiceID  string
	Amount     int64
	Earnings   int64
	Quantity   int
	Currency   string
	Status     CommissionStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Commission) TransitionTo(status CommissionStatus, now time.Time) error {
	if c == nil {
		return nil
	}
	if c.Status == status {
		c.UpdatedAt = now
		return nil
	}
	if !commissionTransitionAllowed(c.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidCommissionStatusTransition, c.Status, status)
	}
	c.Status = status
	c.UpdatedAt = now
	return nil
}

func commissionTransitionAllowed(current, next CommissionStatus) bool {
	allowed := map[CommissionStatus]map[CommissionStatus]struct{}{
		CommissionStatusPending: {
			CommissionStatusProcessed: {},
			CommissionStatusRefunded:  {},
		},
		CommissionStatusProcessed: {
			CommissionStatusPaid:     {},
			CommissionStatusRefunded: {},
		},
		CommissionStatusPaid:     {},
		CommissionStatusRefunded: {},
	}
	_, ok := allowed[current][next]
	return ok
}

type Payout struct {
	ID          string
	ProgramID   string
	PartnerID   string
	Amount      int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResolutionStrategy names which identity-resolution step matched. The order
// of the constants mirrors the resolution priority.
type ResolutionStrategy string

const (
	ResolveViaClientReference  ResolutionStrategy = "client_reference"
	ResolveViaProcessorID      ResolutionStrategy = "processor_customer"
	ResolveViaExternalID       ResolutionStrategy = "external_id"
	ResolveViaConnectedAccount ResolutionStrategy = "connected_account"
	ResolveViaPromotionCode    ResolutionStrategy = "promotion_code"
)

// ResolvedIdentity is the output of identity resolution: the internal
// customer, its attribution link, and the lead that anchors sale recording.
type ResolvedIdentity struct {
	Customer Customer
	Link     Link
	Lead     LeadEvent
	Via      ResolutionStrategy

	// NewLead is set when the resolution synthesized a fresh customer and
	// lead (promotion-code fallback or first client-reference attribution).
	NewLead bool
	// SuppressLeadNotification keeps internally-generated leads from firing
	// an outward "lead created" duplicate.
	SuppressLeadNotification bool
}

// ProcessorCustomer is the processor's own view of a customer record,
// scoped to a connected sub-account.
type ProcessorCustomer struct {
	ID       string
	Email    string
	Name     string
	Country  string
	Metadata map[string]string
}

type CommissionContext struct {
	ProgramID       string
	PartnerID       string
	LinkID          string
	CustomerID      string
	CustomerCountry string
	ProductID       string
	Amount          int64
	Currency        string
	Quantity        int
}

type CommissionResult struct {
	Amount   int64
	Earnings int64
	Quantity int
}

// WorkflowEvent is the payload handed to the workflow-trigger emitter for
// partner/lead metrics recomputation.
type WorkflowEvent struct {
	Name        string
	WorkspaceID string
	ProgramID   string
	PartnerID   string
	LinkID      string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// Notification is an outward-facing event delivered to workspace webhook
// endpoints and recorded in the notification outbox.
type Notification struct {
	ID          string
	WorkspaceID string
	EventName   string
	Payload     map[string]any
	OccurredAt  time.Time
	// Attempts counts prior delivery attempts; populated by the outbox
	// store when a pending notification is claimed.
	Attempts int
}

const (
	NotificationLeadCreated = "lead.created"
	NotificationSaleCreated = "sale.created"
)

// Workspace is the tenant owning links, customers, and usage counters. One
// connected sub-account on the processor maps to at most one workspace.
type Workspace struct {
	ID                 string
	ConnectedAccountID string
	SalesUsage         int64
}

// ResolveInput carries everything a webhook event knows about the identity
// behind it. Blank fields make the corresponding strategies fall through.
type ResolveInput struct {
	Mode                Mode
	Workspace           Workspace
	ConnectedAccountID  string
	ProcessorCustomerID string
	ExternalID          string
	ClientReferenceID   string
	PromotionCode       string
	Email               string
	Name                string
	Country             string
	// AllowMissingLead lets resolution succeed without a lead; used by the
	// trial-lead path which records the lead itself afterwards.
	AllowMissingLead bool
}

type AttributeCommissionInput struct {
	Sale               SaleEvent
	Identity           ResolvedIdentity
	SubscriptionID     string
	ConnectedAccountID string
	Mode               Mode
}

type RecordSaleInput struct {
	Identity  ResolvedIdentity
	InvoiceID string
	Amount    int64
	Currency  string
	// SettledAmount carries the processor's own FX conversion into the base
	// currency when it reported one; preferred over the converter.
	SettledAmount   int64
	SettledCurrency string
	Processor       string
	Metadata        map[string]any
}

type RecordLeadInput struct {
	Customer  Customer
	LinkID    string
	EventName string
}

type WebhookEndpoint struct {
	ID          string
	WorkspaceID string
	URL         string
	Secret      string
}
