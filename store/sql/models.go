package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type customerRecord struct {
	bun.BaseModel `bun:"table:attribution_customers,alias:ac"`

	ID                  string     `bun:"id,pk"`
	WorkspaceID         string     `bun:"workspace_id,notnull"`
	ExternalID          string     `bun:"external_id"`
	ProcessorCustomerID string     `bun:"processor_customer_id"`
	Name                string     `bun:"name"`
	Email               string     `bun:"email"`
	Country             string     `bun:"country"`
	ClickID             string     `bun:"click_id"`
	LinkID              string     `bun:"link_id"`
	SaleCount           int64      `bun:"sale_count,notnull,default:0"`
	SaleAmount          int64      `bun:"sale_amount,notnull,default:0"`
	ClickedAt           *time.Time `bun:"clicked_at,nullzero"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type linkRecord struct {
	bun.BaseModel `bun:"table:attribution_links,alias:alk"`

	ID          string     `bun:"id,pk"`
	WorkspaceID string     `bun:"workspace_id,notnull"`
	ProgramID   string     `bun:"program_id"`
	PartnerID   string     `bun:"partner_id"`
	Leads       int64      `bun:"leads,notnull,default:0"`
	Sales       int64      `bun:"sales,notnull,default:0"`
	SaleAmount  int64      `bun:"sale_amount,notnull,default:0"`
	Conversions int64      `bun:"conversions,notnull,default:0"`
	LastLeadAt  *time.Time `bun:"last_lead_at,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type discountRecord struct {
	bun.BaseModel `bun:"table:attribution_discounts,alias:ad"`

	ID          string    `bun:"id,pk"`
	WorkspaceID string    `bun:"workspace_id,notnull"`
	LinkID      string    `bun:"link_id,notnull"`
	Code        string    `bun:"code,notnull"`
	ProgramID   string    `bun:"program_id"`
	PartnerID   string    `bun:"partner_id"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type commissionRecord struct {
	bun.BaseModel `bun:"table:attribution_commissions,alias:acm"`

	ID         string    `bun:"id,pk"`
	ProgramID  string    `bun:"program_id,notnull"`
	PartnerID  string    `bun:"partner_id,notnull"`
	LinkID     string    `bun:"link_id,notnull"`
	CustomerID string    `bun:"customer_id,notnull"`
	EventID    string    `bun:"event_id,notnull"`
	PayoutID   *string   `bun:"payout_id"`
	InvoiceID  string    `bun:"invoice_id,notnull"`
	Amount     int64     `bun:"amount,notnull"`
	Earnings   int64     `bun:"earnings,notnull"`
	Quantity   int       `bun:"quantity,notnull,default:1"`
	Currency   string    `bun:"currency,notnull"`
	Status     string    `bun:"status,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type payoutRecord struct {
	bun.BaseModel `bun:"table:attribution_payouts,alias:ap"`

	ID          string    `bun:"id,pk"`
	ProgramID   string    `bun:"program_id,notnull"`
	PartnerID   string    `bun:"partner_id,notnull"`
	Amount      int64     `bun:"amount,notnull,default:0"`
	PeriodStart time.Time `bun:"period_start,nullzero,notnull"`
	PeriodEnd   time.Time `bun:"period_end,nullzero,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type workspaceRecord struct {
	bun.BaseModel `bun:"table:attribution_workspaces,alias:aw"`

	ID                 string    `bun:"id,pk"`
	ConnectedAccountID string    `bun:"connected_account_id,notnull"`
	SalesUsage         int64     `bun:"sales_usage,notnull,default:0"`
	CreatedAt          time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type clickEventRecord struct {
	bun.BaseModel `bun:"table:attribution_click_events,alias:ace"`

	ID          string    `bun:"id,pk"`
	LinkID      string    `bun:"link_id,notnull"`
	WorkspaceID string    `bun:"workspace_id,notnull"`
	Country     string    `bun:"country"`
	Timestamp   time.Time `bun:"timestamp,nullzero,notnull"`
}

type leadEventRecord struct {
	bun.BaseModel `bun:"table:attribution_lead_events,alias:ale"`

	ID          string    `bun:"id,pk"`
	CustomerID  string    `bun:"customer_id,notnull"`
	LinkID      string    `bun:"link_id,notnull"`
	WorkspaceID string    `bun:"workspace_id,notnull"`
	EventName   string    `bun:"event_name,notnull"`
	Timestamp   time.Time `bun:"timestamp,nullzero,notnull"`
}

type saleEventRecord struct {
	bun.BaseModel `bun:"table:attribution_sale_events,alias:ase"`

	ID          string         `bun:"id,pk"`
	CustomerID  string         `bun:"customer_id,notnull"`
	LinkID      string         `bun:"link_id,notnull"`
	WorkspaceID string         `bun:"workspace_id,notnull"`
	InvoiceID   string         `bun:"invoice_id,notnull"`
	Amount      int64          `bun:"amount,notnull"`
	Currency    string         `bun:"currency,notnull"`
	Processor   string         `bun:"processor,notnull"`
	Metadata    map[string]any `bun:"metadata,type:jsonb"`
	Timestamp   time.Time      `bun:"timestamp,nullzero,notnull"`
}

type idempotencyClaimRecord struct {
	bun.BaseModel `bun:"table:attribution_idempotency_claims,alias:aic"`

	Key       string    `bun:"key,pk"`
	Payload   []byte    `bun:"payload"`
	ExpiresAt time.Time `bun:"expires_at,nullzero,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type notificationOutboxRecord struct {
	bun.BaseModel `bun:"table:attribution_notification_outbox,alias:ano"`

	ID            string         `bun:"id,pk"`
	WorkspaceID   string         `bun:"workspace_id,notnull"`
	EventName     string         `bun:"event_name,notnull"`
	Payload       map[string]any `bun:"payload,type:jsonb"`
	Status        string         `bun:"status,notnull"`
	Attempts      int            `bun:"attempts,notnull,default:0"`
	NextAttemptAt *time.Time     `bun:"next_attempt_at,nullzero"`
	LastError     string         `bun:"last_error"`
	OccurredAt    time.Time      `bun:"occurred_at,nullzero,notnull"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookEndpointRecord struct {
	bun.BaseModel `bun:"table:attribution_webhook_endpoints,alias:awe"`

	ID          string    `bun:"id,pk"`
	WorkspaceID string    `bun:"workspace_id,notnull"`
	URL         string    `bun:"url,notnull"`
	Secret      string    `bun:"secret"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
