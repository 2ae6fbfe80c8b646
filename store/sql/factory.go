// Package sqlstore implements the relational persistence contracts on bun.
// Postgres is the production dialect; sqlite backs the integration tests.
package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	_ "github.com/lib/pq"
)

// RepositoryFactory builds every store against one bun handle so callers
// wire persistence in a single step.
type RepositoryFactory struct {
	db *bun.DB

	customerStore    *CustomerStore
	linkStore        *LinkStore
	discountStore    *DiscountStore
	commissionStore  *CommissionStore
	payoutStore      *PayoutStore
	workspaceStore   *WorkspaceStore
	clickEventStore  *ClickEventStore
	leadEventStore   *LeadEventStore
	saleEventStore   *SaleEventStore
	idempotencyStore *IdempotencyClaimStore
	outboxStore      *NotificationOutboxStore
	endpointStore    *WebhookEndpointStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// NewPostgresRepositoryFactory opens the production postgres connection and
// builds the stores on the pg dialect. The caller owns the returned handle's
// lifecycle through DB().
func NewPostgresRepositoryFactory(dsn string) (*RepositoryFactory, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	return NewRepositoryFactoryFromDB(bun.NewDB(sqldb, pgdialect.New()))
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.customerStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) CustomerStore() *CustomerStore {
	if f == nil {
		return nil
	}
	return f.customerStore
}

func (f *RepositoryFactory) LinkStore() *LinkStore {
	if f == nil {
		return nil
	}
	return f.linkStore
}

func (f *RepositoryFactory) DiscountStore() *DiscountStore {
	if f == nil {
		return nil
	}
	return f.discountStore
}

func (f *RepositoryFactory) CommissionStore() *CommissionStore {
	if f == nil {
		return nil
	}
	return f.commissionStore
}

func (f *RepositoryFactory) PayoutStore() *PayoutStore {
	if f == nil {
		return nil
	}
	return f.payoutStore
}

func (f *RepositoryFactory) WorkspaceStore() *WorkspaceStore {
	if f == nil {
		return nil
	}
	return f.workspaceStore
}

func (f *RepositoryFactory) ClickEventStore() *ClickEventStore {
	if f == nil {
		return nil
	}
	return f.clickEventStore
}

func (f *RepositoryFactory) LeadEventStore() *LeadEventStore {
	if f == nil {
		return nil
	}
	return f.leadEventStore
}

func (f *RepositoryFactory) SaleEventStore() *SaleEventStore {
	if f == nil {
		return nil
	}
	return f.saleEventStore
}

func (f *RepositoryFactory) IdempotencyClaimStore() *IdempotencyClaimStore {
	if f == nil {
		return nil
	}
	return f.idempotencyStore
}

func (f *RepositoryFactory) NotificationOutboxStore() *NotificationOutboxStore {
	if f == nil {
		return nil
	}
	return f.outboxStore
}

func (f *RepositoryFactory) WebhookEndpointStore() *WebhookEndpointStore {
	if f == nil {
		return nil
	}
	return f.endpointStore
}

func (f *RepositoryFactory) initStores() error {
	customerStore, err := NewCustomerStore(f.db)
	if err != nil {
		return err
	}
	f.customerStore = customerStore
	linkStore, err := NewLinkStore(f.db)
	if err != nil {
		return err
	}
	f.linkStore = linkStore
	discountStore, err := NewDiscountStore(f.db)
	if err != nil {
		return err
	}
	f.discountStore = discountStore
	commissionStore, err := NewCommissionStore(f.db)
	if err != nil {
		return err
	}
	f.commissionStore = commissionStore
	payoutStore, err := NewPayoutStore(f.db)
	if err != nil {
		return err
	}
	f.payoutStore = payoutStore
	workspaceStore, err := NewWorkspaceStore(f.db)
	if err != nil {
		return err
	}
	f.workspaceStore = workspaceStore
	clickEventStore, err := NewClickEventStore(f.db)
	if err != nil {
		return err
	}
	f.clickEventStore = clickEventStore
	leadEventStore, err := NewLeadEventStore(f.db)
	if err != nil {
		return err
	}
	f.leadEventStore = leadEventStore
	saleEventStore, err := NewSaleEventStore(f.db)
	if err != nil {
		return err
	}
	f.saleEventStore = saleEventStore
	idempotencyStore, err := NewIdempotencyClaimStore(f.db)
	if err != nil {
		return err
	}
	f.idempotencyStore = idempotencyStore
	outboxStore, err := NewNotificationOutboxStore(f.db)
	if err != nil {
		return err
	}
	f.outboxStore = outboxStore
	endpointStore, err := NewWebhookEndpointStore(f.db)
	if err != nil {
		return err
	}
	f.endpointStore = endpointStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
