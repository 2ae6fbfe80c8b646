package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ClickEventStore reads the click stream. Append exists only for the
// synthetic click written by the promotion-code attribution fallback.
type ClickEventStore struct {
	db *bun.DB
}

func NewClickEventStore(db *bun.DB) (*ClickEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &ClickEventStore{db: db}, nil
}

func (s *ClickEventStore) Get(ctx context.Context, clickID string) (core.ClickEvent, error) {
	if s == nil || s.db == nil {
		return core.ClickEvent{}, fmt.Errorf("sqlstore: click event store is not configured")
	}
	clickID = strings.TrimSpace(clickID)
	if clickID == "" {
		return core.ClickEvent{}, core.ErrClickNotFound
	}
	record := &clickEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", clickID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ClickEvent{}, core.ErrClickNotFound
		}
		return core.ClickEvent{}, err
	}
	return record.toDomain(), nil
}

func (s *ClickEventStore) Append(ctx context.Context, click core.ClickEvent) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: click event store is not configured")
	}
	if strings.TrimSpace(click.LinkID) == "" {
		return fmt.Errorf("sqlstore: click link id is required")
	}
	id := strings.TrimSpace(click.ID)
	if id == "" {
		id = uuid.NewString()
	}
	timestamp := click.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	record := &clickEventRecord{
		ID:          id,
		LinkID:      strings.TrimSpace(click.LinkID),
		WorkspaceID: strings.TrimSpace(click.WorkspaceID),
		Country:     strings.TrimSpace(click.Country),
		Timestamp:   timestamp.UTC(),
	}
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

type LeadEventStore struct {
	db *bun.DB
}

func NewLeadEventStore(db *bun.DB) (*LeadEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &LeadEventStore{db: db}, nil
}

func (s *LeadEventStore) Append(ctx context.Context, lead core.LeadEvent) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: lead event store is not configured")
	}
	if strings.TrimSpace(lead.CustomerID) == "" {
		return fmt.Errorf("sqlstore: lead customer id is required")
	}
	if strings.TrimSpace(lead.LinkID) == "" {
		return fmt.Errorf("sqlstore: lead link id is required")
	}
	id := strings.TrimSpace(lead.ID)
	if id == "" {
		id = uuid.NewString()
	}
	timestamp := lead.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	record := &leadEventRecord{
		ID:          id,
		CustomerID:  strings.TrimSpace(lead.CustomerID),
		LinkID:      strings.TrimSpace(lead.LinkID),
		WorkspaceID: strings.TrimSpace(lead.WorkspaceID),
		EventName:   strings.TrimSpace(lead.EventName),
		Timestamp:   timestamp.UTC(),
	}
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

func (s *LeadEventStore) LatestByCustomer(ctx context.Context, customerID string) (core.LeadEvent, error) {
	if s == nil || s.db == nil {
		return core.LeadEvent{}, fmt.Errorf("sqlstore: lead event store is not configured")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return core.LeadEvent{}, core.ErrLeadNotFound
	}
	record := &leadEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.customer_id = ?", customerID).
		OrderExpr("?TableAlias.timestamp DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.LeadEvent{}, core.ErrLeadNotFound
		}
		return core.LeadEvent{}, err
	}
	return record.toDomain(), nil
}

type SaleEventStore struct {
	db *bun.DB
}

func NewSaleEventStore(db *bun.DB) (*SaleEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &SaleEventStore{db: db}, nil
}

func (s *SaleEventStore) Append(ctx context.Context, sale core.SaleEvent) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: sale event store is not configured")
	}
	if strings.TrimSpace(sale.CustomerID) == "" {
		return fmt.Errorf("sqlstore: sale customer id is required")
	}
	if strings.TrimSpace(sale.InvoiceID) == "" {
		return fmt.Errorf("sqlstore: sale invoice id is required")
	}
	id := strings.TrimSpace(sale.ID)
	if id == "" {
		id = uuid.NewString()
	}
	timestamp := sale.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	record := &saleEventRecord{
		ID:          id,
		CustomerID:  strings.TrimSpace(sale.CustomerID),
		LinkID:      strings.TrimSpace(sale.LinkID),
		WorkspaceID: strings.TrimSpace(sale.WorkspaceID),
		InvoiceID:   strings.TrimSpace(sale.InvoiceID),
		Amount:      sale.Amount,
		Currency:    strings.TrimSpace(sale.Currency),
		Processor:   strings.TrimSpace(sale.Processor),
		Metadata:    copyAnyMap(sale.Metadata),
		Timestamp:   timestamp.UTC(),
	}
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

func (s *SaleEventStore) ExistsForCustomerLink(ctx context.Context, customerID string, linkID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: sale event store is not configured")
	}
	count, err := s.db.NewSelect().
		Model((*saleEventRecord)(nil)).
		Where("?TableAlias.customer_id = ?", strings.TrimSpace(customerID)).
		Where("?TableAlias.link_id = ?", strings.TrimSpace(linkID)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var (
	_ core.ClickStore = (*ClickEventStore)(nil)
	_ core.LeadStore  = (*LeadEventStore)(nil)
	_ core.SaleStore  = (*SaleEventStore)(nil)
)
