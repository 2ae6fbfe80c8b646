package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type LinkStore struct {
	db   *bun.DB
	repo repository.Repository[*linkRecord]
}

func NewLinkStore(db *bun.DB) (*LinkStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*linkRecord](db, linkHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid link repository wiring: %w", err)
		}
	}
	return &LinkStore{db: db, repo: repo}, nil
}

func (s *LinkStore) Get(ctx context.Context, id string) (core.Link, error) {
	if s == nil || s.db == nil {
		return core.Link{}, fmt.Errorf("sqlstore: link store is not configured")
	}
	record := &linkRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Link{}, core.ErrLinkNotFound
		}
		return core.Link{}, err
	}
	return record.toDomain(), nil
}

// IncrementSales applies the sale counters in one additive statement so
// concurrent deliveries never lose an update.
func (s *LinkStore) IncrementSales(ctx context.Context, in core.LinkSaleIncrement) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: link store is not configured")
	}
	linkID := strings.TrimSpace(in.LinkID)
	if linkID == "" {
		return fmt.Errorf("sqlstore: link id is required")
	}
	query := s.db.NewUpdate().
		Model((*linkRecord)(nil)).
		Set("sales = sales + 1").
		Set("sale_amount = sale_amount + ?", in.Amount).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", linkID)
	if in.FirstConversion {
		query = query.Set("conversions = conversions + 1")
	}
	result, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.ErrLinkNotFound
	}
	return nil
}

func (s *LinkStore) IncrementLeads(ctx context.Context, linkID string, at time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: link store is not configured")
	}
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return fmt.Errorf("sqlstore: link id is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	result, err := s.db.NewUpdate().
		Model((*linkRecord)(nil)).
		Set("leads = leads + 1").
		Set("last_lead_at = ?", at.UTC()).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", linkID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.ErrLinkNotFound
	}
	return nil
}

var _ core.LinkStore = (*LinkStore)(nil)
