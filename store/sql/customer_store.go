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
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CustomerStore struct {
	db   *bun.DB
	repo repository.Repository[*customerRecord]
}

func NewCustomerStore(db *bun.DB) (*CustomerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*customerRecord](db, customerHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid customer repository wiring: %w", err)
		}
	}
	return &CustomerStore{db: db, repo: repo}, nil
}

func (s *CustomerStore) Get(ctx context.Context, id string) (core.Customer, error) {
	return s.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", strings.TrimSpace(id))
	})
}

func (s *CustomerStore) GetByProcessorID(ctx context.Context, processorCustomerID string) (core.Customer, error) {
	return s.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.processor_customer_id = ?", strings.TrimSpace(processorCustomerID))
	})
}

func (s *CustomerStore) GetByExternalID(ctx context.Context, workspaceID string, externalID string) (core.Customer, error) {
	return s.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("?TableAlias.workspace_id = ?", strings.TrimSpace(workspaceID)).
			Where("?TableAlias.external_id = ?", strings.TrimSpace(externalID))
	})
}

func (s *CustomerStore) GetByEmail(ctx context.Context, workspaceID string, email string) (core.Customer, error) {
	return s.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("?TableAlias.workspace_id = ?", strings.TrimSpace(workspaceID)).
			Where("lower(?TableAlias.email) = lower(?)", strings.TrimSpace(email))
	})
}

func (s *CustomerStore) Create(ctx context.Context, in core.CreateCustomerInput) (core.Customer, error) {
	if s == nil || s.repo == nil {
		return core.Customer{}, fmt.Errorf("sqlstore: customer store is not configured")
	}
	if strings.TrimSpace(in.WorkspaceID) == "" {
		return core.Customer{}, fmt.Errorf("sqlstore: workspace id is required")
	}

	now := time.Now().UTC()
	record := &customerRecord{
		ID:                  uuid.NewString(),
		WorkspaceID:         strings.TrimSpace(in.WorkspaceID),
		ExternalID:          strings.TrimSpace(in.ExternalID),
		ProcessorCustomerID: strings.TrimSpace(in.ProcessorCustomerID),
		Name:                strings.TrimSpace(in.Name),
		Email:               strings.TrimSpace(in.Email),
		Country:             strings.TrimSpace(in.Country),
		ClickID:             strings.TrimSpace(in.ClickID),
		LinkID:              strings.TrimSpace(in.LinkID),
		ClickedAt:           timePointer(in.ClickedAt),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Customer{}, err
	}
	return created.toDomain(), nil
}

func (s *CustomerStore) Update(ctx context.Context, in core.UpdateCustomerInput) (core.Customer, error) {
	if s == nil || s.repo == nil {
		return core.Customer{}, fmt.Errorf("sqlstore: customer store is not configured")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return core.Customer{}, fmt.Errorf("sqlstore: customer id is required")
	}
	record := &customerRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Customer{}, core.ErrCustomerNotFound
		}
		return core.Customer{}, err
	}

	// Only non-blank fields overwrite: update is a merge, not a replace.
	if value := strings.TrimSpace(in.ProcessorCustomerID); value != "" {
		record.ProcessorCustomerID = value
	}
	if value := strings.TrimSpace(in.Name); value != "" {
		record.Name = value
	}
	if value := strings.TrimSpace(in.Email); value != "" {
		record.Email = value
	}
	if value := strings.TrimSpace(in.Country); value != "" {
		record.Country = value
	}
	if value := strings.TrimSpace(in.ClickID); value != "" {
		record.ClickID = value
	}
	if value := strings.TrimSpace(in.LinkID); value != "" {
		record.LinkID = value
	}
	if !in.ClickedAt.IsZero() {
		record.ClickedAt = timePointer(in.ClickedAt)
	}
	record.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(id))
	if err != nil {
		return core.Customer{}, err
	}
	return updated.toDomain(), nil
}

func (s *CustomerStore) IncrementSales(ctx context.Context, id string, amount int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: customer store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: customer id is required")
	}
	result, err := s.db.NewUpdate().
		Model((*customerRecord)(nil)).
		Set("sale_count = sale_count + 1").
		Set("sale_amount = sale_amount + ?", amount).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.ErrCustomerNotFound
	}
	return nil
}

func (s *CustomerStore) getOne(ctx context.Context, apply func(*bun.SelectQuery) *bun.SelectQuery) (core.Customer, error) {
	if s == nil || s.db == nil {
		return core.Customer{}, fmt.Errorf("sqlstore: customer store is not configured")
	}
	record := &customerRecord{}
	err := apply(s.db.NewSelect().Model(record)).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Customer{}, core.ErrCustomerNotFound
		}
		return core.Customer{}, err
	}
	return record.toDomain(), nil
}

var _ core.CustomerStore = (*CustomerStore)(nil)
