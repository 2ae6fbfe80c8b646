package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
	"github.com/uptrace/bun"
)

type WorkspaceStore struct {
	db *bun.DB
}

func NewWorkspaceStore(db *bun.DB) (*WorkspaceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &WorkspaceStore{db: db}, nil
}

func (s *WorkspaceStore) GetByConnectedAccount(ctx context.Context, accountID string) (core.Workspace, error) {
	if s == nil || s.db == nil {
		return core.Workspace{}, fmt.Errorf("sqlstore: workspace store is not configured")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return core.Workspace{}, core.ErrWorkspaceNotFound
	}
	record := &workspaceRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.connected_account_id = ?", accountID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Workspace{}, core.ErrWorkspaceNotFound
		}
		return core.Workspace{}, err
	}
	return record.toDomain(), nil
}

func (s *WorkspaceStore) IncrementSalesUsage(ctx context.Context, workspaceID string, delta int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: workspace store is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return fmt.Errorf("sqlstore: workspace id is required")
	}
	result, err := s.db.NewUpdate().
		Model((*workspaceRecord)(nil)).
		Set("sales_usage = sales_usage + ?", delta).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", workspaceID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.ErrWorkspaceNotFound
	}
	return nil
}

var _ core.WorkspaceStore = (*WorkspaceStore)(nil)
