package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-attribution/core"
	"github.com/uptrace/bun"
)

type WebhookEndpointStore struct {
	db *bun.DB
}

func NewWebhookEndpointStore(db *bun.DB) (*WebhookEndpointStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &WebhookEndpointStore{db: db}, nil
}

func (s *WebhookEndpointStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]core.WebhookEndpoint, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: webhook endpoint store is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, fmt.Errorf("sqlstore: workspace id is required")
	}
	var records []webhookEndpointRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.workspace_id = ?", workspaceID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.WebhookEndpoint, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

var _ core.WebhookEndpointStore = (*WebhookEndpointStore)(nil)
