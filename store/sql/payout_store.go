package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-attribution/core"
	"github.com/uptrace/bun"
)

// PayoutStore is the read side of payouts; refund-driven decrements run
// inside CommissionStore.MarkRefunded so they commit with the status flip.
type PayoutStore struct {
	db *bun.DB
}

func NewPayoutStore(db *bun.DB) (*PayoutStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &PayoutStore{db: db}, nil
}

func (s *PayoutStore) Get(ctx context.Context, id string) (core.Payout, error) {
	if s == nil || s.db == nil {
		return core.Payout{}, fmt.Errorf("sqlstore: payout store is not configured")
	}
	record := &payoutRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Payout{}, core.ErrPayoutNotFound
		}
		return core.Payout{}, err
	}
	return record.toDomain(), nil
}

var _ core.PayoutStore = (*PayoutStore)(nil)
