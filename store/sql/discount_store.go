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

type DiscountStore struct {
	db *bun.DB
}

func NewDiscountStore(db *bun.DB) (*DiscountStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &DiscountStore{db: db}, nil
}

func (s *DiscountStore) GetByCode(ctx context.Context, code string) (core.Discount, error) {
	if s == nil || s.db == nil {
		return core.Discount{}, fmt.Errorf("sqlstore: discount store is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return core.Discount{}, core.ErrDiscountNotFound
	}
	record := &discountRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.code) = lower(?)", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Discount{}, core.ErrDiscountNotFound
		}
		return core.Discount{}, err
	}
	return record.toDomain(), nil
}

var _ core.DiscountStore = (*DiscountStore)(nil)
