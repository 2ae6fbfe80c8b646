package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-attribution/core"
)

// IdempotencyClaimStore implements claim-once semantics on a keyed table
// with a unique primary key: the first INSERT wins, a duplicate-key error
// means the claim is already held. Expired claims are reclaimed in place so
// a stalled delivery can be reprocessed after the TTL.
type IdempotencyClaimStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewIdempotencyClaimStore(db *bun.DB) (*IdempotencyClaimStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &IdempotencyClaimStore{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *IdempotencyClaimStore) ClaimOnce(ctx context.Context, key string, payload []byte, ttl time.Duration) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: idempotency claim store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("sqlstore: idempotency key is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := s.now()
	record := &idempotencyClaimRecord{
		Key:       key,
		Payload:   append([]byte(nil), payload...),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if !isUniqueViolation(err) {
			return false, err
		}
		// The key exists. Take it over only if the prior claim expired;
		// the WHERE guard keeps two concurrent takeovers from both
		// winning.
		result, updateErr := s.db.NewUpdate().
			Model((*idempotencyClaimRecord)(nil)).
			Set("payload = ?", record.Payload).
			Set("expires_at = ?", record.ExpiresAt).
			Set("created_at = ?", now).
			Where("key = ?", key).
			Where("expires_at <= ?", now).
			Exec(ctx)
		if updateErr != nil {
			return false, updateErr
		}
		affected, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return false, affectedErr
		}
		return affected > 0, nil
	}
	return true, nil
}

var _ core.IdempotencyClaimStore = (*IdempotencyClaimStore)(nil)
