package sqlstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	outboxStatusPending    = "pending"
	outboxStatusProcessing = "processing"
	outboxStatusDelivered  = "delivered"
	outboxStatusFailed     = "failed"
)

type NotificationOutboxStore struct {
	db   *bun.DB
	repo repository.Repository[*notificationOutboxRecord]
}

func NewNotificationOutboxStore(db *bun.DB) (*NotificationOutboxStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*notificationOutboxRecord](db, outboxHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid notification outbox repository wiring: %w", err)
		}
	}
	return &NotificationOutboxStore{db: db, repo: repo}, nil
}

func (s *NotificationOutboxStore) Enqueue(ctx context.Context, notification core.Notification) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: notification outbox store is not configured")
	}
	if strings.TrimSpace(notification.WorkspaceID) == "" {
		return fmt.Errorf("sqlstore: notification workspace id is required")
	}
	if strings.TrimSpace(notification.EventName) == "" {
		return fmt.Errorf("sqlstore: notification event name is required")
	}

	id := strings.TrimSpace(notification.ID)
	if id == "" {
		id = uuid.NewString()
	}
	occurredAt := notification.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	now := time.Now().UTC()
	record := &notificationOutboxRecord{
		ID:          id,
		WorkspaceID: strings.TrimSpace(notification.WorkspaceID),
		EventName:   strings.TrimSpace(notification.EventName),
		Payload:     copyAnyMap(notification.Payload),
		Status:      outboxStatusPending,
		Attempts:    0,
		LastError:   "",
		OccurredAt:  occurredAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *NotificationOutboxStore) ClaimBatch(ctx context.Context, limit int) ([]core.Notification, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: notification outbox store is not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	now := time.Now().UTC()
	var records []notificationOutboxRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		query := `
WITH claimed AS (
	SELECT id
	FROM attribution_notification_outbox
	WHERE status = ?
	  AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
	ORDER BY occurred_at ASC
	LIMIT ?
)
UPDATE attribution_notification_outbox
SET status = ?, updated_at = ?
WHERE id IN (SELECT id FROM claimed)
  AND status = ?
RETURNING
	id,
	workspace_id,
	event_name,
	payload,
	status,
	attempts,
	next_attempt_at,
	last_error,
	occurred_at,
	created_at,
	updated_at
`
		return tx.NewRaw(
			query,
			outboxStatusPending,
			now,
			limit,
			outboxStatusProcessing,
			now,
			outboxStatusPending,
		).Scan(ctx, &records)
	})
	if err != nil {
		return nil, err
	}

	// The CTE's ORDER BY only picks which rows are claimed; RETURNING
	// hands them back in unspecified order.
	sort.Slice(records, func(i, j int) bool {
		if records[i].OccurredAt.Equal(records[j].OccurredAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].OccurredAt.Before(records[j].OccurredAt)
	})

	notifications := make([]core.Notification, 0, len(records))
	for i := range records {
		notifications = append(notifications, records[i].toDomain())
	}
	return notifications, nil
}

func (s *NotificationOutboxStore) Ack(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: notification outbox store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: notification id is required")
	}
	_, err := s.db.NewUpdate().
		Model((*notificationOutboxRecord)(nil)).
		Set("status = ?", outboxStatusDelivered).
		Set("last_error = ?", "").
		Set("next_attempt_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (s *NotificationOutboxStore) Retry(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: notification outbox store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: notification id is required")
	}
	status := outboxStatusPending
	var next *time.Time
	if !nextAttemptAt.IsZero() {
		nextValue := nextAttemptAt.UTC()
		next = &nextValue
	} else {
		status = outboxStatusFailed
	}

	lastError := ""
	if cause != nil {
		lastError = strings.TrimSpace(cause.Error())
	}
	_, err := s.db.NewUpdate().
		Model((*notificationOutboxRecord)(nil)).
		Set("status = ?", status).
		Set("attempts = attempts + 1").
		Set("next_attempt_at = ?", next).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

var _ core.NotificationOutboxStore = (*NotificationOutboxStore)(nil)
