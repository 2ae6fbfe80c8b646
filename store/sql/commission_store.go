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

type CommissionStore struct {
	db   *bun.DB
	repo repository.Repository[*commissionRecord]
}

func NewCommissionStore(db *bun.DB) (*CommissionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*commissionRecord](db, commissionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid commission repository wiring: %w", err)
		}
	}
	return &CommissionStore{db: db, repo: repo}, nil
}

func (s *CommissionStore) Create(ctx context.Context, commission core.Commission) (core.Commission, error) {
	if s == nil || s.repo == nil {
		return core.Commission{}, fmt.Errorf("sqlstore: commission store is not configured")
	}
	if strings.TrimSpace(commission.InvoiceID) == "" {
		return core.Commission{}, fmt.Errorf("sqlstore: commission invoice id is required")
	}
	if strings.TrimSpace(commission.ProgramID) == "" {
		return core.Commission{}, fmt.Errorf("sqlstore: commission program id is required")
	}

	id := strings.TrimSpace(commission.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	createdAt := commission.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	status := commission.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.CommissionStatusPending
	}
	quantity := commission.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	record := &commissionRecord{
		ID:         id,
		ProgramID:  strings.TrimSpace(commission.ProgramID),
		PartnerID:  strings.TrimSpace(commission.PartnerID),
		LinkID:     strings.TrimSpace(commission.LinkID),
		CustomerID: strings.TrimSpace(commission.CustomerID),
		EventID:    strings.TrimSpace(commission.EventID),
		InvoiceID:  strings.TrimSpace(commission.InvoiceID),
		Amount:     commission.Amount,
		Earnings:   commission.Earnings,
		Quantity:   quantity,
		Currency:   strings.TrimSpace(commission.Currency),
		Status:     string(status),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
	if trimmed := strings.TrimSpace(commission.PayoutID); trimmed != "" {
		record.PayoutID = &trimmed
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Commission{}, err
	}
	return created.toDomain(), nil
}

func (s *CommissionStore) GetByInvoiceAndProgram(ctx context.Context, invoiceID string, programID string) (core.Commission, error) {
	if s == nil || s.db == nil {
		return core.Commission{}, fmt.Errorf("sqlstore: commission store is not configured")
	}
	record := &commissionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.invoice_id = ?", strings.TrimSpace(invoiceID)).
		Where("?TableAlias.program_id = ?", strings.TrimSpace(programID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Commission{}, core.ErrCommissionNotFound
		}
		return core.Commission{}, err
	}
	return record.toDomain(), nil
}

func (s *CommissionStore) UpdateStatus(ctx context.Context, id string, status core.CommissionStatus, payoutID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: commission store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: commission id is required")
	}
	var payout *string
	if trimmed := strings.TrimSpace(payoutID); trimmed != "" {
		payout = &trimmed
	}
	result, err := s.db.NewUpdate().
		Model((*commissionRecord)(nil)).
		Set("status = ?", string(status)).
		Set("payout_id = ?", payout).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.ErrCommissionNotFound
	}
	return nil
}

// MarkRefunded applies the refund as one transaction: the payout decrement
// and the status flip commit together or roll back together, so a webhook
// redelivered after a transient failure starts from an untouched payout.
func (s *CommissionStore) MarkRefunded(ctx context.Context, id string, payoutID string, earnings int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: commission store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: commission id is required")
	}
	payoutID = strings.TrimSpace(payoutID)
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if payoutID != "" {
			result, err := tx.NewUpdate().
				Model((*payoutRecord)(nil)).
				Set("amount = amount - ?", earnings).
				Set("updated_at = ?", now).
				Where("id = ?", payoutID).
				Exec(ctx)
			if err != nil {
				return err
			}
			if affected, err := result.RowsAffected(); err == nil && affected == 0 {
				return core.ErrPayoutNotFound
			}
		}
		result, err := tx.NewUpdate().
			Model((*commissionRecord)(nil)).
			Set("status = ?", string(core.CommissionStatusRefunded)).
			Set("payout_id = NULL").
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return core.ErrCommissionNotFound
		}
		return nil
	})
}

var _ core.CommissionStore = (*CommissionStore)(nil)
