package gojob

import (
	"context"
	"fmt"

	"github.com/goliatone/go-attribution/core"
	"github.com/goliatone/go-attribution/notify"
)

const defaultOutboxDrainBatch = 50

// OutboxDrainer is the drain surface exposed by the notification outbox
// dispatcher.
type OutboxDrainer interface {
	DispatchPending(ctx context.Context, batchSize int) (notify.DispatchStats, error)
}

// NewOutboxDispatchMessage builds the recurring drain job message. The
// idempotency key collapses overlapping enqueues into one pending run.
func NewOutboxDispatchMessage(batchSize int) *core.JobExecutionMessage {
	if batchSize <= 0 {
		batchSize = defaultOutboxDrainBatch
	}
	return &core.JobExecutionMessage{
		JobID: JobIDOutboxDispatch,
		Parameters: map[string]any{
			"batch_size": batchSize,
		},
		IdempotencyKey: JobIDOutboxDispatch,
		DedupPolicy:    "pending",
	}
}

// HandleOutboxDispatch processes one drain delivery: run a dispatch pass,
// ack on success, nack with requeue on failure.
func HandleOutboxDispatch(ctx context.Context, delivery core.JobDelivery, drainer OutboxDrainer) error {
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	if drainer == nil {
		return fmt.Errorf("gojob: outbox drainer is required")
	}

	batchSize := defaultOutboxDrainBatch
	if msg := delivery.Message(); msg != nil {
		if raw, ok := msg.Parameters["batch_size"]; ok {
			switch typed := raw.(type) {
			case int:
				batchSize = typed
			case int64:
				batchSize = int(typed)
			case float64:
				batchSize = int(typed)
			}
		}
	}

	if _, err := drainer.DispatchPending(ctx, batchSize); err != nil {
		nackErr := delivery.Nack(ctx, core.JobNackOptions{
			Requeue: true,
			Reason:  err.Error(),
		})
		if nackErr != nil {
			return fmt.Errorf("gojob: nack outbox dispatch: %v (dispatch: %w)", nackErr, err)
		}
		return err
	}
	return delivery.Ack(ctx)
}

var _ OutboxDrainer = (*notify.OutboxDispatcher)(nil)
