package notify

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
)

type OutboxDispatcherConfig struct {
	BatchSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultOutboxDispatcherConfig() OutboxDispatcherConfig {
	return OutboxDispatcherConfig{
		BatchSize:      50,
		MaxAttempts:    5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     5 * time.Minute,
	}
}

// DispatchStats summarizes one drain pass over the notification outbox.
type DispatchStats struct {
	Claimed   int
	Delivered int
	Retried   int
	Failed    int
}

// OutboxDispatcher drains pending notifications and fans each one out to
// every webhook endpoint registered for its workspace. Endpoint failures
// are isolated per recipient; a notification is retried with exponential
// backoff while any endpoint still rejects it.
type OutboxDispatcher struct {
	outbox    core.NotificationOutboxStore
	endpoints core.WebhookEndpointStore
	sender    core.WebhookSender
	observer  *core.Observer
	config    OutboxDispatcherConfig
	now       func() time.Time
}

type OutboxDispatcherDependencies struct {
	Outbox    core.NotificationOutboxStore
	Endpoints core.WebhookEndpointStore
	Sender    core.WebhookSender
	Observer  *core.Observer
}

func NewOutboxDispatcher(deps OutboxDispatcherDependencies, config OutboxDispatcherConfig) (*OutboxDispatcher, error) {
	if deps.Outbox == nil {
		return nil, fmt.Errorf("notify: outbox store is required")
	}
	if deps.Endpoints == nil {
		return nil, fmt.Errorf("notify: endpoint store is required")
	}
	if deps.Sender == nil {
		return nil, fmt.Errorf("notify: webhook sender is required")
	}
	defaults := DefaultOutboxDispatcherConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	return &OutboxDispatcher{
		outbox:    deps.Outbox,
		endpoints: deps.Endpoints,
		sender:    deps.Sender,
		observer:  deps.Observer,
		config:    config,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (d *OutboxDispatcher) DispatchPending(ctx context.Context, batchSize int) (DispatchStats, error) {
	if d == nil || d.outbox == nil {
		return DispatchStats{}, fmt.Errorf("notify: outbox dispatcher is not configured")
	}
	limit := batchSize
	if limit <= 0 {
		limit = d.config.BatchSize
	}
	notifications, err := d.outbox.ClaimBatch(ctx, limit)
	if err != nil {
		return DispatchStats{}, err
	}

	stats := DispatchStats{Claimed: len(notifications)}
	var dispatchErr error
	for _, notification := range notifications {
		if err := d.dispatchOne(ctx, notification); err != nil {
			if retryErr := d.retryNotification(ctx, notification, err); retryErr != nil {
				dispatchErr = joinErrors(dispatchErr, retryErr)
			}
			if notification.Attempts+1 >= d.config.MaxAttempts {
				stats.Failed++
			} else {
				stats.Retried++
			}
			dispatchErr = joinErrors(dispatchErr, err)
			continue
		}
		if err := d.outbox.Ack(ctx, strings.TrimSpace(notification.ID)); err != nil {
			dispatchErr = joinErrors(dispatchErr, err)
			continue
		}
		stats.Delivered++
	}

	return stats, dispatchErr
}

// dispatchOne sends the notification to every endpoint of its workspace.
// One endpoint failing does not stop delivery to the rest; endpoints must
// tolerate redelivery when the notification is retried.
func (d *OutboxDispatcher) dispatchOne(ctx context.Context, notification core.Notification) error {
	endpoints, err := d.endpoints.ListByWorkspace(ctx, notification.WorkspaceID)
	if err != nil {
		return fmt.Errorf("notify: list endpoints for workspace %s: %w", notification.WorkspaceID, err)
	}
	if len(endpoints) == 0 {
		return nil
	}

	var sendErr error
	for _, endpoint := range endpoints {
		if err := d.sender.Send(ctx, endpoint, notification); err != nil {
			d.logEndpointFailure(ctx, endpoint, notification, err)
			sendErr = joinErrors(sendErr, fmt.Errorf("notify: endpoint %s: %w", endpoint.ID, err))
		}
	}
	return sendErr
}

func (d *OutboxDispatcher) retryNotification(ctx context.Context, notification core.Notification, cause error) error {
	id := strings.TrimSpace(notification.ID)
	if notification.Attempts+1 >= d.config.MaxAttempts {
		// Zero next-attempt parks the notification as dead.
		return d.outbox.Retry(ctx, id, cause, time.Time{})
	}
	nextAttemptAt := d.now().Add(d.nextBackoffDelay(notification.Attempts + 1))
	return d.outbox.Retry(ctx, id, cause, nextAttemptAt)
}

func (d *OutboxDispatcher) nextBackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(d.config.InitialBackoff)
	multiplier := math.Pow(2, float64(attempt-1))
	next := time.Duration(base * multiplier)
	if next < 0 {
		return d.config.MaxBackoff
	}
	if next > d.config.MaxBackoff {
		return d.config.MaxBackoff
	}
	return next
}

func (d *OutboxDispatcher) logEndpointFailure(ctx context.Context, endpoint core.WebhookEndpoint, notification core.Notification, err error) {
	if d == nil || d.observer == nil {
		return
	}
	d.observer.Error(ctx, "notification delivery failed", map[string]any{
		"endpoint_id":  endpoint.ID,
		"workspace_id": notification.WorkspaceID,
		"event_name":   notification.EventName,
		"error":        err.Error(),
	})
	d.observer.Counter(ctx, "attribution.notification_failures.total", 1, map[string]string{
		"event_name": notification.EventName,
	})
}

func joinErrors(existing error, next error) error {
	if existing == nil {
		return next
	}
	if next == nil {
		return existing
	}
	return fmt.Errorf("%w; %v", existing, next)
}
