package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-attribution/core"
	"github.com/google/uuid"
)

type NotifierDependencies struct {
	Outbox   core.NotificationOutboxStore
	Runner   core.BackgroundRunner
	Observer *core.Observer
}

// Notifier converts business facts into workspace notifications and hands
// them to the outbox off the caller's goroutine.
type Notifier struct {
	outbox   core.NotificationOutboxStore
	runner   core.BackgroundRunner
	observer *core.Observer
	now      func() time.Time
	newID    func() string
}

func NewNotifier(deps NotifierDependencies) (*Notifier, error) {
	if deps.Outbox == nil {
		return nil, fmt.Errorf("notify: outbox store is required")
	}
	if deps.Runner == nil {
		return nil, fmt.Errorf("notify: background runner is required")
	}
	return &Notifier{
		outbox:   deps.Outbox,
		runner:   deps.Runner,
		observer: deps.Observer,
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}, nil
}

func (n *Notifier) LeadCreated(_ context.Context, identity core.ResolvedIdentity, lead core.LeadEvent) {
	if n == nil {
		return
	}
	n.enqueue(core.Notification{
		ID:          n.newID(),
		WorkspaceID: identity.Customer.WorkspaceID,
		EventName:   core.NotificationLeadCreated,
		Payload: map[string]any{
			"customer_id": identity.Customer.ID,
			"link_id":     lead.LinkID,
			"event_name":  lead.EventName,
			"lead_id":     lead.ID,
		},
		OccurredAt: n.now(),
	})
}

func (n *Notifier) SaleCreated(_ context.Context, identity core.ResolvedIdentity, sale core.SaleEvent) {
	if n == nil {
		return
	}
	n.enqueue(core.Notification{
		ID:          n.newID(),
		WorkspaceID: identity.Customer.WorkspaceID,
		EventName:   core.NotificationSaleCreated,
		Payload: map[string]any{
			"customer_id": identity.Customer.ID,
			"link_id":     sale.LinkID,
			"invoice_id":  sale.InvoiceID,
			"amount":      sale.Amount,
			"currency":    sale.Currency,
			"sale_id":     sale.ID,
		},
		OccurredAt: n.now(),
	})
}

func (n *Notifier) enqueue(notification core.Notification) {
	n.runner.Go("notification_enqueue", func(ctx context.Context) error {
		if err := n.outbox.Enqueue(ctx, notification); err != nil {
			return fmt.Errorf("notify: enqueue %s notification: %w", notification.EventName, err)
		}
		if n.observer != nil {
			n.observer.Counter(ctx, "attribution.notifications_enqueued.total", 1, map[string]string{
				"event_name": notification.EventName,
			})
		}
		return nil
	})
}
