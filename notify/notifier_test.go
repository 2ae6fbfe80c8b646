package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-attribution/core"
)

// syncRunner executes tasks inline so the tests observe outbox writes
// without synchronization.
type syncRunner struct{}

func (syncRunner) Go(_ string, fn func(ctx context.Context) error) {
	_ = fn(context.Background())
}

type retryCall struct {
	id            string
	cause         error
	nextAttemptAt time.Time
}

type stubOutbox struct {
	enqueued   []core.Notification
	enqueueErr error
	claimFn    func(ctx context.Context, limit int) ([]core.Notification, error)
	claimed    []int
	acked      []string
	ackErr     error
	retries    []retryCall
}

func (s *stubOutbox) Enqueue(_ context.Context, notification core.Notification) error {
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.enqueued = append(s.enqueued, notification)
	return nil
}

func (s *stubOutbox) ClaimBatch(ctx context.Context, limit int) ([]core.Notification, error) {
	s.claimed = append(s.claimed, limit)
	if s.claimFn != nil {
		return s.claimFn(ctx, limit)
	}
	return nil, nil
}

func (s *stubOutbox) Ack(_ context.Context, id string) error {
	if s.ackErr != nil {
		return s.ackErr
	}
	s.acked = append(s.acked, id)
	return nil
}

func (s *stubOutbox) Retry(_ context.Context, id string, cause error, nextAttemptAt time.Time) error {
	s.retries = append(s.retries, retryCall{id: id, cause: cause, nextAttemptAt: nextAttemptAt})
	return nil
}

func newTestNotifier(t *testing.T, outbox *stubOutbox) *Notifier {
	t.Helper()
	notifier, err := NewNotifier(NotifierDependencies{
		Outbox: outbox,
		Runner: syncRunner{},
	})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	notifier.now = func() time.Time { return time.Unix(1756000000, 0).UTC() }
	notifier.newID = func() string { return "ntf_1" }
	return notifier
}

func notifierIdentity() core.ResolvedIdentity {
	return core.ResolvedIdentity{
		Customer: core.Customer{ID: "cus_1", WorkspaceID: "ws_1"},
		Link:     core.Link{ID: "link_1"},
	}
}

func TestNotifier_LeadCreated(t *testing.T) {
	outbox := &stubOutbox{}
	notifier := newTestNotifier(t, outbox)

	notifier.LeadCreated(context.Background(), notifierIdentity(), core.LeadEvent{
		ID:        "lead_1",
		LinkID:    "link_1",
		EventName: "Sign up",
	})

	if len(outbox.enqueued) != 1 {
		t.Fatalf("expected one enqueued notification")
	}
	notification := outbox.enqueued[0]
	if notification.EventName != core.NotificationLeadCreated || notification.WorkspaceID != "ws_1" {
		t.Fatalf("unexpected notification: %+v", notification)
	}
	if notification.Payload["lead_id"] != "lead_1" || notification.Payload["event_name"] != "Sign up" {
		t.Fatalf("unexpected payload: %v", notification.Payload)
	}
	if notification.ID != "ntf_1" || !notification.OccurredAt.Equal(time.Unix(1756000000, 0).UTC()) {
		t.Fatalf("unexpected envelope: %+v", notification)
	}
}

func TestNotifier_SaleCreated(t *testing.T) {
	outbox := &stubOutbox{}
	notifier := newTestNotifier(t, outbox)

	notifier.SaleCreated(context.Background(), notifierIdentity(), core.SaleEvent{
		ID:        "sale_1",
		LinkID:    "link_1",
		InvoiceID: "in_123",
		Amount:    4900,
		Currency:  "usd",
	})

	if len(outbox.enqueued) != 1 {
		t.Fatalf("expected one enqueued notification")
	}
	notification := outbox.enqueued[0]
	if notification.EventName != core.NotificationSaleCreated {
		t.Fatalf("unexpected event name %q", notification.EventName)
	}
	if notification.Payload["invoice_id"] != "in_123" || notification.Payload["amount"] != int64(4900) {
		t.Fatalf("unexpected payload: %v", notification.Payload)
	}
}

func TestNotifier_EnqueueFailureIsSwallowed(t *testing.T) {
	outbox := &stubOutbox{enqueueErr: errors.New("outbox unavailable")}
	notifier := newTestNotifier(t, outbox)

	// The runner owns the failure; the caller must not see it.
	notifier.SaleCreated(context.Background(), notifierIdentity(), core.SaleEvent{ID: "sale_1"})
	if len(outbox.enqueued) != 0 {
		t.Fatalf("expected no enqueued notification")
	}
}

func TestNotifier_NilReceiverSafe(t *testing.T) {
	var notifier *Notifier
	notifier.LeadCreated(context.Background(), notifierIdentity(), core.LeadEvent{})
	notifier.SaleCreated(context.Background(), notifierIdentity(), core.SaleEvent{})
}

func TestNewNotifier_RequiresDependencies(t *testing.T) {
	if _, err := NewNotifier(NotifierDependencies{Runner: syncRunner{}}); err == nil {
		t.Fatalf("expected outbox requirement error")
	}
	if _, err := NewNotifier(NotifierDependencies{Outbox: &stubOutbox{}}); err == nil {
		t.Fatalf("expected runner requirement error")
	}
}
