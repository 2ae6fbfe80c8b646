package query

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-attribution/core"
)

type stubCommissionStore struct {
	getFn func(ctx context.Context, invoiceID string, programID string) (core.Commission, error)
}

func (s stubCommissionStore) Create(context.Context, core.Commission) (core.Commission, error) {
	return core.Commission{}, nil
}

func (s stubCommissionStore) GetByInvoiceAndProgram(ctx context.Context, invoiceID string, programID string) (core.Commission, error) {
	return s.getFn(ctx, invoiceID, programID)
}

func (s stubCommissionStore) UpdateStatus(context.Context, string, core.CommissionStatus, string) error {
	return nil
}

func (s stubCommissionStore) MarkRefunded(context.Context, string, string, int64) error {
	return nil
}

type stubPayoutStore struct {
	getFn func(ctx context.Context, id string) (core.Payout, error)
}

func (s stubPayoutStore) Get(ctx context.Context, id string) (core.Payout, error) {
	return s.getFn(ctx, id)
}

type stubClickStore struct {
	getFn func(ctx context.Context, id string) (core.ClickEvent, error)
}

func (s stubClickStore) Get(ctx context.Context, id string) (core.ClickEvent, error) {
	return s.getFn(ctx, id)
}

func (s stubClickStore) Append(context.Context, core.ClickEvent) error { return nil }

type stubEndpointStore struct {
	listFn func(ctx context.Context, workspaceID string) ([]core.WebhookEndpoint, error)
}

func (s stubEndpointStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]core.WebhookEndpoint, error) {
	return s.listFn(ctx, workspaceID)
}

func TestLoadCommissionQuery_DelegatesToStore(t *testing.T) {
	expected := core.Commission{ID: "cm_1", InvoiceID: "in_123", ProgramID: "prog_1"}
	store := stubCommissionStore{
		getFn: func(_ context.Context, invoiceID string, programID string) (core.Commission, error) {
			if invoiceID != "in_123" || programID != "prog_1" {
				t.Fatalf("unexpected lookup: %q %q", invoiceID, programID)
			}
			return expected, nil
		},
	}

	got, err := NewLoadCommissionQuery(store).Query(context.Background(), LoadCommissionMessage{
		InvoiceID: "in_123",
		ProgramID: "prog_1",
	})
	if err != nil {
		t.Fatalf("load commission: %v", err)
	}
	if got.ID != expected.ID {
		t.Fatalf("unexpected commission: %#v", got)
	}
}

func TestLoadCommissionQuery_PropagatesNotFound(t *testing.T) {
	store := stubCommissionStore{
		getFn: func(context.Context, string, string) (core.Commission, error) {
			return core.Commission{}, core.ErrCommissionNotFound
		},
	}
	_, err := NewLoadCommissionQuery(store).Query(context.Background(), LoadCommissionMessage{
		InvoiceID: "in_missing",
		ProgramID: "prog_1",
	})
	if err != core.ErrCommissionNotFound {
		t.Fatalf("expected commission not found, got %v", err)
	}
}

func TestLoadPayoutQuery_DelegatesToStore(t *testing.T) {
	store := stubPayoutStore{
		getFn: func(_ context.Context, id string) (core.Payout, error) {
			if id != "po_1" {
				t.Fatalf("unexpected payout id %q", id)
			}
			return core.Payout{ID: "po_1", Amount: 9500}, nil
		},
	}
	got, err := NewLoadPayoutQuery(store).Query(context.Background(), LoadPayoutMessage{PayoutID: "po_1"})
	if err != nil {
		t.Fatalf("load payout: %v", err)
	}
	if got.Amount != 9500 {
		t.Fatalf("unexpected payout: %#v", got)
	}
}

func TestLoadClickQuery_DelegatesToStore(t *testing.T) {
	store := stubClickStore{
		getFn: func(_ context.Context, id string) (core.ClickEvent, error) {
			if id != "click_1" {
				t.Fatalf("unexpected click id %q", id)
			}
			return core.ClickEvent{ID: "click_1", LinkID: "link_1"}, nil
		},
	}
	got, err := NewLoadClickQuery(store).Query(context.Background(), LoadClickMessage{ClickID: "click_1"})
	if err != nil {
		t.Fatalf("load click: %v", err)
	}
	if got.LinkID != "link_1" {
		t.Fatalf("unexpected click: %#v", got)
	}
}

func TestListWebhookEndpointsQuery_DelegatesToStore(t *testing.T) {
	store := stubEndpointStore{
		listFn: func(_ context.Context, workspaceID string) ([]core.WebhookEndpoint, error) {
			if workspaceID != "ws_1" {
				t.Fatalf("unexpected workspace %q", workspaceID)
			}
			return []core.WebhookEndpoint{{ID: "we_1", URL: "https://example.com/hooks"}}, nil
		},
	}
	got, err := NewListWebhookEndpointsQuery(store).Query(context.Background(), ListWebhookEndpointsMessage{WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("list endpoints: %v", err)
	}
	if len(got) != 1 || got[0].ID != "we_1" {
		t.Fatalf("unexpected endpoints: %#v", got)
	}
}

func TestQueries_RequireStores(t *testing.T) {
	var commission *LoadCommissionQuery
	if _, err := commission.Query(context.Background(), LoadCommissionMessage{}); err == nil {
		t.Fatalf("expected dependency error for nil commission query")
	}
	var clicks *LoadClickQuery
	if _, err := clicks.Query(context.Background(), LoadClickMessage{}); err == nil {
		t.Fatalf("expected dependency error for nil click query")
	}
}

func TestLoadCommissionMessage_ValidateReturnsRichError(t *testing.T) {
	err := (LoadCommissionMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.AttributionErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.AttributionErrorBadInput, rich.TextCode)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected %d code, got %d", http.StatusBadRequest, rich.Code)
	}
	validation := rich.AllValidationErrors()
	if len(validation) == 0 {
		t.Fatalf("expected validation errors in envelope")
	}
	if validation[0].Field != "invoice_id" {
		t.Fatalf("expected invoice_id validation field, got %q", validation[0].Field)
	}
}

func TestMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "load commission valid", msg: LoadCommissionMessage{InvoiceID: "in_1", ProgramID: "prog_1"}},
		{name: "load commission missing program", msg: LoadCommissionMessage{InvoiceID: "in_1"}, wantErr: true},
		{name: "load payout valid", msg: LoadPayoutMessage{PayoutID: "po_1"}},
		{name: "load payout blank", msg: LoadPayoutMessage{PayoutID: " "}, wantErr: true},
		{name: "get customer valid", msg: GetCustomerMessage{CustomerID: "cus_1"}},
		{name: "get customer blank", msg: GetCustomerMessage{CustomerID: "  "}, wantErr: true},
		{name: "load click valid", msg: LoadClickMessage{ClickID: "click_1"}},
		{name: "load click missing id", msg: LoadClickMessage{}, wantErr: true},
		{name: "list endpoints valid", msg: ListWebhookEndpointsMessage{WorkspaceID: "ws_1"}},
		{name: "list endpoints missing workspace", msg: ListWebhookEndpointsMessage{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
