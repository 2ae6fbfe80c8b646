package command

import (
	"context"
	"fmt"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-attribution/core"
	"github.com/goliatone/go-attribution/notify"
)

func TestRecordSaleCommand_DelegatesAndStoresResult(t *testing.T) {
	expected := core.SaleEvent{ID: "evt_1", InvoiceID: "in_123", Amount: 4200}
	called := false

	svc := stubRecordingService{
		recordSaleFn: func(_ context.Context, in core.RecordSaleInput) (core.SaleEvent, error) {
			called = true
			if in.InvoiceID != "in_123" {
				t.Fatalf("expected invoice in_123, got %q", in.InvoiceID)
			}
			return expected, nil
		},
	}

	cmd := NewRecordSaleCommand(svc)
	collector := gocmd.NewResult[core.SaleEvent]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, RecordSaleMessage{Input: core.RecordSaleInput{
		Identity: core.ResolvedIdentity{
			Customer: core.Customer{ID: "cus_1"},
			Link:     core.Link{ID: "link_1"},
		},
		InvoiceID: "in_123",
		Amount:    4200,
		Currency:  "usd",
	}})
	if err != nil {
		t.Fatalf("execute record sale: %v", err)
	}
	if !called {
		t.Fatalf("expected record sale invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ID != expected.ID || result.InvoiceID != expected.InvoiceID {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestRecordLeadCommand_DelegatesAndStoresResult(t *testing.T) {
	expected := core.LeadEvent{ID: "lead_1", CustomerID: "cus_1", LinkID: "link_1"}
	called := false

	svc := stubRecordingService{
		recordLeadFn: func(_ context.Context, in core.RecordLeadInput) (core.LeadEvent, error) {
			called = true
			if in.Customer.ID != "cus_1" || in.LinkID != "link_1" {
				t.Fatalf("unexpected lead input: %#v", in)
			}
			return expected, nil
		},
	}

	cmd := NewRecordLeadCommand(svc)
	collector := gocmd.NewResult[core.LeadEvent]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, RecordLeadMessage{Input: core.RecordLeadInput{
		Customer: core.Customer{ID: "cus_1"},
		LinkID:   "link_1",
	}})
	if err != nil {
		t.Fatalf("execute record lead: %v", err)
	}
	if !called {
		t.Fatalf("expected record lead invocation")
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected lead result")
	}
	if stored.ID != expected.ID {
		t.Fatalf("unexpected lead result: %#v", stored)
	}
}

func TestRefundCommissionCommand_DelegatesAndStoresMessage(t *testing.T) {
	called := false
	svc := stubRefundingService{
		refundFn: func(_ context.Context, invoiceID string, programID string) (string, error) {
			called = true
			if invoiceID != "in_123" || programID != "prog_1" {
				t.Fatalf("unexpected refund payload: %q %q", invoiceID, programID)
			}
			return "Commission for invoice ID in_123 refunded", nil
		},
	}

	cmd := NewRefundCommissionCommand(svc)
	collector := gocmd.NewResult[string]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, RefundCommissionMessage{InvoiceID: "in_123", ProgramID: "prog_1"})
	if err != nil {
		t.Fatalf("execute refund commission: %v", err)
	}
	if !called {
		t.Fatalf("expected refund invocation")
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected refund result")
	}
	if stored != "Commission for invoice ID in_123 refunded" {
		t.Fatalf("unexpected refund message: %q", stored)
	}
}

func TestDrainOutboxCommand_DelegatesBatchSize(t *testing.T) {
	called := false
	svc := stubDrainingService{
		drainFn: func(_ context.Context, batchSize int) (notify.DispatchStats, error) {
			called = true
			if batchSize != 25 {
				t.Fatalf("expected batch size 25, got %d", batchSize)
			}
			return notify.DispatchStats{Claimed: 3, Delivered: 2, Retried: 1}, nil
		},
	}

	cmd := NewDrainOutboxCommand(svc)
	collector := gocmd.NewResult[notify.DispatchStats]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, DrainOutboxMessage{BatchSize: 25}); err != nil {
		t.Fatalf("execute drain outbox: %v", err)
	}
	if !called {
		t.Fatalf("expected drain invocation")
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected drain stats")
	}
	if stored.Claimed != 3 || stored.Delivered != 2 {
		t.Fatalf("unexpected drain stats: %#v", stored)
	}
}

func TestCommands_PropagateServiceErrors(t *testing.T) {
	svc := stubRefundingService{
		refundFn: func(context.Context, string, string) (string, error) {
			return "", fmt.Errorf("payout ledger unavailable")
		},
	}
	cmd := NewRefundCommissionCommand(svc)
	err := cmd.Execute(context.Background(), RefundCommissionMessage{InvoiceID: "in_1", ProgramID: "prog_1"})
	if err == nil {
		t.Fatalf("expected service error to propagate")
	}
}

func TestCommands_RequireService(t *testing.T) {
	if err := (&RecordSaleCommand{}).Execute(context.Background(), RecordSaleMessage{}); err == nil {
		t.Fatalf("expected missing service error")
	}
	if err := (&DrainOutboxCommand{}).Execute(context.Background(), DrainOutboxMessage{}); err == nil {
		t.Fatalf("expected missing service error")
	}
}

func TestMessageValidation(t *testing.T) {
	validIdentity := core.ResolvedIdentity{
		Customer: core.Customer{ID: "cus_1"},
		Link:     core.Link{ID: "link_1"},
	}

	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name: "record sale valid",
			msg: RecordSaleMessage{Input: core.RecordSaleInput{
				Identity:  validIdentity,
				InvoiceID: "in_123",
				Amount:    100,
				Currency:  "usd",
			}},
			wantErr: false,
		},
		{
			name: "record sale missing invoice",
			msg: RecordSaleMessage{Input: core.RecordSaleInput{
				Identity: validIdentity,
				Amount:   100,
			}},
			wantErr: true,
		},
		{
			name: "record sale non positive amount",
			msg: RecordSaleMessage{Input: core.RecordSaleInput{
				Identity:  validIdentity,
				InvoiceID: "in_123",
			}},
			wantErr: true,
		},
		{
			name: "record lead valid",
			msg: RecordLeadMessage{Input: core.RecordLeadInput{
				Customer: core.Customer{ID: "cus_1"},
				LinkID:   "link_1",
			}},
			wantErr: false,
		},
		{
			name:    "record lead missing link",
			msg:     RecordLeadMessage{Input: core.RecordLeadInput{Customer: core.Customer{ID: "cus_1"}}},
			wantErr: true,
		},
		{
			name:    "refund missing program",
			msg:     RefundCommissionMessage{InvoiceID: "in_123"},
			wantErr: true,
		},
		{
			name: "emit workflow valid",
			msg: EmitWorkflowMessage{Event: core.WorkflowEvent{
				Name:       "partner.metrics.recompute",
				OccurredAt: time.Now(),
			}},
			wantErr: false,
		},
		{
			name:    "emit workflow missing name",
			msg:     EmitWorkflowMessage{},
			wantErr: true,
		},
		{
			name:    "resync stats missing partner",
			msg:     ResyncStatsMessage{ProgramID: "prog_1"},
			wantErr: true,
		},
		{
			name:    "drain outbox negative batch",
			msg:     DrainOutboxMessage{BatchSize: -1},
			wantErr: true,
		},
		{
			name:    "drain outbox zero batch uses default",
			msg:     DrainOutboxMessage{},
			wantErr: false,
		},
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

type stubRecordingService struct {
	recordSaleFn func(ctx context.Context, in core.RecordSaleInput) (core.SaleEvent, error)
	recordLeadFn func(ctx context.Context, in core.RecordLeadInput) (core.LeadEvent, error)
}

func (s stubRecordingService) RecordSale(ctx context.Context, in core.RecordSaleInput) (core.SaleEvent, error) {
	if s.recordSaleFn == nil {
		return core.SaleEvent{}, fmt.Errorf("record sale not configured")
	}
	return s.recordSaleFn(ctx, in)
}

func (s stubRecordingService) RecordLead(ctx context.Context, in core.RecordLeadInput) (core.LeadEvent, error) {
	if s.recordLeadFn == nil {
		return core.LeadEvent{}, fmt.Errorf("record lead not configured")
	}
	return s.recordLeadFn(ctx, in)
}

type stubRefundingService struct {
	refundFn func(ctx context.Context, invoiceID string, programID string) (string, error)
}

func (s stubRefundingService) RefundCommission(ctx context.Context, invoiceID string, programID string) (string, error) {
	if s.refundFn == nil {
		return "", fmt.Errorf("refund not configured")
	}
	return s.refundFn(ctx, invoiceID, programID)
}

type stubDrainingService struct {
	drainFn func(ctx context.Context, batchSize int) (notify.DispatchStats, error)
}

func (s stubDrainingService) DispatchPending(ctx context.Context, batchSize int) (notify.DispatchStats, error) {
	if s.drainFn == nil {
		return notify.DispatchStats{}, fmt.Errorf("drain not configured")
	}
	return s.drainFn(ctx, batchSize)
}

var (
	_ SaleRecordingService       = stubRecordingService{}
	_ CommissionRefundingService = stubRefundingService{}
	_ OutboxDrainingService      = stubDrainingService{}
)
