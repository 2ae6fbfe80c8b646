package adapters_test

import (
	"context"
	"testing"

	attrcommand "github.com/goliatone/go-attribution/command"
	"github.com/goliatone/go-attribution/core"

	"github.com/goliatone/go-attribution/adapters/gocommand"
	"github.com/goliatone/go-attribution/adapters/gojob"
	"github.com/goliatone/go-attribution/adapters/gologger"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("attribution", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueueProbe := &compatEnqueuer{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueueProbe)
	if err := enqueueAdapter.Enqueue(ctx, gojob.NewOutboxDispatchMessage(25)); err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if enqueueProbe.last == nil || enqueueProbe.last.JobID != gojob.JobIDOutboxDispatch {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}
	if enqueueProbe.last.Parameters["batch_size"] != 25 {
		t.Fatalf("expected batch size parameter to survive mapping")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("attribution.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

func TestRuntimeCompatibility_CommandDispatchThroughWrappers(t *testing.T) {
	svc := &compatAttributionService{}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	saleSub, err := gocommand.RegisterAndSubscribe(adapter, attrcommand.NewRecordSaleCommand(svc))
	if err != nil {
		t.Fatalf("register sale wrapper: %v", err)
	}
	defer saleSub.Unsubscribe()

	refundSub, err := gocommand.RegisterAndSubscribe(adapter, attrcommand.NewRefundCommissionCommand(svc))
	if err != nil {
		t.Fatalf("register refund wrapper: %v", err)
	}
	defer refundSub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	saleMsg := attrcommand.RecordSaleMessage{
		Input: core.RecordSaleInput{
			Identity: core.ResolvedIdentity{
				Customer: core.Customer{ID: "cus_1"},
				Link:     core.Link{ID: "link_1"},
			},
			InvoiceID: "in_123",
			Amount:    4900,
			Currency:  "usd",
			Processor: "stripe",
		},
	}
	if err := gocommand.Dispatch(context.Background(), saleMsg); err != nil {
		t.Fatalf("dispatch sale command: %v", err)
	}
	if svc.saleCalls != 1 || svc.lastInvoiceID != "in_123" {
		t.Fatalf("expected sale wrapper invocation through dispatcher")
	}

	if err := gocommand.Dispatch(context.Background(), attrcommand.RefundCommissionMessage{
		InvoiceID: "in_123",
		ProgramID: "prog_1",
	}); err != nil {
		t.Fatalf("dispatch refund command: %v", err)
	}
	if svc.refundCalls != 1 || svc.lastRefundProgram != "prog_1" {
		t.Fatalf("expected refund wrapper invocation through dispatcher")
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "attribution.compat.command" }

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }

type compatAttributionService struct {
	saleCalls         int
	lastInvoiceID     string
	refundCalls       int
	lastRefundProgram string
}

func (s *compatAttributionService) RecordSale(_ context.Context, in core.RecordSaleInput) (core.SaleEvent, error) {
	s.saleCalls++
	s.lastInvoiceID = in.InvoiceID
	return core.SaleEvent{InvoiceID: in.InvoiceID}, nil
}

func (s *compatAttributionService) RecordLead(_ context.Context, in core.RecordLeadInput) (core.LeadEvent, error) {
	return core.LeadEvent{CustomerID: in.Customer.ID}, nil
}

func (s *compatAttributionService) RefundCommission(_ context.Context, invoiceID string, programID string) (string, error) {
	s.refundCalls++
	s.lastRefundProgram = programID
	return "Commission for invoice ID " + invoiceID + " refunded", nil
}
