package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-attribution/core"
	"github.com/goliatone/go-attribution/notify"
)

type SaleRecordingService interface {
	RecordSale(ctx context.Context, in core.RecordSaleInput) (core.SaleEvent, error)
	RecordLead(ctx context.Context, in core.RecordLeadInput) (core.LeadEvent, error)
}

type CommissionRefundingService interface {
	RefundCommission(ctx context.Context, invoiceID string, programID string) (string, error)
}

type OutboxDrainingService interface {
	DispatchPending(ctx context.Context, batchSize int) (notify.DispatchStats, error)
}

type RecordSaleCommand struct {
	service SaleRecordingService
}

func NewRecordSaleCommand(service SaleRecordingService) *RecordSaleCommand {
	return &RecordSaleCommand{service: service}
}

func (c *RecordSaleCommand) Execute(ctx context.Context, msg RecordSaleMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sale recording service is required")
	}
	out, err := c.service.RecordSale(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RecordLeadCommand struct {
	service SaleRecordingService
}

func NewRecordLeadCommand(service SaleRecordingService) *RecordLeadCommand {
	return &RecordLeadCommand{service: service}
}

func (c *RecordLeadCommand) Execute(ctx context.Context, msg RecordLeadMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: lead recording service is required")
	}
	out, err := c.service.RecordLead(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefundCommissionCommand struct {
	service CommissionRefundingService
}

func NewRefundCommissionCommand(service CommissionRefundingService) *RefundCommissionCommand {
	return &RefundCommissionCommand{service: service}
}

func (c *RefundCommissionCommand) Execute(ctx context.Context, msg RefundCommissionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: commission refunding service is required")
	}
	out, err := c.service.RefundCommission(ctx, msg.InvoiceID, msg.ProgramID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DrainOutboxCommand struct {
	service OutboxDrainingService
}

func NewDrainOutboxCommand(service OutboxDrainingService) *DrainOutboxCommand {
	return &DrainOutboxCommand{service: service}
}

func (c *DrainOutboxCommand) Execute(ctx context.Context, msg DrainOutboxMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: outbox draining service is required")
	}
	out, err := c.service.DispatchPending(ctx, msg.BatchSize)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
