// Package command exposes the module's mutating operations as go-command
// messages so host applications can route them through their own command
// bus, queues, or schedulers.
package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-attribution/core"
)

const (
	TypeRecordSale       = "attribution.command.sale.record"
	TypeRecordLead       = "attribution.command.lead.record"
	TypeRefundCommission = "attribution.command.commission.refund"
	TypeEmitWorkflow     = "attribution.command.workflow.emit"
	TypeResyncStats      = "attribution.command.stats.resync"
	TypeDrainOutbox      = "attribution.command.outbox.drain"
)

type RecordSaleMessage struct {
	Input core.RecordSaleInput
}

func (RecordSaleMessage) Type() string { return TypeRecordSale }

func (m RecordSaleMessage) Validate() error {
	if strings.TrimSpace(m.Input.Identity.Customer.ID) == "" {
		return fmt.Errorf("command: customer id is required")
	}
	if strings.TrimSpace(m.Input.Identity.Link.ID) == "" {
		return fmt.Errorf("command: link id is required")
	}
	if strings.TrimSpace(m.Input.InvoiceID) == "" {
		return fmt.Errorf("command: invoice id is required")
	}
	if m.Input.Amount <= 0 {
		return fmt.Errorf("command: sale amount must be positive")
	}
	return nil
}

type RecordLeadMessage struct {
	Input core.RecordLeadInput
}

func (RecordLeadMessage) Type() string { return TypeRecordLead }

func (m RecordLeadMessage) Validate() error {
	if strings.TrimSpace(m.Input.Customer.ID) == "" {
		return fmt.Errorf("command: customer id is required")
	}
	if strings.TrimSpace(m.Input.LinkID) == "" {
		return fmt.Errorf("command: link id is required")
	}
	return nil
}

type RefundCommissionMessage struct {
	InvoiceID string
	ProgramID string
}

func (RefundCommissionMessage) Type() string { return TypeRefundCommission }

func (m RefundCommissionMessage) Validate() error {
	if strings.TrimSpace(m.InvoiceID) == "" {
		return fmt.Errorf("command: invoice id is required")
	}
	if strings.TrimSpace(m.ProgramID) == "" {
		return fmt.Errorf("command: program id is required")
	}
	return nil
}

type EmitWorkflowMessage struct {
	Event core.WorkflowEvent
}

func (EmitWorkflowMessage) Type() string { return TypeEmitWorkflow }

func (m EmitWorkflowMessage) Validate() error {
	if strings.TrimSpace(m.Event.Name) == "" {
		return fmt.Errorf("command: workflow event name is required")
	}
	return nil
}

type ResyncStatsMessage struct {
	ProgramID string
	PartnerID string
	LinkID    string
}

func (ResyncStatsMessage) Type() string { return TypeResyncStats }

func (m ResyncStatsMessage) Validate() error {
	if strings.TrimSpace(m.ProgramID) == "" {
		return fmt.Errorf("command: program id is required")
	}
	if strings.TrimSpace(m.PartnerID) == "" {
		return fmt.Errorf("command: partner id is required")
	}
	return nil
}

type DrainOutboxMessage struct {
	BatchSize int
}

func (DrainOutboxMessage) Type() string { return TypeDrainOutbox }

func (m DrainOutboxMessage) Validate() error {
	if m.BatchSize < 0 {
		return fmt.Errorf("command: batch size must not be negative")
	}
	return nil
}
