// Package commission turns attributed sales into partner commissions and
// reverses them when the underlying charge is refunded.
package commission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
	"github.com/google/uuid"
)

const (
	WorkflowPartnerMetrics = "partner.metrics.recompute"
	WorkflowLeadMetrics    = "lead.metrics.recompute"
)

type Dependencies struct {
	Commissions core.CommissionStore
	Processor   core.ProcessorClient
	Rules       core.CommissionRules
	Workflows   core.WorkflowEmitter
	Stats       core.PartnerStatsResyncer
	Background  core.BackgroundRunner
	Observer    *core.Observer
}

type Attributor struct {
	commissions core.CommissionStore
	processor   core.ProcessorClient
	rules       core.CommissionRules
	workflows   core.WorkflowEmitter
	stats       core.PartnerStatsResyncer
	background  core.BackgroundRunner
	observer    *core.Observer
	now         func() time.Time
	newID       func() string
}

func NewAttributor(deps Dependencies) (*Attributor, error) {
	if deps.Commissions == nil {
		return nil, fmt.Errorf("commission: commission store is required")
	}
	if deps.Processor == nil {
		return nil, fmt.Errorf("commission: processor client is required")
	}
	if deps.Rules == nil {
		return nil, fmt.Errorf("commission: commission rules are required")
	}
	if deps.Workflows == nil {
		return nil, fmt.Errorf("commission: workflow emitter is required")
	}
	if deps.Stats == nil {
		return nil, fmt.Errorf("commission: partner stats resyncer is required")
	}
	if deps.Background == nil {
		return nil, fmt.Errorf("commission: background runner is required")
	}
	return &Attributor{
		commissions: deps.Commissions,
		processor:   deps.Processor,
		rules:       deps.Rules,
		workflows:   deps.Workflows,
		stats:       deps.Stats,
		background:  deps.Background,
		observer:    deps.Observer,
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}, nil
}

// AttributeCommission computes and persists the commission for a sale. A
// nil commission with nil error means the link has no partner program or
// the rules found the sale ineligible.
func (a *Attributor) AttributeCommission(ctx context.Context, in core.AttributeCommissionInput) (*core.Commission, error) {
	if a == nil {
		return nil, fmt.Errorf("commission: attributor is nil")
	}
	link := in.Identity.Link
	if !link.Partnered() {
		return nil, nil
	}

	productID := ""
	if strings.TrimSpace(in.SubscriptionID) != "" {
		resolved, err := a.processor.SubscriptionProductID(ctx, in.ConnectedAccountID, in.SubscriptionID, in.Mode)
		if err != nil {
			// The product id only refines rule evaluation; a lookup
			// failure must not drop the commission.
			a.logBackgroundFailure(ctx, "subscription_product_lookup", err)
		} else {
			productID = resolved
		}
	}

	result, err := a.rules.Compute(ctx, core.CommissionContext{
		ProgramID:       link.ProgramID,
		PartnerID:       link.PartnerID,
		LinkID:          link.ID,
		CustomerID:      in.Identity.Customer.ID,
		CustomerCountry: in.Identity.Customer.Country,
		ProductID:       productID,
		Amount:          in.Sale.Amount,
		Currency:        in.Sale.Currency,
		Quantity:        1,
	})
	if err != nil {
		return nil, fmt.Errorf("commission: compute commission: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	now := a.now()
	commission := core.Commission{
		ID:         a.newID(),
		ProgramID:  link.ProgramID,
		PartnerID:  link.PartnerID,
		LinkID:     link.ID,
		CustomerID: in.Identity.Customer.ID,
		EventID:    in.Sale.ID,
		InvoiceID:  in.Sale.InvoiceID,
		Amount:     result.Amount,
		Earnings:   result.Earnings,
		Quantity:   result.Quantity,
		Currency:   in.Sale.Currency,
		Status:     core.CommissionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	stored, err := a.commissions.Create(ctx, commission)
	if err != nil {
		return nil, fmt.Errorf("commission: persist commission: %w", err)
	}

	a.scheduleFollowups(in, stored)
	return &stored, nil
}

// scheduleFollowups fires the metric/resync side-effects decoupled from the
// webhook response.
func (a *Attributor) scheduleFollowups(in core.AttributeCommissionInput, commission core.Commission) {
	link := in.Identity.Link
	workspaceID := in.Identity.Customer.WorkspaceID

	a.background.Go("partner_metrics_workflow", func(ctx context.Context) error {
		return a.workflows.Emit(ctx, core.WorkflowEvent{
			Name:        WorkflowPartnerMetrics,
			WorkspaceID: workspaceID,
			ProgramID:   commission.ProgramID,
			PartnerID:   commission.PartnerID,
			LinkID:      commission.LinkID,
			Metadata: map[string]any{
				"commission_id": commission.ID,
				"invoice_id":    commission.InvoiceID,
			},
			OccurredAt: commission.CreatedAt,
		})
	})
	a.background.Go("partner_link_stats_resync", func(ctx context.Context) error {
		return a.stats.Resync(ctx, commission.ProgramID, commission.PartnerID, link.ID)
	})
	if in.Identity.NewLead {
		a.background.Go("lead_metrics_workflow", func(ctx context.Context) error {
			return a.workflows.Emit(ctx, core.WorkflowEvent{
				Name:        WorkflowLeadMetrics,
				WorkspaceID: workspaceID,
				ProgramID:   commission.ProgramID,
				PartnerID:   commission.PartnerID,
				LinkID:      commission.LinkID,
				Metadata: map[string]any{
					"customer_id": commission.CustomerID,
				},
				OccurredAt: commission.CreatedAt,
			})
		})
	}
}

// RefundCommission reverses the commission recorded for an invoice. A paid
// commission is left alone; a processed one bound to a payout decrements
// that payout by the commission's earnings in the same transaction that
// flips the status, so the decrement lands at most once across
// redeliveries.
func (a *Attributor) RefundCommission(ctx context.Context, invoiceID string, programID string) (string, error) {
	if a == nil {
		return "", fmt.Errorf("commission: attributor is nil")
	}
	invoiceID = strings.TrimSpace(invoiceID)
	programID = strings.TrimSpace(programID)
	if invoiceID == "" || programID == "" {
		return "", fmt.Errorf("commission: invoice id and program id are required")
	}

	commission, err := a.commissions.GetByInvoiceAndProgram(ctx, invoiceID, programID)
	if err != nil {
		if errors.Is(err, core.ErrCommissionNotFound) {
			return "", core.Skipf("Commission for invoice ID %s not found, skipping...", invoiceID)
		}
		return "", err
	}

	switch commission.Status {
	case core.CommissionStatusPaid:
		return "", core.Skipf("Commission for invoice ID %s already paid, skipping...", invoiceID)
	case core.CommissionStatusRefunded:
		return "", core.Skipf("Commission for invoice ID %s already refunded, skipping...", invoiceID)
	}

	payoutID := ""
	if commission.Status == core.CommissionStatusProcessed {
		payoutID = strings.TrimSpace(commission.PayoutID)
	}

	if err := commission.TransitionTo(core.CommissionStatusRefunded, a.now()); err != nil {
		return "", err
	}
	if err := a.commissions.MarkRefunded(ctx, commission.ID, payoutID, commission.Earnings); err != nil {
		return "", fmt.Errorf("commission: persist refund: %w", err)
	}

	a.background.Go("partner_metrics_workflow", func(ctx context.Context) error {
		return a.workflows.Emit(ctx, core.WorkflowEvent{
			Name:        WorkflowPartnerMetrics,
			ProgramID:   commission.ProgramID,
			PartnerID:   commission.PartnerID,
			LinkID:      commission.LinkID,
			Metadata: map[string]any{
				"commission_id": commission.ID,
				"invoice_id":    commission.InvoiceID,
				"refunded":      true,
			},
			OccurredAt: a.now(),
		})
	})

	return fmt.Sprintf("Commission for invoice ID %s refunded", invoiceID), nil
}

func (a *Attributor) logBackgroundFailure(ctx context.Context, task string, err error) {
	if a == nil || a.observer == nil {
		return
	}
	a.observer.Error(ctx, "commission side lookup failed", map[string]any{
		"task":  task,
		"error": err.Error(),
	})
}
