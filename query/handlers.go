package query

import (
	"context"

	"github.com/goliatone/go-attribution/core"
)

type LoadCommissionQuery struct {
	commissions core.CommissionStore
}

func NewLoadCommissionQuery(commissions core.CommissionStore) *LoadCommissionQuery {
	return &LoadCommissionQuery{commissions: commissions}
}

func (q *LoadCommissionQuery) Query(ctx context.Context, msg LoadCommissionMessage) (core.Commission, error) {
	if q == nil || q.commissions == nil {
		return core.Commission{}, queryDependencyError("query: commission store is required")
	}
	return q.commissions.GetByInvoiceAndProgram(ctx, msg.InvoiceID, msg.ProgramID)
}

// LoadPayoutQuery reads a payout balance, typically to verify refund
// reversals landed.
type LoadPayoutQuery struct {
	payouts core.PayoutStore
}

func NewLoadPayoutQuery(payouts core.PayoutStore) *LoadPayoutQuery {
	return &LoadPayoutQuery{payouts: payouts}
}

func (q *LoadPayoutQuery) Query(ctx context.Context, msg LoadPayoutMessage) (core.Payout, error) {
	if q == nil || q.payouts == nil {
		return core.Payout{}, queryDependencyError("query: payout store is required")
	}
	return q.payouts.Get(ctx, msg.PayoutID)
}

type GetCustomerQuery struct {
	customers core.CustomerStore
}

func NewGetCustomerQuery(customers core.CustomerStore) *GetCustomerQuery {
	return &GetCustomerQuery{customers: customers}
}

func (q *GetCustomerQuery) Query(ctx context.Context, msg GetCustomerMessage) (core.Customer, error) {
	if q == nil || q.customers == nil {
		return core.Customer{}, queryDependencyError("query: customer store is required")
	}
	return q.customers.Get(ctx, msg.CustomerID)
}

// LoadClickQuery serves click lookups; wire it with the cached click store
// so repeat lookups for the same id skip the database.
type LoadClickQuery struct {
	clicks core.ClickStore
}

func NewLoadClickQuery(clicks core.ClickStore) *LoadClickQuery {
	return &LoadClickQuery{clicks: clicks}
}

func (q *LoadClickQuery) Query(ctx context.Context, msg LoadClickMessage) (core.ClickEvent, error) {
	if q == nil || q.clicks == nil {
		return core.ClickEvent{}, queryDependencyError("query: click store is required")
	}
	return q.clicks.Get(ctx, msg.ClickID)
}

type ListWebhookEndpointsQuery struct {
	endpoints core.WebhookEndpointStore
}

func NewListWebhookEndpointsQuery(endpoints core.WebhookEndpointStore) *ListWebhookEndpointsQuery {
	return &ListWebhookEndpointsQuery{endpoints: endpoints}
}

func (q *ListWebhookEndpointsQuery) Query(
	ctx context.Context,
	msg ListWebhookEndpointsMessage,
) ([]core.WebhookEndpoint, error) {
	if q == nil || q.endpoints == nil {
		return nil, queryDependencyError("query: webhook endpoint store is required")
	}
	return q.endpoints.ListByWorkspace(ctx, msg.WorkspaceID)
}
