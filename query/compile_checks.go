package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-attribution/core"
)

var (
	_ gocmd.Querier[LoadCommissionMessage, core.Commission]              = (*LoadCommissionQuery)(nil)
	_ gocmd.Querier[LoadPayoutMessage, core.Payout]                      = (*LoadPayoutQuery)(nil)
	_ gocmd.Querier[GetCustomerMessage, core.Customer]                   = (*GetCustomerQuery)(nil)
	_ gocmd.Querier[LoadClickMessage, core.ClickEvent]                   = (*LoadClickQuery)(nil)
	_ gocmd.Querier[ListWebhookEndpointsMessage, []core.WebhookEndpoint] = (*ListWebhookEndpointsQuery)(nil)
)
