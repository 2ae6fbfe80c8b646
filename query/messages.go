// Package query exposes the module's read-side lookups as go-command
// queries so hosts can route them through the same dispatcher the mutating
// commands use.
package query

import "strings"

const (
	TypeLoadCommission       = "attribution.query.commission.load"
	TypeLoadPayout           = "attribution.query.payout.load"
	TypeGetCustomer          = "attribution.query.customer.get"
	TypeLoadClick            = "attribution.query.click.load"
	TypeListWebhookEndpoints = "attribution.query.endpoints.list"
)

type LoadCommissionMessage struct {
	InvoiceID string
	ProgramID string
}

func (LoadCommissionMessage) Type() string { return TypeLoadCommission }

func (m LoadCommissionMessage) Validate() error {
	if strings.TrimSpace(m.InvoiceID) == "" {
		return queryValidationError("invoice_id", "invoice id is required")
	}
	if strings.TrimSpace(m.ProgramID) == "" {
		return queryValidationError("program_id", "program id is required")
	}
	return nil
}

type LoadPayoutMessage struct {
	PayoutID string
}

func (LoadPayoutMessage) Type() string { return TypeLoadPayout }

func (m LoadPayoutMessage) Validate() error {
	if strings.TrimSpace(m.PayoutID) == "" {
		return queryValidationError("payout_id", "payout id is required")
	}
	return nil
}

type GetCustomerMessage struct {
	CustomerID string
}

func (GetCustomerMessage) Type() string { return TypeGetCustomer }

func (m GetCustomerMessage) Validate() error {
	if strings.TrimSpace(m.CustomerID) == "" {
		return queryValidationError("customer_id", "customer id is required")
	}
	return nil
}

type LoadClickMessage struct {
	ClickID string
}

func (LoadClickMessage) Type() string { return TypeLoadClick }

func (m LoadClickMessage) Validate() error {
	if strings.TrimSpace(m.ClickID) == "" {
		return queryValidationError("click_id", "click id is required")
	}
	return nil
}

type ListWebhookEndpointsMessage struct {
	WorkspaceID string
}

func (ListWebhookEndpointsMessage) Type() string { return TypeListWebhookEndpoints }

func (m ListWebhookEndpointsMessage) Validate() error {
	if strings.TrimSpace(m.WorkspaceID) == "" {
		return queryValidationError("workspace_id", "workspace id is required")
	}
	return nil
}
