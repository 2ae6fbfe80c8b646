package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
)

func (r *customerRecord) toDomain() core.Customer {
	if r == nil {
		return core.Customer{}
	}
	customer := core.Customer{
		ID:                  r.ID,
		WorkspaceID:         r.WorkspaceID,
		ExternalID:          r.ExternalID,
		ProcessorCustomerID: r.ProcessorCustomerID,
		Name:                r.Name,
		Email:               r.Email,
		Country:             r.Country,
		ClickID:             r.ClickID,
		LinkID:              r.LinkID,
		SaleCount:           r.SaleCount,
		SaleAmount:          r.SaleAmount,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.ClickedAt != nil {
		customer.ClickedAt = r.ClickedAt.UTC()
	}
	return customer
}

func (r *linkRecord) toDomain() core.Link {
	if r == nil {
		return core.Link{}
	}
	link := core.Link{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		ProgramID:   r.ProgramID,
		PartnerID:   r.PartnerID,
		Leads:       r.Leads,
		Sales:       r.Sales,
		SaleAmount:  r.SaleAmount,
		Conversions: r.Conversions,
	}
	if r.LastLeadAt != nil {
		link.LastLeadAt = r.LastLeadAt.UTC()
	}
	return link
}

func (r *discountRecord) toDomain() core.Discount {
	if r == nil {
		return core.Discount{}
	}
	return core.Discount{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		LinkID:      r.LinkID,
		Code:        r.Code,
		ProgramID:   r.ProgramID,
		PartnerID:   r.PartnerID,
	}
}

func (r *commissionRecord) toDomain() core.Commission {
	if r == nil {
		return core.Commission{}
	}
	commission := core.Commission{
		ID:         r.ID,
		ProgramID:  r.ProgramID,
		PartnerID:  r.PartnerID,
		LinkID:     r.LinkID,
		CustomerID: r.CustomerID,
		EventID:    r.EventID,
		InvoiceID:  r.InvoiceID,
		Amount:     r.Amount,
		Earnings:   r.Earnings,
		Quantity:   r.Quantity,
		Currency:   r.Currency,
		Status:     core.CommissionStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.PayoutID != nil {
		commission.PayoutID = strings.TrimSpace(*r.PayoutID)
	}
	return commission
}

func (r *payoutRecord) toDomain() core.Payout {
	if r == nil {
		return core.Payout{}
	}
	return core.Payout{
		ID:          r.ID,
		ProgramID:   r.ProgramID,
		PartnerID:   r.PartnerID,
		Amount:      r.Amount,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r *workspaceRecord) toDomain() core.Workspace {
	if r == nil {
		return core.Workspace{}
	}
	return core.Workspace{
		ID:                 r.ID,
		ConnectedAccountID: r.ConnectedAccountID,
		SalesUsage:         r.SalesUsage,
	}
}

func (r *clickEventRecord) toDomain() core.ClickEvent {
	if r == nil {
		return core.ClickEvent{}
	}
	return core.ClickEvent{
		ID:          r.ID,
		LinkID:      r.LinkID,
		WorkspaceID: r.WorkspaceID,
		Country:     r.Country,
		Timestamp:   r.Timestamp,
	}
}

func (r *leadEventRecord) toDomain() core.LeadEvent {
	if r == nil {
		return core.LeadEvent{}
	}
	return core.LeadEvent{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		LinkID:      r.LinkID,
		WorkspaceID: r.WorkspaceID,
		EventName:   r.EventName,
		Timestamp:   r.Timestamp,
	}
}

func (r *saleEventRecord) toDomain() core.SaleEvent {
	if r == nil {
		return core.SaleEvent{}
	}
	return core.SaleEvent{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		LinkID:      r.LinkID,
		WorkspaceID: r.WorkspaceID,
		InvoiceID:   r.InvoiceID,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Processor:   r.Processor,
		Metadata:    copyAnyMap(r.Metadata),
		Timestamp:   r.Timestamp,
	}
}

func (r *notificationOutboxRecord) toDomain() core.Notification {
	if r == nil {
		return core.Notification{}
	}
	return core.Notification{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		EventName:   r.EventName,
		Payload:     copyAnyMap(r.Payload),
		OccurredAt:  r.OccurredAt,
		Attempts:    r.Attempts,
	}
}

func (r *webhookEndpointRecord) toDomain() core.WebhookEndpoint {
	if r == nil {
		return core.WebhookEndpoint{}
	}
	return core.WebhookEndpoint{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		URL:         r.URL,
		Secret:      r.Secret,
	}
}

func copyAnyMap(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func timePointer(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
