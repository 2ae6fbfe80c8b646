package webhooks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-attribution/core"
)

// MetadataKeyExternalID aliases the shared metadata key for handler use.
const MetadataKeyExternalID = core.MetadataKeyExternalID

const trialLeadEventName = "Sign up (trial)"

func (d *Dispatcher) handleCheckoutCompleted(ctx context.Context, delivery Delivery, event Event) (string, error) {
	var session CheckoutSession
	if err := decodeObject(event, &session); err != nil {
		return "", err
	}

	if strings.EqualFold(strings.TrimSpace(session.Mode), "setup") {
		return "", core.Skipf("Checkout session %s is a setup session, skipping...", session.ID)
	}
	if session.AmountTotal == 0 {
		return "", core.Skipf("Checkout session %s has a zero amount, skipping...", session.ID)
	}
	invoiceID := session.InvoiceID()
	if invoiceID == "" {
		return "", core.Skipf("Checkout session %s has no invoice or payment intent, skipping...", session.ID)
	}

	workspace, err := d.workspace(ctx, event)
	if err != nil {
		return "", err
	}

	identity, err := d.resolver.Resolve(ctx, core.ResolveInput{
		Mode:                delivery.Mode,
		Workspace:           workspace,
		ConnectedAccountID:  event.Account,
		ProcessorCustomerID: session.Customer,
		ExternalID:          session.Metadata[MetadataKeyExternalID],
		ClientReferenceID:   session.ClientReferenceID,
		PromotionCode:       session.PromotionCode(),
		Email:               session.CustomerDetails.Email,
		Name:                session.CustomerDetails.Name,
		Country:             session.CustomerDetails.Address.Country,
	})
	if err != nil {
		return "", err
	}

	if err := d.claimInvoice(ctx, invoiceID, delivery.Body); err != nil {
		return "", err
	}

	sale, err := d.recorder.RecordSale(ctx, core.RecordSaleInput{
		Identity:  identity,
		InvoiceID: invoiceID,
		Amount:    session.AmountTotal,
		Currency:  session.Currency,
		Processor: d.config.Processor,
		Metadata: map[string]any{
			"checkout_session_id": session.ID,
		},
	})
	if err != nil {
		return "", err
	}

	d.attributeCommission(ctx, core.AttributeCommissionInput{
		Sale:               sale,
		Identity:           identity,
		ConnectedAccountID: event.Account,
		Mode:               delivery.Mode,
	})
	d.notify(ctx, identity, sale)

	return fmt.Sprintf("Sale recorded for customer ID %s and invoice ID %s", identity.Customer.ID, invoiceID), nil
}

func (d *Dispatcher) handleInvoicePaid(ctx context.Context, delivery Delivery, event Event) (string, error) {
	var invoice Invoice
	if err := decodeObject(event, &invoice); err != nil {
		return "", err
	}

	if invoice.AmountPaid == 0 {
		return "", core.Skipf("Invoice with ID %s has a zero amount, skipping...", invoice.ID)
	}

	workspace, err := d.workspace(ctx, event)
	if err != nil {
		return "", err
	}

	identity, err := d.resolver.Resolve(ctx, core.ResolveInput{
		Mode:                delivery.Mode,
		Workspace:           workspace,
		ConnectedAccountID:  event.Account,
		ProcessorCustomerID: invoice.Customer,
		ExternalID:          invoice.Metadata[MetadataKeyExternalID],
	})
	if err != nil {
		return "", err
	}

	if err := d.claimInvoice(ctx, invoice.ID, delivery.Body); err != nil {
		return "", err
	}

	in := core.RecordSaleInput{
		Identity:  identity,
		InvoiceID: invoice.ID,
		Amount:    invoice.AmountPaid,
		Currency:  invoice.Currency,
		Processor: d.config.Processor,
		Metadata: map[string]any{
			"billing_reason": invoice.BillingReason,
		},
	}
	if invoice.Settlement != nil {
		in.SettledAmount = invoice.Settlement.Amount
		in.SettledCurrency = invoice.Settlement.Currency
	}
	sale, err := d.recorder.RecordSale(ctx, in)
	if err != nil {
		return "", err
	}

	d.attributeCommission(ctx, core.AttributeCommissionInput{
		Sale:               sale,
		Identity:           identity,
		SubscriptionID:     invoice.Subscription,
		ConnectedAccountID: event.Account,
		Mode:               delivery.Mode,
	})
	d.notify(ctx, identity, sale)

	return fmt.Sprintf("Sale recorded for customer ID %s and invoice ID %s", identity.Customer.ID, invoice.ID), nil
}

func (d *Dispatcher) handleChargeRefunded(ctx context.Context, _ Delivery, event Event) (string, error) {
	var charge Charge
	if err := decodeObject(event, &charge); err != nil {
		return "", err
	}

	if !charge.Refunded {
		return "", core.Skipf("Charge %s is not fully refunded, skipping...", charge.ID)
	}
	if strings.TrimSpace(charge.Invoice) == "" {
		return "", core.Skipf("Charge %s has no invoice, skipping...", charge.ID)
	}

	customer, err := d.customers.GetByProcessorID(ctx, charge.Customer)
	if err != nil {
		if errors.Is(err, core.ErrCustomerNotFound) {
			return "", core.Skipf("Customer with processor ID %s not found, skipping...", charge.Customer)
		}
		return "", err
	}

	link, err := d.links.Get(ctx, customer.LinkID)
	if err != nil {
		if errors.Is(err, core.ErrLinkNotFound) {
			return "", core.Skipf("Link with ID %s not found, skipping...", customer.LinkID)
		}
		return "", err
	}
	if !link.Partnered() {
		return "", core.Skipf("Link %s has no partner program, skipping...", link.ID)
	}

	return d.commissions.RefundCommission(ctx, charge.Invoice, link.ProgramID)
}

// handleCustomerUpserted serves both customer.created and customer.updated:
// it binds the processor customer id to the internal customer identified by
// the external id stashed in processor metadata.
func (d *Dispatcher) handleCustomerUpserted(ctx context.Context, delivery Delivery, event Event) (string, error) {
	var payload CustomerPayload
	if err := decodeObject(event, &payload); err != nil {
		return "", err
	}

	externalID := strings.TrimSpace(payload.Metadata[MetadataKeyExternalID])
	if externalID == "" {
		return "", core.Skipf("Customer %s has no external ID in metadata, skipping...", payload.ID)
	}

	workspace, err := d.workspace(ctx, event)
	if err != nil {
		return "", err
	}

	customer, bound, err := d.resolver.BindProcessorCustomer(ctx, core.ResolveInput{
		Mode:                delivery.Mode,
		Workspace:           workspace,
		ConnectedAccountID:  event.Account,
		ProcessorCustomerID: payload.ID,
		ExternalID:          externalID,
		Email:               payload.Email,
		Name:                payload.Name,
		Country:             payload.Address.Country,
	})
	if err != nil {
		return "", err
	}
	if !bound {
		return "", core.Skipf("Customer with external ID %s not found, skipping...", externalID)
	}

	return fmt.Sprintf("Customer %s bound to processor customer %s", customer.ID, payload.ID), nil
}

func (d *Dispatcher) handleSubscriptionCreated(ctx context.Context, delivery Delivery, event Event) (string, error) {
	var subscription Subscription
	if err := decodeObject(event, &subscription); err != nil {
		return "", err
	}

	if !strings.EqualFold(strings.TrimSpace(subscription.Status), "trialing") {
		return "", core.Skipf(
			"Subscription %s status %q is not trialing, skipping...",
			subscription.ID,
			subscription.Status,
		)
	}

	workspace, err := d.workspace(ctx, event)
	if err != nil {
		return "", err
	}

	identity, err := d.resolver.Resolve(ctx, core.ResolveInput{
		Mode:                delivery.Mode,
		Workspace:           workspace,
		ConnectedAccountID:  event.Account,
		ProcessorCustomerID: subscription.Customer,
		ExternalID:          subscription.Metadata[MetadataKeyExternalID],
		AllowMissingLead:    true,
	})
	if err != nil {
		return "", err
	}

	if identity.Lead.ID != "" {
		return "", core.Skipf("Customer %s already has a lead, skipping...", identity.Customer.ID)
	}

	lead, err := d.recorder.RecordLead(ctx, core.RecordLeadInput{
		Customer:  identity.Customer,
		LinkID:    identity.Link.ID,
		EventName: trialLeadEventName,
	})
	if err != nil {
		return "", err
	}
	d.notifier.LeadCreated(ctx, identity, lead)

	return fmt.Sprintf("Trial lead recorded for customer ID %s", identity.Customer.ID), nil
}

func (d *Dispatcher) workspace(ctx context.Context, event Event) (core.Workspace, error) {
	workspace, err := d.workspaces.GetByConnectedAccount(ctx, event.Account)
	if err != nil {
		if errors.Is(err, core.ErrWorkspaceNotFound) {
			return core.Workspace{}, core.Skipf(
				"Workspace not found for connected account %q, skipping...",
				event.Account,
			)
		}
		return core.Workspace{}, err
	}
	return workspace, nil
}

// claimInvoice is the single cross-delivery synchronization point: it must
// succeed before any durable write.
func (d *Dispatcher) claimInvoice(ctx context.Context, invoiceID string, payload []byte) error {
	key := fmt.Sprintf("sale:%s:%s", d.config.Processor, strings.TrimSpace(invoiceID))
	claimed, err := d.claims.ClaimOnce(ctx, key, payload, d.config.IdempotencyTTL)
	if err != nil {
		return err
	}
	if !claimed {
		return core.Skipf("Invoice with ID %s already processed, skipping...", invoiceID)
	}
	return nil
}

// attributeCommission and notify run after the durable sale write; their
// failures are logged and never fail the delivery.
func (d *Dispatcher) attributeCommission(ctx context.Context, in core.AttributeCommissionInput) {
	if _, err := d.commissions.AttributeCommission(ctx, in); err != nil {
		if d.observer != nil {
			d.observer.Error(ctx, "commission attribution failed", map[string]any{
				"invoice_id": in.Sale.InvoiceID,
				"link_id":    in.Identity.Link.ID,
				"error":      err.Error(),
			})
		}
	}
}

func (d *Dispatcher) notify(ctx context.Context, identity core.ResolvedIdentity, sale core.SaleEvent) {
	if identity.NewLead && !identity.SuppressLeadNotification {
		d.notifier.LeadCreated(ctx, identity, identity.Lead)
	}
	d.notifier.SaleCreated(ctx, identity, sale)
}
