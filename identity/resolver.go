// Package identity resolves payment-processor events to internal customers.
//
// Resolution tries strategies in a fixed priority order; the ordering is
// load-bearing and mirrors the attribution guarantees: client-reference
// attribution first, then direct processor-customer mapping, then the
// caller-supplied external id, then the connected-account metadata lookup,
// with promotion-code attribution as the single unified fallback.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-attribution/core"
	"github.com/google/uuid"
)

const signupLeadEventName = "Sign up"

// LeadWriter records a lead event and bumps the link lead counters; the
// attribution recorder implements it.
type LeadWriter interface {
	RecordLead(ctx context.Context, in core.RecordLeadInput) (core.LeadEvent, error)
}

type Dependencies struct {
	Customers core.CustomerStore
	Clicks    core.ClickStore
	Leads     core.LeadStore
	Links     core.LinkStore
	Discounts core.DiscountStore
	Processor core.ProcessorClient
	Writer    LeadWriter
	Observer  *core.Observer
}

type Resolver struct {
	config    core.Config
	customers core.CustomerStore
	clicks    core.ClickStore
	leads     core.LeadStore
	links     core.LinkStore
	discounts core.DiscountStore
	processor core.ProcessorClient
	writer    LeadWriter
	observer  *core.Observer
	now       func() time.Time
	newID     func() string
}

func NewResolver(cfg core.Config, deps Dependencies) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Customers == nil {
		return nil, fmt.Errorf("identity: customer store is required")
	}
	if deps.Clicks == nil {
		return nil, fmt.Errorf("identity: click store is required")
	}
	if deps.Leads == nil {
		return nil, fmt.Errorf("identity: lead store is required")
	}
	if deps.Links == nil {
		return nil, fmt.Errorf("identity: link store is required")
	}
	if deps.Discounts == nil {
		return nil, fmt.Errorf("identity: discount store is required")
	}
	if deps.Processor == nil {
		return nil, fmt.Errorf("identity: processor client is required")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("identity: lead writer is required")
	}
	return &Resolver{
		config:    cfg,
		customers: deps.Customers,
		clicks:    deps.Clicks,
		leads:     deps.Leads,
		links:     deps.Links,
		discounts: deps.Discounts,
		processor: deps.Processor,
		writer:    deps.Writer,
		observer:  deps.Observer,
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}, nil
}

// Resolve maps an event to a customer, link, and lead. Given the same input
// and identical store state it always picks the same strategy. A SkipError
// means the caller must not write any data.
func (r *Resolver) Resolve(ctx context.Context, in core.ResolveInput) (core.ResolvedIdentity, error) {
	if r == nil {
		return core.ResolvedIdentity{}, fmt.Errorf("identity: resolver is nil")
	}
	in = normalizeInput(in)

	// 1. Client-reference attribution: a platform-marked reference id wins
	// outright; a dangling click id is a terminal skip, not a fallthrough.
	if strings.HasPrefix(in.ClientReferenceID, r.config.ClientReferencePrefix) {
		return r.resolveClientReference(ctx, in)
	}

	// 2. Direct processor-customer mapping.
	if in.ProcessorCustomerID != "" {
		customer, err := r.customers.GetByProcessorID(ctx, in.ProcessorCustomerID)
		if err == nil {
			return r.finish(ctx, in, customer, core.ResolveViaProcessorID)
		}
		if !errors.Is(err, core.ErrCustomerNotFound) {
			return core.ResolvedIdentity{}, err
		}
	}

	// 3. Caller-supplied external id; 4. connected-account metadata. Both
	// fall through to the promotion-code stage when binding fails and a
	// code is present.
	if in.ExternalID != "" {
		customer, bound, err := r.bindExternalID(ctx, in, in.ExternalID)
		if err != nil {
			return core.ResolvedIdentity{}, err
		}
		if bound {
			return r.finish(ctx, in, customer, core.ResolveViaExternalID)
		}
		if in.PromotionCode == "" {
			return core.ResolvedIdentity{}, core.Skipf(
				"Customer with external ID %s not found, skipping...",
				in.ExternalID,
			)
		}
	} else if in.ProcessorCustomerID != "" {
		identity, done, err := r.resolveConnectedAccount(ctx, in)
		if err != nil || done {
			return identity, err
		}
	}

	// 5. Promotion-code attribution: synthesize the whole chain.
	if in.PromotionCode != "" {
		return r.resolvePromotionCode(ctx, in)
	}

	return core.ResolvedIdentity{}, core.Skipf("Event carries no customer identity, skipping...")
}

func (r *Resolver) resolveClientReference(ctx context.Context, in core.ResolveInput) (core.ResolvedIdentity, error) {
	clickID := strings.TrimPrefix(in.ClientReferenceID, r.config.ClientReferencePrefix)
	click, err := r.clicks.Get(ctx, clickID)
	if err != nil {
		if errors.Is(err, core.ErrClickNotFound) {
			return core.ResolvedIdentity{}, core.Skipf(
				"Click event with %s %s not found, skipping...",
				strings.TrimSuffix(r.config.ClientReferencePrefix, "_"),
				clickID,
			)
		}
		return core.ResolvedIdentity{}, err
	}

	link, err := r.links.Get(ctx, click.LinkID)
	if err != nil {
		return core.ResolvedIdentity{}, err
	}

	// Merge into an existing customer rather than duplicating: match on
	// external id first, then email.
	existing, found, err := r.lookupExisting(ctx, in, clickID)
	if err != nil {
		return core.ResolvedIdentity{}, err
	}
	if found {
		updated, err := r.customers.Update(ctx, core.UpdateCustomerInput{
			ID:                  existing.ID,
			ProcessorCustomerID: in.ProcessorCustomerID,
			Name:                in.Name,
			Email:               in.Email,
			Country:             coalesce(in.Country, click.Country),
			ClickID:             click.ID,
			LinkID:              click.LinkID,
			ClickedAt:           click.Timestamp,
		})
		if err != nil {
			return core.ResolvedIdentity{}, err
		}
		return r.finish(ctx, in, updated, core.ResolveViaClientReference)
	}

	externalID := coalesce(in.ExternalID, clickID)
	customer, err := r.customers.Create(ctx, core.CreateCustomerInput{
		WorkspaceID:         click.WorkspaceID,
		ExternalID:          externalID,
		ProcessorCustomerID: in.ProcessorCustomerID,
		Name:                in.Name,
		Email:               in.Email,
		Country:             coalesce(in.Country, click.Country),
		ClickID:             click.ID,
		LinkID:              click.LinkID,
		ClickedAt:           click.Timestamp,
	})
	if err != nil {
		return core.ResolvedIdentity{}, err
	}

	lead, err := r.writer.RecordLead(ctx, core.RecordLeadInput{
		Customer:  customer,
		LinkID:    click.LinkID,
		EventName: signupLeadEventName,
	})
	if err != nil {
		return core.ResolvedIdentity{}, err
	}

	return core.ResolvedIdentity{
		Customer: customer,
		Link:     link,
		Lead:     lead,
		Via:      core.ResolveViaClientReference,
		NewLead:  true,
	}, nil
}

func (r *Resolver) resolveConnectedAccount(ctx context.Context, in core.ResolveInput) (core.ResolvedIdentity, bool, error) {
	processorCustomer, err := r.processor.GetCustomer(ctx, in.ConnectedAccountID, in.ProcessorCustomerID, in.Mode)
	if err != nil {
		// Processor API failures are transient infrastructure: surface
		// them so the delivery is retried.
		return core.ResolvedIdentity{}, false, err
	}

	stashed := strings.TrimSpace(processorCustomer.Metadata[core.MetadataKeyExternalID])
	if stashed == "" {
		if in.PromotionCode != "" {
			return core.ResolvedIdentity{}, false, nil
		}
		return core.ResolvedIdentity{}, false, core.Skipf(
			"Customer with processor ID %s not found, skipping...",
			in.ProcessorCustomerID,
		)
	}

	customer, bound, err := r.bindExternalID(ctx, in, stashed)
	if err != nil {
		return core.ResolvedIdentity{}, false, err
	}
	if !bound {
		if in.PromotionCode != "" {
			return core.ResolvedIdentity{}, false, nil
		}
		return core.ResolvedIdentity{}, false, core.Skipf(
			"Customer with external ID %s not found, skipping...",
			stashed,
		)
	}

	identity, err := r.finish(ctx, in, customer, core.ResolveViaConnectedAccount)
	return identity, true, err
}

func (r *Resolver) resolvePromotionCode(ctx context.Context, in core.ResolveInput) (core.ResolvedIdentity, error) {
	discount, err := r.discounts.GetByCode(ctx, in.PromotionCode)
	if err != nil {
		if errors.Is(err, core.ErrDiscountNotFound) {
			return core.ResolvedIdentity{}, core.Skipf(
				"Promotion code %s not found, skipping...",
				in.PromotionCode,
			)
		}
		return core.ResolvedIdentity{}, err
	}

	link, err := r.links.Get(ctx, discount.LinkID)
	if err != nil {
		return core.ResolvedIdentity{}, err
	}

	now := r.now()
	click := core.ClickEvent{
		ID:          r.newID(),
		LinkID:      link.ID,
		WorkspaceID: link.WorkspaceID,
		Country:     in.Country,
		Timestamp:   now,
	}
	if err := r.clicks.Append(ctx, click); err != nil {
		return core.ResolvedIdentity{}, err
	}

	customer, err := r.customers.Create(ctx, core.CreateCustomerInput{
		WorkspaceID:         link.WorkspaceID,
		ExternalID:          coalesce(in.ExternalID, in.ProcessorCustomerID, click.ID),
		ProcessorCustomerID: in.ProcessorCustomerID,
		Name:                in.Name,
		Email:               in.Email,
		Country:             in.Country,
		ClickID:             click.ID,
		LinkID:              link.ID,
		ClickedAt:           now,
	})
	if err != nil {
		return core.ResolvedIdentity{}, err
	}

	lead, err := r.writer.RecordLead(ctx, core.RecordLeadInput{
		Customer:  customer,
		LinkID:    link.ID,
		EventName: signupLeadEventName,
	})
	if err != nil {
		return core.ResolvedIdentity{}, err
	}

	// The lead here is internally generated; suppress the outward
	// "lead created" notification duplicate.
	return core.ResolvedIdentity{
		Customer:                 customer,
		Link:                     link,
		Lead:                     lead,
		Via:                      core.ResolveViaPromotionCode,
		NewLead:                  true,
		SuppressLeadNotification: true,
	}, nil
}

// BindProcessorCustomer attaches a processor customer id (and refreshed
// contact fields) to the customer matching the supplied external id.
func (r *Resolver) BindProcessorCustomer(ctx context.Context, in core.ResolveInput) (core.Customer, bool, error) {
	if r == nil {
		return core.Customer{}, false, fmt.Errorf("identity: resolver is nil")
	}
	in = normalizeInput(in)
	if in.ExternalID == "" {
		return core.Customer{}, false, fmt.Errorf("identity: external id is required")
	}
	return r.bindExternalID(ctx, in, in.ExternalID)
}

func (r *Resolver) bindExternalID(ctx context.Context, in core.ResolveInput, externalID string) (core.Customer, bool, error) {
	customer, err := r.customers.GetByExternalID(ctx, in.Workspace.ID, externalID)
	if err != nil {
		if errors.Is(err, core.ErrCustomerNotFound) {
			return core.Customer{}, false, nil
		}
		return core.Customer{}, false, err
	}

	updated, err := r.customers.Update(ctx, core.UpdateCustomerInput{
		ID:                  customer.ID,
		ProcessorCustomerID: in.ProcessorCustomerID,
		Name:                in.Name,
		Email:               in.Email,
		Country:             in.Country,
	})
	if err != nil {
		return core.Customer{}, false, err
	}
	return updated, true, nil
}

func (r *Resolver) lookupExisting(ctx context.Context, in core.ResolveInput, clickID string) (core.Customer, bool, error) {
	for _, externalID := range []string{in.ExternalID, clickID} {
		if externalID == "" {
			continue
		}
		customer, err := r.customers.GetByExternalID(ctx, in.Workspace.ID, externalID)
		if err == nil {
			return customer, true, nil
		}
		if !errors.Is(err, core.ErrCustomerNotFound) {
			return core.Customer{}, false, err
		}
	}
	if in.Email != "" {
		customer, err := r.customers.GetByEmail(ctx, in.Workspace.ID, in.Email)
		if err == nil {
			return customer, true, nil
		}
		if !errors.Is(err, core.ErrCustomerNotFound) {
			return core.Customer{}, false, err
		}
	}
	return core.Customer{}, false, nil
}

// finish backfills the lead anchoring the resolved customer: a sale is
// never attributed to a customer without a resolvable lead.
func (r *Resolver) finish(
	ctx context.Context,
	in core.ResolveInput,
	customer core.Customer,
	via core.ResolutionStrategy,
) (core.ResolvedIdentity, error) {
	lead, err := r.leads.LatestByCustomer(ctx, customer.ID)
	if err != nil {
		if !errors.Is(err, core.ErrLeadNotFound) {
			return core.ResolvedIdentity{}, err
		}
		if !in.AllowMissingLead {
			return core.ResolvedIdentity{}, core.Skipf(
				"Lead event for customer %s not found, skipping...",
				customer.ID,
			)
		}
		lead = core.LeadEvent{}
	}

	linkID := coalesce(lead.LinkID, customer.LinkID)
	if linkID == "" {
		return core.ResolvedIdentity{}, core.Skipf(
			"Customer %s has no associated link, skipping...",
			customer.ID,
		)
	}
	link, err := r.links.Get(ctx, linkID)
	if err != nil {
		if errors.Is(err, core.ErrLinkNotFound) {
			return core.ResolvedIdentity{}, core.Skipf(
				"Link with ID %s not found, skipping...",
				linkID,
			)
		}
		return core.ResolvedIdentity{}, err
	}

	return core.ResolvedIdentity{
		Customer: customer,
		Link:     link,
		Lead:     lead,
		Via:      via,
	}, nil
}

func normalizeInput(in core.ResolveInput) core.ResolveInput {
	in.ConnectedAccountID = strings.TrimSpace(in.ConnectedAccountID)
	in.ProcessorCustomerID = strings.TrimSpace(in.ProcessorCustomerID)
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	in.ClientReferenceID = strings.TrimSpace(in.ClientReferenceID)
	in.PromotionCode = strings.TrimSpace(in.PromotionCode)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Country = strings.TrimSpace(strings.ToUpper(in.Country))
	return in
}

func coalesce(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
