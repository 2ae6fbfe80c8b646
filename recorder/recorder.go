// Package recorder writes the durable business facts: lead and sale events
// into the analytics store, followed by best-effort additive aggregate
// updates across the relational rows.
//
// The event append is the source of truth for "did this happen". Aggregate
// increments that fail afterwards are logged per target and left to the
// reconciliation job; they never roll back the event.
package recorder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-attribution/core"
	"github.com/google/uuid"
)

type Dependencies struct {
	Sales      core.SaleStore
	Leads      core.LeadStore
	Links      core.LinkStore
	Customers  core.CustomerStore
	Workspaces core.WorkspaceStore
	Converter  core.CurrencyConverter
	Observer   *core.Observer
}

type Recorder struct {
	config     core.Config
	sales      core.SaleStore
	leads      core.LeadStore
	links      core.LinkStore
	customers  core.CustomerStore
	workspaces core.WorkspaceStore
	converter  core.CurrencyConverter
	observer   *core.Observer
	now        func() time.Time
	newID      func() string
}

func New(cfg core.Config, deps Dependencies) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Sales == nil {
		return nil, fmt.Errorf("recorder: sale store is required")
	}
	if deps.Leads == nil {
		return nil, fmt.Errorf("recorder: lead store is required")
	}
	if deps.Links == nil {
		return nil, fmt.Errorf("recorder: link store is required")
	}
	if deps.Customers == nil {
		return nil, fmt.Errorf("recorder: customer store is required")
	}
	if deps.Workspaces == nil {
		return nil, fmt.Errorf("recorder: workspace store is required")
	}
	if deps.Converter == nil {
		return nil, fmt.Errorf("recorder: currency converter is required")
	}
	return &Recorder{
		config:     cfg,
		sales:      deps.Sales,
		leads:      deps.Leads,
		links:      deps.Links,
		customers:  deps.Customers,
		workspaces: deps.Workspaces,
		converter:  deps.Converter,
		observer:   deps.Observer,
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}, nil
}

// RecordSale normalizes the amount to the base currency, appends the sale
// event, and fans out the aggregate increments.
func (r *Recorder) RecordSale(ctx context.Context, in core.RecordSaleInput) (core.SaleEvent, error) {
	if r == nil {
		return core.SaleEvent{}, fmt.Errorf("recorder: recorder is nil")
	}
	customer := in.Identity.Customer
	link := in.Identity.Link
	if strings.TrimSpace(customer.ID) == "" {
		return core.SaleEvent{}, fmt.Errorf("recorder: resolved customer is required")
	}
	if strings.TrimSpace(link.ID) == "" {
		return core.SaleEvent{}, fmt.Errorf("recorder: resolved link is required")
	}

	amount, currency, err := r.normalizeAmount(ctx, in)
	if err != nil {
		return core.SaleEvent{}, err
	}

	// First conversion is decided against the state before this write.
	firstConversion := false
	exists, err := r.sales.ExistsForCustomerLink(ctx, customer.ID, link.ID)
	if err != nil {
		r.logIncrementFailure(ctx, "first_conversion_check", in.InvoiceID, err)
	} else {
		firstConversion = !exists
	}

	sale := core.SaleEvent{
		ID:          r.newID(),
		CustomerID:  customer.ID,
		LinkID:      link.ID,
		WorkspaceID: customer.WorkspaceID,
		InvoiceID:   strings.TrimSpace(in.InvoiceID),
		Amount:      amount,
		Currency:    currency,
		Processor:   strings.TrimSpace(in.Processor),
		Metadata:    in.Metadata,
		Timestamp:   r.now(),
	}
	if err := r.sales.Append(ctx, sale); err != nil {
		return core.SaleEvent{}, fmt.Errorf("recorder: append sale event: %w", err)
	}

	// Independent per-row additive updates, not one cross-store
	// transaction: the sale event above stays durable even when an
	// increment fails.
	var wg sync.WaitGroup
	increments := []struct {
		name string
		run  func() error
	}{
		{
			name: "link_sales",
			run: func() error {
				return r.links.IncrementSales(ctx, core.LinkSaleIncrement{
					LinkID:          link.ID,
					Amount:          amount,
					FirstConversion: firstConversion,
				})
			},
		},
		{
			name: "workspace_usage",
			run: func() error {
				return r.workspaces.IncrementSalesUsage(ctx, customer.WorkspaceID, 1)
			},
		},
		{
			name: "customer_sales",
			run: func() error {
				return r.customers.IncrementSales(ctx, customer.ID, amount)
			},
		},
	}
	for _, increment := range increments {
		wg.Add(1)
		go func(name string, run func() error) {
			defer wg.Done()
			if err := run(); err != nil {
				r.logIncrementFailure(ctx, name, sale.InvoiceID, err)
			}
		}(increment.name, increment.run)
	}
	wg.Wait()

	return sale, nil
}

// RecordLead appends the lead event and bumps the link lead counters.
func (r *Recorder) RecordLead(ctx context.Context, in core.RecordLeadInput) (core.LeadEvent, error) {
	if r == nil {
		return core.LeadEvent{}, fmt.Errorf("recorder: recorder is nil")
	}
	if strings.TrimSpace(in.Customer.ID) == "" {
		return core.LeadEvent{}, fmt.Errorf("recorder: customer is required")
	}
	if strings.TrimSpace(in.LinkID) == "" {
		return core.LeadEvent{}, fmt.Errorf("recorder: link id is required")
	}
	eventName := strings.TrimSpace(in.EventName)
	if eventName == "" {
		eventName = "Sign up"
	}

	now := r.now()
	lead := core.LeadEvent{
		ID:          r.newID(),
		CustomerID:  in.Customer.ID,
		LinkID:      in.LinkID,
		WorkspaceID: in.Customer.WorkspaceID,
		EventName:   eventName,
		Timestamp:   now,
	}
	if err := r.leads.Append(ctx, lead); err != nil {
		return core.LeadEvent{}, fmt.Errorf("recorder: append lead event: %w", err)
	}

	if err := r.links.IncrementLeads(ctx, in.LinkID, now); err != nil {
		r.logIncrementFailure(ctx, "link_leads", lead.ID, err)
	}

	return lead, nil
}

func (r *Recorder) normalizeAmount(ctx context.Context, in core.RecordSaleInput) (int64, string, error) {
	base := strings.ToLower(strings.TrimSpace(r.config.BaseCurrency))
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = base
	}

	// Prefer the processor's own FX conversion when it settled into the
	// base currency.
	if in.SettledAmount > 0 && strings.ToLower(strings.TrimSpace(in.SettledCurrency)) == base {
		return in.SettledAmount, base, nil
	}
	if currency == base {
		return in.Amount, base, nil
	}

	converted, convertedCurrency, err := r.converter.Convert(ctx, in.Amount, currency)
	if err != nil {
		return 0, "", fmt.Errorf("recorder: convert %d %s: %w", in.Amount, currency, err)
	}
	return converted, strings.ToLower(strings.TrimSpace(convertedCurrency)), nil
}

func (r *Recorder) logIncrementFailure(ctx context.Context, target string, reference string, err error) {
	if r == nil || r.observer == nil {
		return
	}
	r.observer.Error(ctx, "aggregate increment failed", map[string]any{
		"target":    target,
		"reference": reference,
		"error":     err.Error(),
	})
	r.observer.Counter(ctx, "attribution.increment_failures.total", 1, map[string]string{
		"target": target,
	})
}
