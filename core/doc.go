// Package core defines the domain model and contracts for the attribution
// pipeline: customers, click/lead/sale events, links, commissions, payouts,
// and the narrow interfaces this module uses to talk to the relational
// store, the analytics event store, the idempotency cache, and the payment
// processor.
//
// Business skips (duplicate invoice, unresolvable customer, zero-amount
// charge) are modeled as SkipError values, not errors: they terminate a
// delivery with a 200 and a human-readable reason and are never retried.
package core
