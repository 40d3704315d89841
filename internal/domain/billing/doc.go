// Package billing contains the domain model for the subscription
// commerce bookkeeping core: organizations, pricing models, products,
// prices, customers, purchases, invoices, payments, checkout sessions,
// fee calculations, subscriptions, billing periods, discounts and
// usage meters, together with the pure monetary arithmetic used by the
// fee-calculation and revenue engines.
//
// The package has no I/O. Persistence and the payment processor are
// consumed through the repository and client ports declared here.
package billing
