// Package subscription persists per-tenant subscription state and the plan
// catalog that maps payment-provider prices to monthly credit allocations.
//
// The package is deliberately small: pricing rules, checkout flows and
// provider API calls live elsewhere. Webhook event handlers use the Store to
// update subscription fields inside the same atomic transaction as ledger
// writes, which is why Save must honor any transaction carried by the
// context.
//
// Plans are loaded once at startup from a Source. Two sources ship with the
// package: an in-memory one for tests and a YAML file source for
// configuration-driven catalogs.
package subscription
