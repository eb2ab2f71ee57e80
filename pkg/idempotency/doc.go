// Package idempotency records which operation or event identifiers have
// already been fully applied, so duplicate deliveries can be short-circuited
// cheaply.
//
// The store is advisory: entries expire after a retention TTL, so it bounds
// how long exactly-once is guaranteed against redelivery. For ledger
// mutations the authoritative guarantee is the database's unique index on
// the idempotency key, which never expires. A reused key that has aged out
// of the store is still rejected by the database as a duplicate.
//
// Two implementations are provided: a Redis-backed store for multi-process
// deployments and an in-memory store for tests.
package idempotency
