// Package billing applies payment-provider webhook events to subscription
// state and the credit ledger exactly once.
//
// The Processor is the entry point. For every verified event it:
//
//  1. Deduplicates by event ID against the idempotency store, so the
//     provider's at-least-once redelivery is safe by construction.
//  2. Classifies the event: handlers that must update subscription state and
//     the ledger together are critical and run under a tenant-scoped
//     distributed lock with a bounded TTL; pure ledger grants rely on the
//     ledger's own optimistic concurrency instead.
//  3. Dispatches to a registered handler. The registry is open; callers can
//     register handlers for additional event types.
//  4. Marks the event processed and reports an acknowledgement decision the
//     HTTP layer translates into a status code: acknowledged outcomes stop
//     redelivery, retryable failures request it.
//
// Transient failures (lock contention, store outages, conflict exhaustion)
// surface as retryable; semantically invalid events (unknown tenant or plan,
// malformed payload) are logged and acknowledged so the provider does not
// retry something that can never succeed.
//
// The Paddle provider adapter verifies webhook signatures and normalizes
// Paddle payloads into provider-agnostic events.
package billing
