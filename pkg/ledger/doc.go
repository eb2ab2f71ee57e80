// Package ledger implements a multi-tenant credit ledger: one balance-bearing
// account per tenant plus an append-only transaction log whose signed amounts
// always sum to the current balance.
//
// Correctness under horizontal scale-out rests on two disciplines:
//
//   - Every balance mutation is a conditional update matching the account's
//     current version (optimistic concurrency). Losers observe a conflict and
//     retry from a fresh read, bounded with jittered backoff. Direct
//     unconditional writes to the balance do not exist anywhere.
//   - Every mutation carries a caller-supplied idempotency key enforced by a
//     unique index on the transaction log. Replaying a mutation returns the
//     originally recorded transaction instead of applying it again.
//
// Balances never go negative: consumption checks the precondition before
// mutating and the conditional update additionally guards balance >= cost at
// write time.
//
// Accounts track a monthly allocation alongside purchased credits. Monthly
// credits are consumed first; the purchased remainder survives the monthly
// reset.
//
// The Mongo-backed Store provides multi-document transactions so event
// handlers can update subscription state and the ledger atomically. An
// in-memory Store with identical conditional-update semantics backs the
// tests.
package ledger
