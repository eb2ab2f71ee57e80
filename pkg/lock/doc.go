// Package lock provides a token-guarded distributed mutual-exclusion
// primitive for coordinating writers across independent service processes.
//
// A lock is a single key in a shared store whose existence is the lock
// itself. Acquisition is an atomic set-if-absent with a TTL; release is an
// atomic compare-and-delete that only succeeds when the stored token matches
// the caller's token. This prevents a holder whose lock already expired (and
// was handed to someone else) from releasing the new holder's lock.
//
// The package makes no attempt to block or retry on contention. Callers
// decide their own retry policy; the TTL is the safety net against crashed
// holders.
//
// # Usage
//
//	coord := lock.NewRedisCoordinator(redisClient)
//
//	token := lock.NewToken()
//	ok, err := coord.Acquire(ctx, "tenant:"+tenantID+":subscription", token, 30*time.Second)
//	if err != nil || !ok {
//	    // somebody else holds the lock, come back later
//	}
//	defer coord.Release(ctx, "tenant:"+tenantID+":subscription", token)
//
// For tests and single-process setups an in-memory coordinator with the
// same semantics is available via NewMemoryCoordinator.
package lock
