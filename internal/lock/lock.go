// Package lock serializes ledger mutations per project.
package lock

import "context"

// Locker hands out exclusive per-key locks. Acquire blocks until the lock is
// held or ctx is done; the returned release func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ProjectKey is the lock key for a project's ledger.
func ProjectKey(projectID string) string {
	return "site:lock:project:" + projectID
}
