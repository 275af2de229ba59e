// Package registry tracks live wallboard connections.
//
// A Registry holds two maps, agents and supervisors, keyed by normalized
// code and guarded by a single RWMutex so that a code can never be present
// in both at once. Register rejects duplicates with ErrDuplicateIdentity;
// Unregister reports whether anything was removed so disconnect handling
// stays idempotent.
//
// Snapshot accessors (Supervisors, Connections) copy the connection set
// under a read lock. Callers fan events out over the snapshot without
// holding the lock, so a slow client never blocks registration.
package registry
