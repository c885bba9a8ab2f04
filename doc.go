// Package ttlstate keeps per-session conversation state that is only valid for a limited time.
//
// An ExpiryCache records a freshness deadline per session Key. A GatedStateStore stores one
// state per session and only returns it while the session is fresh; a stale session that still
// holds a state is handed to the store's ExpiryHandler, which decides what the read returns.
//
// The zero value of the state type means "no state".
package ttlstate
