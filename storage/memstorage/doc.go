// Package memstorage provides in-memory implementations of ttlstate.DeadlineStorage and ttlstate.StateStorage.
//
// Records are distributed across buckets by a hash of the session key, each bucket guarded by
// its own lock, so every operation is atomic and sessions on different buckets never contend.
// States are cloned on the way in and out with the configured ttlstate.StateCloner.
//
// Nothing is persisted: the storages live as long as the process.
package memstorage
