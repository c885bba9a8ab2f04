// Package storage provides session storage adapters and utilities for the ttl-state library.
//
// FunctionsDeadlineStorage and FunctionsStateStorage build ttlstate.DeadlineStorage and
// ttlstate.StateStorage implementations out of plain functions, which is handy for tests and
// for bridging to existing key-value code. An adapter whose function is not set fails with
// ErrGet, ErrSet or ErrDelete.
package storage
