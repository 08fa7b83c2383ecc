// Package dbclient defines the interfaces the harness's core treats the
// database under test as an external collaborator through: Database itself,
// transactions, and membership discovery. The core never implements database
// semantics (conflict resolution, key encoding, retries); it only drives the
// begin → get/getRange/set/clear → commit contract and calls OnError when a
// transaction fails. See internal/harness/memdb for the reference
// implementation this repository ships so it can run end to end without a
// real cluster.
package dbclient

import "context"

// KeyValue is one row in a range read.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Transaction is a single, possibly-retried unit of work against the
// database under test. Callers obtain one from Database.Begin and must call
// either Commit or let the transaction be discarded; on any error from Get,
// GetRange, Set, Clear, or Commit, callers are expected to call OnError and,
// if it returns nil, retry the whole transaction body from Begin.
type Transaction interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	GetRange(ctx context.Context, begin, end []byte) ([]KeyValue, error)
	Set(ctx context.Context, key, value []byte)
	Clear(ctx context.Context, key []byte)
	ClearRange(ctx context.Context, begin, end []byte)
	Commit(ctx context.Context) error
}

// Database is the collaborator interface every workload, the liveness
// prober, and the controller's clear/consistency-check actions drive
// transactions through.
type Database interface {
	Begin(ctx context.Context) (Transaction, error)

	// OnError classifies a transaction failure: nil means the caller should
	// retry the transaction from Begin; a non-nil error means the failure is
	// not retryable and should propagate as OperationFailed.
	OnError(ctx context.Context, err error) error

	Close() error
}

// ClusterLocator is the membership-discovery collaborator: the controller
// consumes it to learn the current set of tester endpoints to recruit,
// without ever talking to a cluster controller or leader-election protocol
// itself.
type ClusterLocator interface {
	// TesterEndpoints returns the current list of reachable tester process
	// addresses.
	TesterEndpoints(ctx context.Context) ([]string, error)
}
