// Package memdb is the in-memory dbclient.Database this repository ships so
// the harness can run its own tests and a local cmd/dbtester/cmd/dbtestharness
// pairing end to end without a real transactional key-value store behind it.
// It is not meant to exercise the conflict/retry paths a real backend would;
// Commit always succeeds and OnError never asks the caller to retry.
package memdb

import (
	"context"
	"sort"
	"sync"

	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
)

// Database is a single shared key space protected by one mutex. Begin
// returns a Transaction that stages its writes locally and only applies them
// to the shared map on Commit, so a transaction that's never committed
// leaves no trace.
type Database struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// New constructs an empty Database.
func New() *Database {
	return &Database{store: map[string][]byte{}}
}

func (d *Database) Begin(ctx context.Context) (dbclient.Transaction, error) {
	return &transaction{db: d, sets: map[string][]byte{}, clears: map[string]bool{}}, nil
}

// OnError never classifies a failure as retryable-forever: it returns the
// error unchanged, since this in-memory store has no transient failure mode
// of its own to retry past. Real backends (see DESIGN.md's A7 entry) are
// expected to distinguish conflicts from permanent failures here.
func (d *Database) OnError(ctx context.Context, err error) error {
	return err
}

func (d *Database) Close() error {
	return nil
}

// transaction stages Set/Clear calls locally; Get and GetRange read through
// to the underlying store, overlaid with this transaction's own uncommitted
// writes so a transaction observes its own changes. GetRange returns rows in
// ascending key order.
type transaction struct {
	db     *Database
	sets   map[string][]byte
	clears map[string]bool
}

func (t *transaction) Get(ctx context.Context, key []byte) ([]byte, error) {
	k := string(key)
	if v, ok := t.sets[k]; ok {
		return v, nil
	}
	if t.clears[k] {
		return nil, nil
	}
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	return t.db.store[k], nil
}

func (t *transaction) GetRange(ctx context.Context, begin, end []byte) ([]dbclient.KeyValue, error) {
	b, e := string(begin), string(end)

	t.db.mu.RLock()
	seen := make(map[string][]byte, len(t.db.store))
	for k, v := range t.db.store {
		if k >= b && k < e {
			seen[k] = v
		}
	}
	t.db.mu.RUnlock()

	for k, v := range t.sets {
		if k >= b && k < e {
			seen[k] = v
		}
	}
	for k := range t.clears {
		delete(seen, k)
	}

	out := make([]dbclient.KeyValue, 0, len(seen))
	for k, v := range seen {
		out = append(out, dbclient.KeyValue{Key: []byte(k), Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i].Key) < string(out[j].Key) })
	return out, nil
}

func (t *transaction) Set(ctx context.Context, key, value []byte) {
	k := string(key)
	delete(t.clears, k)
	t.sets[k] = append([]byte{}, value...)
}

func (t *transaction) Clear(ctx context.Context, key []byte) {
	k := string(key)
	delete(t.sets, k)
	t.clears[k] = true
}

func (t *transaction) ClearRange(ctx context.Context, begin, end []byte) {
	b, e := string(begin), string(end)

	t.db.mu.RLock()
	for k := range t.db.store {
		if k >= b && k < e {
			t.clears[k] = true
		}
	}
	t.db.mu.RUnlock()

	for k := range t.sets {
		if k >= b && k < e {
			delete(t.sets, k)
			t.clears[k] = true
		}
	}
}

func (t *transaction) Commit(ctx context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for k := range t.clears {
		delete(t.db.store, k)
	}
	for k, v := range t.sets {
		t.db.store[k] = v
	}
	return nil
}
