// Package liveness implements the background task that proves the database
// under test is still accepting commits. Every tester that uses the database
// with a non-zero ping delay runs one Prober racing its workload's phases:
// if a ping round doesn't complete in time, the Prober reports a failure on
// its Failed channel, and the per-tester runner (internal/harness/tester)
// aborts the in-flight phase as OperationFailed.
package liveness

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/harnesserr"
)

const livenessKeyPrefix = "/Liveness/"

// Prober runs self-conflicting no-op commits against db at a fixed interval
// to detect a wedged or unreachable cluster without relying on any workload
// being active.
type Prober struct {
	db        dbclient.Database
	pingDelay time.Duration
	failed    chan error
}

// New constructs a Prober. pingDelay must be positive; callers with
// databasePingDelay == 0 should not construct a Prober at all.
func New(db dbclient.Database, pingDelay time.Duration) *Prober {
	return &Prober{
		db:        db,
		pingDelay: pingDelay,
		failed:    make(chan error, 1),
	}
}

// Failed delivers at most one error: the round that exceeded pingDelay, or a
// non-retryable transaction error. Runner code races this channel against
// each in-flight phase.
func (p *Prober) Failed() <-chan error {
	return p.failed
}

// Run loops until ctx is done, performing one ping per pingDelay interval. It
// never returns an error itself; failures are reported on Failed() so a
// caller racing multiple signals doesn't need a second return path.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pingDelay)
	defer ticker.Stop()

	for {
		start := time.Now()
		if err := p.pingWithDeadline(ctx); err != nil {
			select {
			case p.failed <- err:
			default:
			}
			return
		}

		elapsed := time.Since(start)
		sleep := p.pingDelay - elapsed
		if sleep < 0 {
			sleep = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		case <-ticker.C:
		}
	}
}

// pingWithDeadline performs one ping, bounded by pingDelay; exceeding the
// deadline is itself the failure the Prober reports.
func (p *Prober) pingWithDeadline(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, p.pingDelay)
	defer cancel()

	for {
		err := p.onePing(pingCtx)
		if err == nil {
			return nil
		}
		if pingCtx.Err() != nil {
			return harnesserr.Timeout("liveness ping did not complete within databasePingDelay")
		}
		if retryErr := p.db.OnError(pingCtx, err); retryErr != nil {
			return harnesserr.Failed(retryErr, "liveness ping failed")
		}
		// OnError says retry: loop and try the ping again.
	}
}

// onePing opens a transaction, reads a freshly-random key under /Liveness/,
// writes to the same key to make the transaction self-conflicting, and
// commits. A fresh key per round means every ping actually touches the
// storage layer rather than repeatedly hitting a cached read.
func (p *Prober) onePing(ctx context.Context) error {
	txn, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}

	key := []byte(livenessKeyPrefix + uuid.NewString())
	if _, err := txn.Get(ctx, key); err != nil {
		return err
	}
	txn.Set(ctx, key, []byte("1"))

	return txn.Commit(ctx)
}
