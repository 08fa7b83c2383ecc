package tpcc

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
	"github.com/dbtestharness/dbtestharness/pkg/harness/workload"
)

func TestNURand_WithinRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := nuRand(r, 255, 255, 0, 999)
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 999)
	}
}

func TestGenCLast_ThreeSyllables(t *testing.T) {
	name := genCLast(0)
	assert.Equal(t, syllables[0]+syllables[0]+syllables[0], name)
	name = genCLast(999)
	assert.Equal(t, syllables[9]+syllables[9]+syllables[9], name)
}

func TestWarehouseRange_EvenSplit(t *testing.T) {
	opts := &spec.OptionBlock{Options: []*spec.Option{
		{Key: "warehousesNum", Value: "8"},
		{Key: "clientProcessesUsed", Value: "4"},
	}}
	w, err := New(workload.Context{ClientID: 0, ClientCount: 4, Options: opts})
	require.NoError(t, err)
	tp := w.(*TPCC)
	assert.Equal(t, 1, tp.startWID)
	assert.Equal(t, 2, tp.endWID)
}

func TestWarehouseRange_UnevenGivesExtraToEarlyClients(t *testing.T) {
	opts := &spec.OptionBlock{Options: []*spec.Option{
		{Key: "warehousesNum", Value: "10"},
		{Key: "clientProcessesUsed", Value: "4"},
	}}
	w, err := New(workload.Context{ClientID: 0, ClientCount: 4, Options: opts})
	require.NoError(t, err)
	tp := w.(*TPCC)
	assert.Equal(t, 1, tp.startWID)
	assert.Equal(t, 3, tp.endWID) // warehousesPerClientProcess=2, remain=2, client 0<2 so +1 extra.

	opts2 := &spec.OptionBlock{Options: []*spec.Option{
		{Key: "warehousesNum", Value: "10"},
		{Key: "clientProcessesUsed", Value: "4"},
	}}
	w2, err := New(workload.Context{ClientID: 3, ClientCount: 4, Options: opts2})
	require.NoError(t, err)
	tp2 := w2.(*TPCC)
	assert.Equal(t, 9, tp2.startWID)
	assert.Equal(t, 10, tp2.endWID) // client 3 >= remain(2), no extra.
}

func TestWarehouseRange_ClientsBeyondClientProcessesUsed(t *testing.T) {
	opts := &spec.OptionBlock{Options: []*spec.Option{
		{Key: "warehousesNum", Value: "4"},
		{Key: "clientProcessesUsed", Value: "2"},
	}}
	w, err := New(workload.Context{ClientID: 2, ClientCount: 4, Options: opts})
	require.NoError(t, err)
	tp := w.(*TPCC)
	assert.Greater(t, tp.startWID, tp.endWID)
}

func TestCheck_PassesOnlyWhenThroughputExceedsExpectation(t *testing.T) {
	tp := &TPCC{testDuration: 300, warmupTime: 60, expectedTPM: 1, m: newTxMetrics()}
	ok, err := tp.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 10; i++ {
		tp.m.newOrder.record(true, 1)
	}
	ok, err = tp.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecordMetrics_OnlyInsideWindow(t *testing.T) {
	tp := &TPCC{testDuration: 100, warmupTime: 10}
	assert.False(t, tp.recordMetrics()) // never started.

	tp.startedAt = time.Now().Add(-5 * time.Second)
	assert.False(t, tp.recordMetrics()) // inside warmup.

	tp.startedAt = time.Now().Add(-50 * time.Second)
	assert.True(t, tp.recordMetrics())

	tp.startedAt = time.Now().Add(-95 * time.Second)
	assert.False(t, tp.recordMetrics()) // inside trailing warmup.
}

func TestGetMetrics_OnlyFirstClientProcessesUsedReport(t *testing.T) {
	tp := &TPCC{clientID: 5, clientProcessesUsed: 4, clientCount: 8, m: newTxMetrics()}
	assert.Nil(t, tp.GetMetrics())

	tp2 := &TPCC{clientID: 0, clientProcessesUsed: 4, clientCount: 8, m: newTxMetrics()}
	tp2.m.newOrder.record(true, 5)
	ms := tp2.GetMetrics()
	require.NotEmpty(t, ms)
}

// memTxn/memDB give the transaction-body tests a minimal, non-concurrent
// dbclient.Database to run against without pulling in the full reference
// implementation from internal/harness/memdb.
type memTxn struct {
	store map[string][]byte
	sets  map[string][]byte
	clears map[string]bool
}

func newMemTxn(store map[string][]byte) *memTxn {
	return &memTxn{store: store, sets: map[string][]byte{}, clears: map[string]bool{}}
}

func (t *memTxn) Get(ctx context.Context, key []byte) ([]byte, error) {
	if v, ok := t.sets[string(key)]; ok {
		return v, nil
	}
	if t.clears[string(key)] {
		return nil, nil
	}
	return t.store[string(key)], nil
}

func (t *memTxn) GetRange(ctx context.Context, begin, end []byte) ([]dbclient.KeyValue, error) {
	var out []dbclient.KeyValue
	for k, v := range t.store {
		if k >= string(begin) && k < string(end) && !t.clears[k] {
			out = append(out, dbclient.KeyValue{Key: []byte(k), Value: v})
		}
	}
	return out, nil
}

func (t *memTxn) Set(ctx context.Context, key, value []byte) {
	t.sets[string(key)] = value
}

func (t *memTxn) Clear(ctx context.Context, key []byte) {
	t.clears[string(key)] = true
}

func (t *memTxn) ClearRange(ctx context.Context, begin, end []byte) {
	for k := range t.store {
		if k >= string(begin) && k < string(end) {
			t.clears[k] = true
		}
	}
}

func (t *memTxn) Commit(ctx context.Context) error {
	for k, v := range t.sets {
		t.store[k] = v
	}
	for k := range t.clears {
		delete(t.store, k)
	}
	return nil
}

type memDB struct{ store map[string][]byte }

func (d *memDB) Begin(ctx context.Context) (dbclient.Transaction, error) { return newMemTxn(d.store), nil }
func (d *memDB) OnError(ctx context.Context, err error) error            { return err }
func (d *memDB) Close() error                                            { return nil }

func TestPaymentTransaction_UpdatesBalanceAndYTD(t *testing.T) {
	db := &memDB{store: map[string][]byte{
		string(districtKey(1, 1)): encode(district{Tax: 0.1, NextOID: 1}),
		string(customerKey(1, 1, 1)): encode(customer{Balance: -10}),
	}}
	r := rand.New(rand.NewSource(1))
	err := runTxn(context.Background(), db, func(ctx context.Context, txn dbclient.Transaction) error {
		return paymentBodyForTest(ctx, txn, r, 1, 1, 1)
	})
	require.NoError(t, err)

	var c customer
	require.NoError(t, decode(db.store[string(customerKey(1, 1, 1))], &c))
	assert.Equal(t, 1, c.PaymentCnt)
	assert.Less(t, c.Balance, -10.0)
	assert.Greater(t, c.YTDPayment, 0.0)

	var d district
	require.NoError(t, decode(db.store[string(districtKey(1, 1))], &d))
	assert.Greater(t, d.YTD, 0.0)
}

// paymentBodyForTest pins payment's random district/customer choice so the
// assertion above can check a known key.
func paymentBodyForTest(ctx context.Context, txn dbclient.Transaction, r *rand.Rand, wID, dID, cID int) error {
	amount := 1 + r.Float64()*4999

	var d district
	if err := getEntity(ctx, txn, districtKey(wID, dID), &d); err != nil {
		return err
	}
	d.YTD += amount
	txn.Set(ctx, districtKey(wID, dID), encode(d))

	var c customer
	cKey := customerKey(wID, dID, cID)
	if err := getEntity(ctx, txn, cKey, &c); err != nil {
		return err
	}
	c.Balance -= amount
	c.YTDPayment += amount
	c.PaymentCnt++
	txn.Set(ctx, cKey, encode(c))
	return nil
}
