package tpcc

import (
	"sync"
	"time"

	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
)

// txCounter is the successful/failed count plus latency reservoir for one
// transaction type, mirroring TPCCMetrics's per-type fields in the original.
type txCounter struct {
	mu         sync.Mutex
	successful int64
	failed     int64
	latencies  *metrics.Reservoir
}

func newTxCounter() *txCounter {
	return &txCounter{latencies: metrics.NewReservoir(reservoirCapacity, nil)}
}

// record updates the counter and, if committed, the latency reservoir.
// Latency is in milliseconds, matching the original's response-time unit.
func (c *txCounter) record(committed bool, latencyMS float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if committed {
		c.successful++
		c.latencies.Observe(latencyMS)
	} else {
		c.failed++
	}
}

func (c *txCounter) snapshot() (successful, failed int64, median, p90, p99 float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.successful, c.failed, c.latencies.Median(), c.latencies.P90(), c.latencies.P99()
}

// txMetrics is the full set of TPC-C's five transaction-type counters plus
// the one extra metric surfaced for the stockLevel Open Question decision
// (see DESIGN.md).
type txMetrics struct {
	newOrder    *txCounter
	payment     *txCounter
	orderStatus *txCounter
	delivery    *txCounter
	stockLevel  *txCounter

	lowStockObservedMu sync.Mutex
	lowStockObserved   int64
}

func newTxMetrics() *txMetrics {
	return &txMetrics{
		newOrder:    newTxCounter(),
		payment:     newTxCounter(),
		orderStatus: newTxCounter(),
		delivery:    newTxCounter(),
		stockLevel:  newTxCounter(),
	}
}

func (m *txMetrics) observeLowStock(n int64) {
	m.lowStockObservedMu.Lock()
	m.lowStockObserved += n
	m.lowStockObservedMu.Unlock()
}

func since(start time.Time) float64 {
	return float64(time.Since(start).Milliseconds())
}

// perfMetrics renders the counters as PerfMetric values, scaled by
// multiplier — the controller-aggregation correction the original applies so
// a client-process count that doesn't evenly divide the tester count still
// sums to the right run-wide total.
func (m *txMetrics) perfMetrics(multiplier float64) []metrics.PerfMetric {
	row := func(name string, c *txCounter) []metrics.PerfMetric {
		successful, failed, median, p90, p99 := c.snapshot()
		return []metrics.PerfMetric{
			{Name: name + " Successful", Value: float64(successful) * multiplier},
			{Name: name + " Failed", Value: float64(failed) * multiplier},
			{Name: name + " Latency Median (ms)", Value: median, Averaged: true, FormatCode: "%.2f"},
			{Name: name + " Latency P90 (ms)", Value: p90, Averaged: true, FormatCode: "%.2f"},
			{Name: name + " Latency P99 (ms)", Value: p99, Averaged: true, FormatCode: "%.2f"},
		}
	}

	var out []metrics.PerfMetric
	out = append(out, row("NewOrder", m.newOrder)...)
	out = append(out, row("Payment", m.payment)...)
	out = append(out, row("OrderStatus", m.orderStatus)...)
	out = append(out, row("Delivery", m.delivery)...)
	out = append(out, row("StockLevel", m.stockLevel)...)

	m.lowStockObservedMu.Lock()
	low := m.lowStockObserved
	m.lowStockObservedMu.Unlock()
	out = append(out, metrics.PerfMetric{Name: "Low Stock Items Observed", Value: float64(low) * multiplier})

	return out
}

func (m *txMetrics) successfulNewOrderTransactions() int64 {
	m.newOrder.mu.Lock()
	defer m.newOrder.mu.Unlock()
	return m.newOrder.successful
}
