package tpcc

import (
	"context"
	"math/rand"
	"time"

	"github.com/dbtestharness/dbtestharness/pkg/harness/dbclient"
	"github.com/dbtestharness/dbtestharness/pkg/harness/harnesserr"
)

// runTxn begins a transaction, runs body, and commits, retrying through
// db.OnError on any failure until body succeeds, ctx is cancelled, or
// OnError decides the failure is not retryable. This is the one retry loop
// every transaction body below shares, matching the original's onError-driven
// transaction wrapper.
func runTxn(ctx context.Context, db dbclient.Database, body func(ctx context.Context, txn dbclient.Transaction) error) error {
	for {
		txn, err := db.Begin(ctx)
		if err == nil {
			err = body(ctx, txn)
			if err == nil {
				err = txn.Commit(ctx)
			}
		}
		if err == nil {
			return nil
		}
		if harnesserr.IsCancelled(err) {
			return err
		}
		if onErr := db.OnError(ctx, err); onErr != nil {
			return onErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// warehouseDistrictCount is the fixed number of districts per warehouse the
// TPC-C schema defines.
const warehouseDistrictCount = districtsPerWarehouse

// newOrder enters a new order for a random district and customer of
// warehouse wID, decrementing stock for each order line and choosing a
// remote supplying warehouse with probability remoteProbability%.
func newOrder(ctx context.Context, db dbclient.Database, r *rand.Rand, wID, remoteProbability, warehousesNum int) error {
	dID := 1 + r.Intn(warehouseDistrictCount)
	cID := pickCustomerID(r)
	olCnt := 5 + r.Intn(11)

	return runTxn(ctx, db, func(ctx context.Context, txn dbclient.Transaction) error {
		var wh warehouse
		if err := getEntity(ctx, txn, warehouseKey(wID), &wh); err != nil {
			return err
		}
		var d district
		if err := getEntity(ctx, txn, districtKey(wID, dID), &d); err != nil {
			return err
		}
		var c customer
		if err := getEntity(ctx, txn, customerKey(wID, dID, cID), &c); err != nil {
			return err
		}

		oID := d.NextOID
		d.NextOID++
		txn.Set(ctx, districtKey(wID, dID), encode(d))

		allLocal := true
		for i := 0; i < olCnt; i++ {
			iID := pickItemID(r)
			supplyWID := wID
			if warehousesNum > 1 && r.Intn(100) < remoteProbability {
				for supplyWID == wID {
					supplyWID = 1 + r.Intn(warehousesNum)
				}
				allLocal = false
			}

			var it item
			if err := getEntity(ctx, txn, itemKey(iID), &it); err != nil {
				return err
			}

			var st stock
			stKey := stockKey(supplyWID, iID)
			if err := getEntity(ctx, txn, stKey, &st); err != nil {
				return err
			}
			qty := 1 + r.Intn(10)
			if st.Quantity-qty < 10 {
				st.Quantity = st.Quantity - qty + 91
			} else {
				st.Quantity -= qty
			}
			st.YTD += qty
			st.OrderCnt++
			if supplyWID != wID {
				st.RemoteCnt++
			}
			txn.Set(ctx, stKey, encode(st))

			line := orderLine{IID: iID, SupplyWID: supplyWID, Qty: qty, Amount: it.Price * float64(qty)}
			txn.Set(ctx, orderLineKey(wID, dID, oID, i), encode(line))
		}

		txn.Set(ctx, orderKey(wID, dID, oID), encode(order{
			CID:       cID,
			EntryD:    time.Now().Unix(),
			CarrierID: 0,
			OLCnt:     olCnt,
			AllLocal:  allLocal,
		}))
		txn.Set(ctx, newOrderKey(wID, dID, oID), []byte{1})
		return nil
	})
}

// payment applies a random payment against a random district/customer of
// warehouse wID.
func payment(ctx context.Context, db dbclient.Database, r *rand.Rand, wID int) error {
	dID := 1 + r.Intn(warehouseDistrictCount)
	cID := pickCustomerID(r)
	amount := 1 + r.Float64()*4999

	return runTxn(ctx, db, func(ctx context.Context, txn dbclient.Transaction) error {
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
	})
}

// orderStatus reads a random customer's row and the most recently placed
// order of that customer's district, with its order lines. The order read is
// the district's latest, which need not belong to that customer.
func orderStatus(ctx context.Context, db dbclient.Database, r *rand.Rand, wID int) error {
	dID := 1 + r.Intn(warehouseDistrictCount)
	cID := pickCustomerID(r)

	return runTxn(ctx, db, func(ctx context.Context, txn dbclient.Transaction) error {
		var c customer
		if err := getEntity(ctx, txn, customerKey(wID, dID, cID), &c); err != nil {
			return err
		}
		var d district
		if err := getEntity(ctx, txn, districtKey(wID, dID), &d); err != nil {
			return err
		}
		if d.NextOID <= 1 {
			return nil // district has never placed an order yet.
		}
		lastOID := d.NextOID - 1
		var o order
		if err := getEntity(ctx, txn, orderKey(wID, dID, lastOID), &o); err != nil {
			return err
		}
		rows, err := txn.GetRange(ctx, orderLineRangePrefix(wID, dID, lastOID), rangeUpperBound(orderLineRangePrefix(wID, dID, lastOID)))
		if err != nil {
			return err
		}
		_ = rows // order lines are read to match the original's "fetch and discard" status query, nothing to aggregate.
		return nil
	})
}

// delivery processes the oldest pending new order for every district of
// warehouse wID in a single transaction, mirroring the original's
// batch-delivery transaction.
func delivery(ctx context.Context, db dbclient.Database, r *rand.Rand, wID int) error {
	carrierID := 1 + r.Intn(10)

	return runTxn(ctx, db, func(ctx context.Context, txn dbclient.Transaction) error {
		for dID := 1; dID <= warehouseDistrictCount; dID++ {
			begin, end := newOrderDistrictRange(wID, dID)
			rows, err := txn.GetRange(ctx, begin, end)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				continue
			}
			oID, err := parseOrderIDFromNewOrderKey(rows[0].Key)
			if err != nil {
				return err
			}
			txn.Clear(ctx, rows[0].Key)

			var o order
			oKey := orderKey(wID, dID, oID)
			if err := getEntity(ctx, txn, oKey, &o); err != nil {
				return err
			}
			o.CarrierID = carrierID
			txn.Set(ctx, oKey, encode(o))

			lines, err := txn.GetRange(ctx, orderLineRangePrefix(wID, dID, oID), rangeUpperBound(orderLineRangePrefix(wID, dID, oID)))
			if err != nil {
				return err
			}
			var total float64
			for _, kv := range lines {
				var line orderLine
				if err := decode(kv.Value, &line); err != nil {
					return err
				}
				total += line.Amount
			}

			var c customer
			cKey := customerKey(wID, dID, o.CID)
			if err := getEntity(ctx, txn, cKey, &c); err != nil {
				return err
			}
			c.Balance += total
			c.DeliveryCnt++
			txn.Set(ctx, cKey, encode(c))
		}
		return nil
	})
}

// stockLevel counts how many of the items ordered in a district's most
// recent 20 orders have fallen below a random reorder threshold.
func stockLevel(ctx context.Context, db dbclient.Database, r *rand.Rand, wID int, m *txMetrics) error {
	dID := 1 + r.Intn(warehouseDistrictCount)
	threshold := 10 + r.Intn(11)

	return runTxn(ctx, db, func(ctx context.Context, txn dbclient.Transaction) error {
		var d district
		if err := getEntity(ctx, txn, districtKey(wID, dID), &d); err != nil {
			return err
		}

		lowStock := int64(0)
		seen := map[int]bool{}
		lastOID := d.NextOID - 1
		for oID := lastOID; oID > 0 && oID > lastOID-20; oID-- {
			lines, err := txn.GetRange(ctx, orderLineRangePrefix(wID, dID, oID), rangeUpperBound(orderLineRangePrefix(wID, dID, oID)))
			if err != nil {
				return err
			}
			for _, kv := range lines {
				var line orderLine
				if err := decode(kv.Value, &line); err != nil {
					return err
				}
				if seen[line.IID] {
					continue
				}
				seen[line.IID] = true
				var st stock
				if err := getEntity(ctx, txn, stockKey(wID, line.IID), &st); err != nil {
					return err
				}
				if st.Quantity < threshold {
					lowStock++
				}
			}
		}
		m.observeLowStock(lowStock)
		return nil
	})
}

func getEntity(ctx context.Context, txn dbclient.Transaction, key []byte, v interface{}) error {
	raw, err := txn.Get(ctx, key)
	if err != nil {
		return err
	}
	if raw == nil {
		return harnesserr.Failed(nil, "tpcc: missing key during load; Setup must run before Start")
	}
	return decode(raw, v)
}

// rangeUpperBound returns prefix followed by 0xFF, which sorts after every
// key in this package that starts with prefix (those keys are ASCII), giving
// GetRange a [prefix, end) bound for a prefix scan.
func rangeUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	end = append(end, 0xFF)
	return end
}
