package tpcc

// The entity schema below is deliberately simplified: fields are limited to
// what the five transaction bodies actually read or mutate, and keys are
// opaque byte strings private to this package rather than a byte-for-byte
// reproduction of the original row layout (see DESIGN.md's C8 entry).

// warehouse holds the one tax-rate field any transaction reads.
type warehouse struct {
	Tax float64 `json:"tax"`
}

// district tracks its tax rate and the next order ID to assign.
type district struct {
	Tax      float64 `json:"tax"`
	NextOID  int     `json:"nextOID"`
	YTD      float64 `json:"ytd"`
}

// customer carries the balance and history fields payment/orderStatus touch.
type customer struct {
	CLast       string  `json:"cLast"`
	Credit      string  `json:"credit"`
	Balance     float64 `json:"balance"`
	YTDPayment  float64 `json:"ytdPayment"`
	PaymentCnt  int     `json:"paymentCnt"`
	DeliveryCnt int     `json:"deliveryCnt"`
}

// order is the header row newOrder creates and delivery later updates with a
// carrier assignment.
type order struct {
	CID       int   `json:"cID"`
	EntryD    int64 `json:"entryD"`
	CarrierID int   `json:"carrierID"`
	OLCnt     int   `json:"olCnt"`
	AllLocal  bool  `json:"allLocal"`
}

// orderLine is one line item on an order.
type orderLine struct {
	IID       int     `json:"iID"`
	SupplyWID int     `json:"supplyWID"`
	Qty       int     `json:"qty"`
	Amount    float64 `json:"amount"`
}

// stock is one item's per-warehouse inventory row.
type stock struct {
	Quantity  int `json:"quantity"`
	YTD       int `json:"ytd"`
	OrderCnt  int `json:"orderCnt"`
	RemoteCnt int `json:"remoteCnt"`
}

// item is read-only reference data: price and name.
type item struct {
	Price float64 `json:"price"`
	Name  string  `json:"name"`
}
