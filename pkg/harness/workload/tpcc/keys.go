package tpcc

import (
	"encoding/json"
	"fmt"
)

// Key layout: fixed-width decimal segments keep lexicographic byte order
// equal to numeric order, which newOrderDistrictRange and stockLevel's order-line
// scan both rely on.

func warehouseKey(wID int) []byte {
	return []byte(fmt.Sprintf("/TPCC/warehouse/%05d", wID))
}

func districtKey(wID, dID int) []byte {
	return []byte(fmt.Sprintf("/TPCC/district/%05d/%02d", wID, dID))
}

func customerKey(wID, dID, cID int) []byte {
	return []byte(fmt.Sprintf("/TPCC/customer/%05d/%02d/%05d", wID, dID, cID))
}

func orderKey(wID, dID, oID int) []byte {
	return []byte(fmt.Sprintf("/TPCC/order/%05d/%02d/%010d", wID, dID, oID))
}

func orderLineKey(wID, dID, oID, olNum int) []byte {
	return []byte(fmt.Sprintf("/TPCC/orderline/%05d/%02d/%010d/%02d", wID, dID, oID, olNum))
}

func orderLineRangePrefix(wID, dID, oID int) []byte {
	return []byte(fmt.Sprintf("/TPCC/orderline/%05d/%02d/%010d/", wID, dID, oID))
}

func newOrderKey(wID, dID, oID int) []byte {
	return []byte(fmt.Sprintf("/TPCC/neworder/%05d/%02d/%010d", wID, dID, oID))
}

// newOrderDistrictRange returns the [begin,end) range covering every pending
// new-order row for one district, used by delivery to find the oldest one.
func newOrderDistrictRange(wID, dID int) ([]byte, []byte) {
	begin := []byte(fmt.Sprintf("/TPCC/neworder/%05d/%02d/", wID, dID))
	end := []byte(fmt.Sprintf("/TPCC/neworder/%05d/%02d0", wID, dID))
	return begin, end
}

func stockKey(wID, iID int) []byte {
	return []byte(fmt.Sprintf("/TPCC/stock/%05d/%06d", wID, iID))
}

func itemKey(iID int) []byte {
	return []byte(fmt.Sprintf("/TPCC/item/%06d", iID))
}

func encode(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("tpcc: unencodable entity: " + err.Error())
	}
	return b
}

func decode(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

// parseOrderIDFromNewOrderKey extracts the order ID segment a newOrder key
// encodes, used by delivery once it has located the oldest pending row.
func parseOrderIDFromNewOrderKey(key []byte) (int, error) {
	var wID, dID, oID int
	_, err := fmt.Sscanf(string(key), "/TPCC/neworder/%05d/%02d/%010d", &wID, &dID, &oID)
	return oID, err
}
