package orders

import "strconv"

const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status.changed"
	TopicProductStockLow    = "product.stock.low"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

func ProductPartitionKey(productID int64) []byte {
	return []byte(strconv.FormatInt(productID, 10))
}
