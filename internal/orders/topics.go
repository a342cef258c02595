package orders

const (
	TopicOrderCreated     = "pos.order.created"
	TopicOrderItemAdded   = "pos.order.item_added"
	TopicOrderItemRemoved = "pos.order.item_removed"
	TopicOrderPaid        = "pos.order.paid"
	TopicOrderDeleted     = "pos.order.deleted"
	TopicOrderReady       = "pos.order.ready"
)

// Partition key = order_id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
