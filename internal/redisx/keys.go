package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{Idempotency-Key} -> response body
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Idempotency pay order: idem:order:pay:{order_id}:{Idempotency-Key} -> response body
	KeyIdemOrderPay = "idem:order:pay:%s:%s"

	// Cache status order: order_status:{order_id} -> {"orderId": "...", "paymentStatus": "...", ...}
	KeyOrderStatus = "order_status:%s"

	// Dedup history processing: dedup:{service}:{entry_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour

	// bounds how long a crashed request blocks retries of its key
	TTLIdempotencyPending = 30 * time.Second
)
