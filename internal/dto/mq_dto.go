package dto

// 订单事件路由键
const (
	EventOrderCreated   = "order.created"
	EventOrderUpdated   = "order.updated"
	EventOrderCompleted = "order.completed"
	EventOrderRemoved   = "order.removed"
)

// OrderEventMQ 订单事件消息
type OrderEventMQ struct {
	Event      string `json:"event"`
	OrderID    uint64 `json:"order_id"`
	MerchantID uint64 `json:"merchandiser_id"`
	TradeNo    string `json:"trade_no"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
	NotifyURL  string `json:"notify_url"`
	OccurredAt int64  `json:"occurred_at"`
	RetryCount int    `json:"retry_count"`
}
