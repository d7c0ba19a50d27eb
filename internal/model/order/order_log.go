package ordermodel

import "time"

// OrderRequestLog 接口请求审计日志
type OrderRequestLog struct {
	ID           uint64    `gorm:"primaryKey"`
	OrderID      uint64    `gorm:"column:order_id;index"`
	MerchantID   uint64    `gorm:"column:merchandiser_id"`
	TradeNo      string    `gorm:"column:trade_no"`
	Operation    string    `gorm:"column:operation"`
	TraceID      string    `gorm:"column:trace_id;index"`
	RequestBody  string    `gorm:"column:request_body;type:text"`
	ResponseBody string    `gorm:"column:response_body;type:text"`
	Status       int       `gorm:"column:status"`
	VerifyCause  string    `gorm:"column:verify_cause"`
	ErrorMsg     string    `gorm:"column:error_msg"`
	IP           string    `gorm:"column:ip"`
	UserAgent    string    `gorm:"column:user_agent"`
	LatencyMs    int64     `gorm:"column:latency_ms"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (OrderRequestLog) TableName() string { return "order_request_log" }
