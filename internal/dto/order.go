package dto

import (
	"time"

	"gorm.io/datatypes"

	"merchant-order-api/internal/order"
)

// SubmitOrderReq 提交订单参数，由签名请求字段填充后校验
type SubmitOrderReq struct {
	MerchandiserID string `json:"merchandiser_id" validate:"required,number"`
	TradeNo        string `json:"trade_no" validate:"required,max=255"`
	Subject        string `json:"subject" validate:"required,max=255"`
	Amount         string `json:"amount" validate:"required,numeric"`
	ReturnURL      string `json:"returnUrl" validate:"required,url"`
	NotifyURL      string `json:"notifyUrl" validate:"required,url"`
	Items          any    `json:"items"`
}

// OrderVO 订单快照
type OrderVO struct {
	ID         uint64          `json:"id"`
	MerchantID uint64          `json:"merchandiser_id"`
	TradeNo    string          `json:"trade_no"`
	Subject    string          `json:"subject"`
	Amount     string          `json:"amount"`
	Items      datatypes.JSON  `json:"items"`
	ReturnURL  string          `json:"returnUrl"`
	NotifyURL  string          `json:"notifyUrl"`
	Status     order.Status    `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
