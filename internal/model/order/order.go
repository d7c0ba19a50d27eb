package ordermodel

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"merchant-order-api/internal/order"
)

// AmountScale 金额小数位，与 amount 列 decimal(20,2) 一致
const AmountScale = 2

// Order 商户订单，(merchandiser_id, trade_no) 唯一
type Order struct {
	ID         uint64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	MerchantID uint64          `gorm:"column:merchandiser_id;not null;uniqueIndex:uk_merchant_trade_no,priority:1"`
	TradeNo    string          `gorm:"column:trade_no;type:varchar(255);not null;uniqueIndex:uk_merchant_trade_no,priority:2"`
	Subject    string          `gorm:"column:subject;type:varchar(255);not null"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null"`
	Items      datatypes.JSON  `gorm:"column:items;type:json"`
	ReturnURL  string          `gorm:"column:return_url;type:varchar(1024);not null"`
	NotifyURL  string          `gorm:"column:notify_url;type:varchar(1024);not null"`
	Status     order.Status    `gorm:"column:status;type:varchar(16);not null;default:'pending';index:idx_status"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

func (Order) TableName() string { return "orders" }

// AmountString 按列精度输出金额，保留末尾的 0
func (o *Order) AmountString() string { return o.Amount.StringFixed(AmountScale) }
