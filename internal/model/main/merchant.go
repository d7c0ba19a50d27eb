package mainmodel

// MerchantStatusAlive 仅该状态的商户允许提交订单
const MerchantStatusAlive = "alive"

// Merchant 商户，由外部系统维护，这里只读
type Merchant struct {
	ID     uint64 `gorm:"column:id;primaryKey" json:"id"`
	Name   string `gorm:"column:name" json:"name"`
	PubKey string `gorm:"column:pubkey;type:text" json:"pubkey"`
	Domain string `gorm:"column:domain" json:"domain"`
	Status string `gorm:"column:status" json:"status"`
}

func (Merchant) TableName() string { return "merchandisers" }

func (m *Merchant) Alive() bool { return m != nil && m.Status == MerchantStatusAlive }
