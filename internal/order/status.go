package order

// Status 订单状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// Mutable 提交时允许覆盖订单内容，仅 pending
func (s Status) Mutable() bool {
	return s == StatusPending
}

// Deletable 允许物理删除，仅 refunded / cancelled
func (s Status) Deletable() bool {
	return s == StatusRefunded || s == StatusCancelled
}

func (s Status) String() string { return string(s) }
