package constant

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	CN string `json:"cn"` // 中文错误信息
	EN string `json:"en"` // 英文错误信息
}

// ErrorMessages 错误信息映射
var ErrorMessages = map[int]ErrorInfo{
	CodeSuccess:    {"操作成功", ""},
	CodeValidation: {"参数校验失败", MsgInvalidParams},
	CodeAuth:       {"签名无效或时间戳过期", MsgSignatureInvalid},
	CodeNotFound:   {"记录不存在", "Not found"},
	CodePolicy:     {"当前订单状态不允许删除", MsgCannotDelete},
	CodeConflict:   {"订单号已存在", MsgTradeNoExists},
	CodeInternal:   {"系统错误", "Internal error"},
}
