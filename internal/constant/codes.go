package constant

// 响应状态码，与 HTTP 状态码保持一致
const (
	CodeSuccess    = 0   // 成功
	CodeValidation = 400 // 参数校验失败或回调域名不属于商户
	CodeAuth       = 403 // 签名无效或时间戳过期
	CodeNotFound   = 404 // 商户/订单不存在，或 trade_no 不匹配
	CodePolicy     = 405 // 当前状态不允许删除
	CodeConflict   = 409 // trade_no 已存在
	CodeInternal   = 500 // 系统内部错误
)

// 固定提示信息
const (
	MsgSignatureInvalid = "Signature Invalid or timestamp expired"
	MsgTradeNoMismatch  = "trade_no not matched"
	MsgTradeNoExists    = "trade_no already exists"
	MsgCannotDelete     = "Cannot delete this order"
	MsgDomainMismatch   = "Your URL must belongs to domain \"%s\""
	MsgInvalidParams    = "The given data was invalid."
	MsgOrderNotFound    = "Order not found"
	MsgMerchantNotFound = "Merchant not found"
)
