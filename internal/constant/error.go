package constant

import (
	"errors"
	"fmt"
)

// Error 错误接口
type Error interface {
	error
	Code() int
	Message() string
	Data() interface{}
}

// FieldError 单个字段校验错误
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// CustomError 自定义错误实现
type CustomError struct {
	code    int
	message string
	data    interface{}
	cause   error
}

func (e *CustomError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("code: %d, message: %s, cause: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("code: %d, message: %s", e.code, e.message)
}

func (e *CustomError) Code() int {
	return e.code
}

func (e *CustomError) Message() string {
	return e.message
}

func (e *CustomError) Data() interface{} {
	return e.data
}

func (e *CustomError) Unwrap() error {
	return e.cause
}

// NewAuthError 验签失败，不区分签名错误与时间戳过期
func NewAuthError() Error {
	return &CustomError{code: CodeAuth, message: MsgSignatureInvalid}
}

func NewNotFound(message string) Error {
	return &CustomError{code: CodeNotFound, message: message}
}

func NewConflict() Error {
	return &CustomError{code: CodeConflict, message: MsgTradeNoExists}
}

func NewPolicyError() Error {
	return &CustomError{code: CodePolicy, message: MsgCannotDelete}
}

// NewValidationError 参数校验错误，fields 为空时仅返回描述
func NewValidationError(message string, fields ...FieldError) Error {
	e := &CustomError{code: CodeValidation, message: message}
	if len(fields) > 0 {
		e.data = fields
	}
	return e
}

// NewDomainMismatch 回调地址不属于商户登记域名
func NewDomainMismatch(domain string) Error {
	return &CustomError{code: CodeValidation, message: fmt.Sprintf(MsgDomainMismatch, domain)}
}

// NewInternal 包装系统错误，对外只暴露通用描述
func NewInternal(cause error) Error {
	return &CustomError{code: CodeInternal, message: ErrorMessages[CodeInternal].EN, cause: cause}
}

// CodeOf 提取错误码，非 constant.Error 视为系统错误
func CodeOf(err error) int {
	if err == nil {
		return CodeSuccess
	}
	var ce Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return CodeInternal
}

// AsError 转为 constant.Error，非 constant.Error 包装为系统错误
func AsError(err error) Error {
	if err == nil {
		return nil
	}
	var ce Error
	if errors.As(err, &ce) {
		return ce
	}
	return NewInternal(err)
}
