package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"merchant-order-api/internal/constant"
)

// Response 统一响应格式，status 与 HTTP 状态码一致（成功为 0 / 200）
type Response struct {
	Data    interface{}           `json:"data"`
	Message string                `json:"message"`
	Status  int                   `json:"status"`
	Errors  []constant.FieldError `json:"errors,omitempty"`
}

// Success 成功响应
func Success(data interface{}) Response {
	return Response{Data: data, Message: "", Status: constant.CodeSuccess}
}

// Error 错误响应，data 恒为 null；参数校验错误附带字段明细
func Error(err error) Response {
	ce := constant.AsError(err)
	resp := Response{Message: ce.Message(), Status: ce.Code()}
	if fields, ok := ce.Data().([]constant.FieldError); ok {
		resp.Errors = fields
	}
	return resp
}

// HTTPStatus envelope status 映射到 HTTP 状态码
func HTTPStatus(status int) int {
	if status == constant.CodeSuccess {
		return http.StatusOK
	}
	if http.StatusText(status) == "" {
		return http.StatusInternalServerError
	}
	return status
}

// Write 输出响应
func Write(c *gin.Context, resp Response) {
	c.JSON(HTTPStatus(resp.Status), resp)
}

// Fail 输出错误响应并中止后续 handler
func Fail(c *gin.Context, err error) {
	resp := Error(err)
	c.AbortWithStatusJSON(HTTPStatus(resp.Status), resp)
}
