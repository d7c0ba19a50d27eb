package middleware

import (
	"bytes"
	"io"
	"mime"
	"net/url"

	"github.com/gin-gonic/gin"

	"merchant-order-api/internal/constant"
	"merchant-order-api/internal/signature"
	"merchant-order-api/internal/utils"
)

const payloadCtxKey = "signed_payload"

// maxMultipartMemory multipart 表单内存上限
const maxMultipartMemory = 8 << 20

// SignedPayload 合并 query 与 body（JSON 或表单）为有序字段表，body 覆盖 query
func SignedPayload() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := signature.FromValues(c.Request.URL.Query())

		body, err := readBody(c)
		if err != nil {
			utils.Fail(c, constant.NewValidationError(constant.MsgInvalidParams,
				constant.FieldError{Field: "body", Error: err.Error()}))
			return
		}
		c.Set(payloadCtxKey, signature.Merge(query, body))
		c.Next()
	}
}

// PayloadFrom handler 中取请求字段
func PayloadFrom(c *gin.Context) *signature.Payload {
	if v, ok := c.Get(payloadCtxKey); ok {
		if p, ok := v.(*signature.Payload); ok {
			return p
		}
	}
	return signature.NewPayload()
}

func readBody(c *gin.Context) (*signature.Payload, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch mediaType {
	case gin.MIMEJSON, "":
		return signature.ParseJSON(raw)
	case gin.MIMEPOSTForm:
		vals, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, err
		}
		return signature.FromValues(vals), nil
	case gin.MIMEMultipartPOSTForm:
		if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, err
		}
		return signature.FromValues(url.Values(c.Request.MultipartForm.Value)), nil
	}
	return nil, nil
}
