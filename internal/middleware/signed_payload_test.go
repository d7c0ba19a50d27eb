package middleware

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-order-api/internal/signature"
)

func init() { gin.SetMode(gin.TestMode) }

func capture(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *signature.Payload, string) {
	t.Helper()
	var (
		got  *signature.Payload
		body string
	)
	r := gin.New()
	r.POST("/p", SignedPayload(), func(c *gin.Context) {
		got = PayloadFrom(c)
		raw, _ := io.ReadAll(c.Request.Body)
		body = string(raw)
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, got, body
}

func TestSignedPayload_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("trade_no", "T-9"))
	require.NoError(t, mw.WriteField("items[0][sku]", "A1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/p?trade_no=q&timestamp=5", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w, p, _ := capture(t, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, p)
	assert.Equal(t, "T-9", p.String("trade_no"))
	assert.Equal(t, "5", p.String("timestamp"))
	assert.True(t, p.Has("items"))
}

func TestSignedPayload_BodyRestored(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	_, p, body := capture(t, req)
	assert.Equal(t, "1", p.String("a"))
	assert.Equal(t, `{"a":1}`, body)
}

func TestSignedPayload_UnknownContentTypeUsesQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/p?sign=s", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "text/plain")

	w, p, _ := capture(t, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"sign"}, p.Keys())
}

func TestPayloadFrom_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	p := PayloadFrom(c)
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Len())
}
