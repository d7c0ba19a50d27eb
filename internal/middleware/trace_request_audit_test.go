package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-order-api/internal/dto"
)

type recordWriter struct {
	got []*dto.AuditContextPayload
}

func (r *recordWriter) Write(p *dto.AuditContextPayload) { r.got = append(r.got, p) }

func TestTraceAudit_KeepsIncomingTraceID(t *testing.T) {
	rw := &recordWriter{}
	r := gin.New()
	r.POST("/x", TraceAudit(rw, "fetch"), func(c *gin.Context) {
		AuditFromGin(c).MerchantID = 7
		assert.Same(t, AuditFromGin(c), dto.AuditFrom(c.Request.Context()))
		c.String(http.StatusTeapot, "short and stout")
	})

	req := httptest.NewRequest(http.MethodPost, "/x?sign=s", strings.NewReader(`{"a":1}`))
	req.Header.Set(TraceHeader, "trace-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-1", w.Header().Get(TraceHeader))
	require.Len(t, rw.got, 1)
	rec := rw.got[0]
	assert.Equal(t, "trace-1", rec.TraceID)
	assert.Equal(t, "fetch", rec.Operation)
	assert.Equal(t, uint64(7), rec.MerchantID)
	assert.Equal(t, http.StatusTeapot, rec.Status)
	assert.Equal(t, "sign=s\n{\"a\":1}", rec.RequestBody)
	assert.Equal(t, "short and stout", rec.ResponseBody)
}

func TestTraceAudit_TruncatesBody(t *testing.T) {
	rw := &recordWriter{}
	r := gin.New()
	r.POST("/x", TraceAudit(rw, "submit"), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", maxAuditBody+100)))
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, rw.got, 1)
	assert.NotEmpty(t, rw.got[0].TraceID)
	assert.Len(t, rw.got[0].RequestBody, maxAuditBody)
}

func TestAuditFromGin_Outside(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotNil(t, AuditFromGin(c))
}
