package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAlert_EscapesAndSorts(t *testing.T) {
	got := FormatAlert("notify failed", map[string]string{
		"trade_no": "T-1.2",
		"order_id": "42",
		"empty":    "",
	})
	assert.Equal(t, "*notify failed*\norder\\_id: 42\ntrade\\_no: T\\-1\\.2\n", got)
}

func TestTelegram_Send(t *testing.T) {
	var got TelegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	tg := &Telegram{BotToken: "tok", ChatID: "-100", APIBase: srv.URL}
	require.NoError(t, tg.Send(context.Background(), "hello"))
	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "hello", got.Text)
}

func TestTelegram_DisabledIsNoop(t *testing.T) {
	var tg *Telegram
	assert.False(t, tg.Enabled())
	assert.NoError(t, (&Telegram{}).Send(context.Background(), "x"))
}
