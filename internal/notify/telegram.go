package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTelegramAPI = "https://api.telegram.org"

type TelegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
	Parse  string `json:"parse_mode"`
}

// Telegram 运维告警，BotToken 或 ChatID 为空时不发送
type Telegram struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client
	Log      *logrus.Logger
}

func (t *Telegram) Enabled() bool { return t != nil && t.BotToken != "" && t.ChatID != "" }

// Send 同步发送 Markdown 消息
func (t *Telegram) Send(ctx context.Context, content string) error {
	if !t.Enabled() {
		return nil
	}
	base := t.APIBase
	if base == "" {
		base = defaultTelegramAPI
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	body, _ := json.Marshal(TelegramMessage{ChatID: t.ChatID, Text: content, Parse: "MarkdownV2"})
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(base, "/"), t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, b)
	}
	return nil
}

// Alert 异步发送告警：标题 + 字段列表（按字段名排序）
func (t *Telegram) Alert(title string, fields map[string]string) {
	if !t.Enabled() {
		return
	}
	text := FormatAlert(title, fields)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.Send(ctx, text); err != nil {
			t.logger().WithError(err).Warn("Telegram 消息发送失败")
		}
	}()
}

func (t *Telegram) logger() *logrus.Logger {
	if t.Log != nil {
		return t.Log
	}
	return logrus.StandardLogger()
}

// FormatAlert 生成 MarkdownV2 告警正文
func FormatAlert(title string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("*" + escapeMarkdown(title) + "*\n")
	for _, k := range keys {
		if v := fields[k]; v != "" {
			sb.WriteString(escapeMarkdown(k) + ": " + escapeMarkdown(v) + "\n")
		}
	}
	return sb.String()
}

// escapeMarkdown 转义 Telegram Markdown V2 特殊字符
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
		"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
		"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(s)
}
