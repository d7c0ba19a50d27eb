package signature

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// 协议字段
const (
	FieldSign      = "sign"
	FieldTimestamp = "timestamp"
	FieldItems     = "items"
)

// DefaultExcludedFields 不参与签名串的字段。
// timestamp 不在其中，它是签名内容的一部分。
var DefaultExcludedFields = []string{FieldSign, FieldItems}

// Canonicalize 生成待签名串：剔除 excluded 字段，按字段名字节序升序，
// 以 k1=v1&k2=v2 形式拼接，键和值均按 URL query 规则编码。
// 空字符串保留为 k=，nil 值不输出。
func Canonicalize(p *Payload, excluded []string) string {
	if p == nil {
		return ""
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, f := range excluded {
		skip[f] = struct{}{}
	}

	keys := make([]string, 0, p.Len())
	for _, k := range p.keys {
		if _, ok := skip[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = appendPairs(pairs, url.QueryEscape(k), p.values[k])
	}
	return strings.Join(pairs, "&")
}

// appendPairs 展开单个字段，嵌套结构输出为 k[sub]=v
func appendPairs(pairs []string, prefix string, v any) []string {
	switch t := v.(type) {
	case nil:
		return pairs
	case map[string]any:
		subs := make([]string, 0, len(t))
		for k := range t {
			subs = append(subs, k)
		}
		sort.Strings(subs)
		for _, k := range subs {
			pairs = appendPairs(pairs, prefix+url.QueryEscape("["+k+"]"), t[k])
		}
		return pairs
	case []any:
		for i, item := range t {
			pairs = appendPairs(pairs, prefix+url.QueryEscape("["+strconv.Itoa(i)+"]"), item)
		}
		return pairs
	case []string:
		for i, item := range t {
			pairs = appendPairs(pairs, prefix+url.QueryEscape("["+strconv.Itoa(i)+"]"), item)
		}
		return pairs
	case *Payload:
		// 嵌套 Payload 同样按字段名排序
		return appendPairs(pairs, prefix, t.asMap())
	default:
		return append(pairs, prefix+"="+url.QueryEscape(scalarString(t)))
	}
}

func (p *Payload) asMap() map[string]any {
	m := make(map[string]any, len(p.values))
	for k, v := range p.values {
		m[k] = v
	}
	return m
}

// scalarString 标量值的文本形式，布尔值按 1/0 输出
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
