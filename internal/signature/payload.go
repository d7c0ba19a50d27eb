package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Payload 有序的请求字段集合，保留首次插入顺序
type Payload struct {
	keys   []string
	values map[string]any
}

// NewPayload 创建空 Payload
func NewPayload() *Payload {
	return &Payload{values: make(map[string]any)}
}

// Set 设置字段，已存在的字段保持原位置
func (p *Payload) Set(key string, value any) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *Payload) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p *Payload) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Delete 删除字段
func (p *Payload) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys 按插入顺序返回字段名（副本）
func (p *Payload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Payload) Len() int { return len(p.keys) }

// String 按字段名取字符串值，不存在或为 nil 时返回空串
func (p *Payload) String(key string) string {
	v, ok := p.values[key]
	if !ok || v == nil {
		return ""
	}
	return scalarString(v)
}

// Merge 合并多个来源，后者覆盖前者
func Merge(sources ...*Payload) *Payload {
	out := NewPayload()
	for _, s := range sources {
		if s == nil {
			continue
		}
		for _, k := range s.keys {
			out.Set(k, s.values[k])
		}
	}
	return out
}

// FromValues 由 query / form 参数构造
// 支持 a[]=1&a[]=2 与 a[b]=1 形式的嵌套字段
func FromValues(vals url.Values) *Payload {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	// url.Values 无序，按字段名固定一个顺序
	sort.Strings(keys)

	p := NewPayload()
	for _, k := range keys {
		path := splitFormKey(k)
		for _, v := range vals[k] {
			if len(path) == 1 {
				p.Set(path[0], v)
				continue
			}
			cur, _ := p.Get(path[0])
			p.Set(path[0], assignPath(cur, path[1:], v))
		}
	}
	return p
}

// splitFormKey a[b][] -> [a b ""]
func splitFormKey(key string) []string {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}
	path := []string{key[:i]}
	rest := key[i:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return []string{key}
		}
		j := strings.IndexByte(rest, ']')
		if j < 0 {
			return []string{key}
		}
		path = append(path, rest[1:j])
		rest = rest[j+1:]
	}
	return path
}

func assignPath(cur any, path []string, v string) any {
	if len(path) == 0 {
		return v
	}
	seg := path[0]
	if seg == "" {
		list, _ := cur.([]any)
		return append(list, assignPath(nil, path[1:], v))
	}
	m, ok := cur.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	m[seg] = assignPath(m[seg], path[1:], v)
	return m
}

// ParseJSON 解析 JSON 对象，保持字段出现顺序，数字以 json.Number 保存
func ParseJSON(data []byte) (*Payload, error) {
	p := NewPayload()
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read payload key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected payload key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("read payload value %q: %w", key, err)
		}
		p.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read payload end: %w", err)
	}
	return p, nil
}

// MarshalJSON 按插入顺序输出
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
