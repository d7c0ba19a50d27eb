package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow 请求时间戳的有效期
const DefaultWindow = 60 * time.Second

// Cause 验签失败原因，仅用于日志，对外统一为验签失败
type Cause int

const (
	CauseNone         Cause = iota
	CauseMissingSign        // sign 缺失或为空
	CauseBadTimestamp       // timestamp 缺失、非数字或已过期
	CauseMalformed          // 签名非 base64、公钥无法解析
	CauseCrypto             // 密钥类型不支持或加密库异常
	CauseMismatch           // 签名与内容不匹配
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "ok"
	case CauseMissingSign:
		return "missing_sign"
	case CauseBadTimestamp:
		return "bad_timestamp"
	case CauseMalformed:
		return "malformed"
	case CauseCrypto:
		return "crypto_failure"
	case CauseMismatch:
		return "mismatch"
	}
	return "unknown"
}

// Verdict 验签结果
type Verdict struct {
	Cause Cause
	Err   error
}

func (v Verdict) OK() bool { return v.Cause == CauseNone }

func (v Verdict) String() string {
	if v.Err != nil {
		return v.Cause.String() + ": " + v.Err.Error()
	}
	return v.Cause.String()
}

func fail(c Cause, err error) Verdict { return Verdict{Cause: c, Err: err} }

// Codec 签名编解码器
type Codec struct {
	Excluded []string
	Window   time.Duration
	Now      func() time.Time
}

type Option func(*Codec)

// WithExcluded 覆盖不参与签名的字段
func WithExcluded(fields ...string) Option {
	return func(c *Codec) {
		c.Excluded = append([]string(nil), fields...)
	}
}

func WithWindow(d time.Duration) Option {
	return func(c *Codec) { c.Window = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.Now = now }
}

func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		Excluded: append([]string(nil), DefaultExcludedFields...),
		Window:   DefaultWindow,
		Now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Canonical 按当前排除字段生成待签名串
func (c *Codec) Canonical(p *Payload) string {
	return Canonicalize(p, c.Excluded)
}

// Sign 对 payload 签名并返回 base64 结果
func (c *Codec) Sign(p *Payload, key crypto.Signer) (string, error) {
	msg := []byte(c.Canonical(p))
	digest := sha256.Sum256(msg)

	var (
		sig []byte
		err error
	)
	switch k := key.(type) {
	case *rsa.PrivateKey:
		sig, err = rsa.SignPKCS1v15(rand.Reader, k, crypto.SHA256, digest[:])
	case *ecdsa.PrivateKey:
		sig, err = ecdsa.SignASN1(rand.Reader, k, digest[:])
	case ed25519.PrivateKey:
		sig = ed25519.Sign(k, msg)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify 验签，任何异常均视为失败
func (c *Codec) Verify(p *Payload, pub crypto.PublicKey) bool {
	return c.Inspect(p, pub).OK()
}

// VerifyPEM 使用商户登记的 PEM 公钥验签
func (c *Codec) VerifyPEM(p *Payload, pemKey string) bool {
	return c.InspectPEM(p, pemKey).OK()
}

// InspectPEM 同 Inspect，公钥解析失败记为 CauseMalformed
func (c *Codec) InspectPEM(p *Payload, pemKey string) Verdict {
	if v := c.precheck(p); !v.OK() {
		return v
	}
	pub, err := ParsePublicKey([]byte(pemKey))
	if err != nil {
		return fail(CauseMalformed, err)
	}
	return c.Inspect(p, pub)
}

// Inspect 验签并返回失败原因
func (c *Codec) Inspect(p *Payload, pub crypto.PublicKey) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = fail(CauseCrypto, fmt.Errorf("verify panic: %v", r))
		}
	}()

	if v := c.precheck(p); !v.OK() {
		return v
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(p.String(FieldSign)))
	if err != nil {
		return fail(CauseMalformed, fmt.Errorf("decode sign: %w", err))
	}

	msg := []byte(c.Canonical(p))
	digest := sha256.Sum256(msg)

	switch k := pub.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(k, crypto.SHA256, digest[:], sig); err != nil {
			if errors.Is(err, rsa.ErrVerification) {
				return fail(CauseMismatch, err)
			}
			return fail(CauseCrypto, err)
		}
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(k, digest[:], sig) {
			return fail(CauseMismatch, nil)
		}
	case ed25519.PublicKey:
		if len(k) != ed25519.PublicKeySize {
			return fail(CauseCrypto, fmt.Errorf("bad ed25519 key length %d", len(k)))
		}
		if !ed25519.Verify(k, msg, sig) {
			return fail(CauseMismatch, nil)
		}
	default:
		return fail(CauseCrypto, fmt.Errorf("%w: %T", ErrUnsupportedKey, pub))
	}
	return Verdict{}
}

// precheck 校验 sign 与 timestamp。
// 只拒绝早于窗口的请求，未来时间戳放行。
func (c *Codec) precheck(p *Payload) Verdict {
	if p == nil || strings.TrimSpace(p.String(FieldSign)) == "" {
		return fail(CauseMissingSign, nil)
	}
	raw := strings.TrimSpace(p.String(FieldTimestamp))
	if raw == "" {
		return fail(CauseBadTimestamp, errors.New("timestamp missing"))
	}
	ts, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return fail(CauseBadTimestamp, fmt.Errorf("timestamp %q not numeric", raw))
	}
	now := c.now()
	if float64(now.Unix())-c.window().Seconds() > ts {
		return fail(CauseBadTimestamp, fmt.Errorf("timestamp %q expired", raw))
	}
	return Verdict{}
}

func (c *Codec) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Codec) window() time.Duration {
	if c.Window <= 0 {
		return DefaultWindow
	}
	return c.Window
}
