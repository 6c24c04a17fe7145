package common

import (
	"regexp"
	"strings"
	"sync"
)

var (
	bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._\-]+`)
	keyPattern    = regexp.MustCompile(`\b(sk|pk|or|rk)-[A-Za-z0-9_\-]{8,}`)
	paramPattern  = regexp.MustCompile(`(?i)((?:api[_-]?key|token|key)["']?\s*[=:]\s*["']?)[^\s"'&,}]+`)

	// defaultRedactor 供日誌與 CustomError 使用，載入設定時登記憑證
	defaultRedactor = NewRedactor()
)

// MaskSecret 遮罩 API Key，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// Redactor 遮罩已登記的值與常見的憑證格式；nil 只套用格式規則
type Redactor struct {
	mu      sync.RWMutex
	secrets []string
}

// NewRedactor 建立遮罩器並登記 values
func NewRedactor(values ...string) *Redactor {
	r := &Redactor{}
	for _, v := range values {
		r.Register(v)
	}
	return r
}

// Register 登記需要遮罩的值；少於 4 個字符的值忽略
func (r *Redactor) Register(value string) {
	value = strings.TrimSpace(value)
	if r == nil || len(value) < 4 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.secrets {
		if s == value {
			return
		}
	}
	r.secrets = append(r.secrets, value)
}

// Redact 移除字串中的憑證
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}
	if r != nil {
		r.mu.RLock()
		for _, secret := range r.secrets {
			if strings.Contains(s, secret) {
				s = strings.ReplaceAll(s, secret, MaskSecret(secret))
			}
		}
		r.mu.RUnlock()
	}

	s = bearerPattern.ReplaceAllString(s, "${1}****")
	s = keyPattern.ReplaceAllStringFunc(s, MaskSecret)
	s = paramPattern.ReplaceAllString(s, "${1}****")
	return s
}

// Wrap 包裝 err，Error() 經過遮罩，errors.Is/As 仍可穿透
func (r *Redactor) Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &redactedError{err: err, msg: r.Redact(err.Error())}
}

type redactedError struct {
	err error
	msg string
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// RegisterSecret 在預設遮罩器登記值
func RegisterSecret(value string) {
	defaultRedactor.Register(value)
}

// Redact 以預設遮罩器移除字串中的憑證
func Redact(s string) string {
	return defaultRedactor.Redact(s)
}
