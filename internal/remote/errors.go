package remote

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind 远端失败分类，上层据此区分提示方式；core 对任何一类都不重试。
type ErrorKind int

const (
	// ErrTransport 网络层失败（连接、超时）
	ErrTransport ErrorKind = iota + 1
	// ErrRateLimited 命中限流
	ErrRateLimited
	// ErrAuthInvalid 凭据失效
	ErrAuthInvalid
	// ErrSemantic 后端语义错误（如 "already blocked"）
	ErrSemantic
	// ErrDecode 响应无法按预期形状解码
	ErrDecode
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTransport:
		return "transport"
	case ErrRateLimited:
		return "rate_limited"
	case ErrAuthInvalid:
		return "auth_invalid"
	case ErrSemantic:
		return "semantic"
	case ErrDecode:
		return "decode"
	}
	return "unknown"
}

// Error 类型化远端错误
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("remote %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("remote %s (%d)", e.Kind, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf 提取错误分类，非 *Error 视为 transport
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ErrTransport
}
