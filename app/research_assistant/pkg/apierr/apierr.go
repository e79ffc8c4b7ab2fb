// Package apierr 定义流水线中所有外部调用的错误分类
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind 错误类别
type Kind int

const (
	// KindUnknown 未分类的错误，按永久失败处理
	KindUnknown Kind = iota
	// KindValidation 输入非法 (URL、主题等)
	KindValidation
	// KindTransient 网络抖动、限流等可重试错误
	KindTransient
	// KindPermanent 站点不支持、响应格式错误等不可重试错误
	KindPermanent
	// KindTokenBudgetExceeded 输入超出 token 预算，已截断或分块，不致命
	KindTokenBudgetExceeded
	// KindFatal 整个运行无法继续
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindTokenBudgetExceeded:
		return "token_budget_exceeded"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error 带分类的错误
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation 构造输入校验错误
func Validation(op string, err error) error { return newError(KindValidation, op, err) }

// Transient 构造可重试错误
func Transient(op string, err error) error { return newError(KindTransient, op, err) }

// Permanent 构造不可重试错误
func Permanent(op string, err error) error { return newError(KindPermanent, op, err) }

// TokenBudget 构造 token 超预算警告
func TokenBudget(op string, err error) error { return newError(KindTokenBudgetExceeded, op, err) }

// Fatal 构造致命错误
func Fatal(op string, err error) error { return newError(KindFatal, op, err) }

// KindOf 返回错误链上最外层 *Error 的类别。
// 上下文取消与超时视为 Permanent：调用方已经放弃，重试没有意义。
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindPermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}

// Is 判断错误是否属于指定类别
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromStatus 根据 HTTP 状态码对远端错误分类: 429 与 5xx 可重试，其余 4xx 不可重试
func FromStatus(op string, status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500 {
		return Transient(op, err)
	}
	return Permanent(op, err)
}

// FromTransport 对 http.Client.Do 返回的错误分类
func FromTransport(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return Permanent(op, err)
	}
	return Transient(op, err)
}
