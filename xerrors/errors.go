// Package xerrors 定义 sortviz 的业务错误：类型决定 HTTP 状态码，业务码区分具体原因。
package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType 错误的大类，决定对外的 HTTP 状态码。
type ErrorType uint

const (
	ErrUnknown ErrorType = iota
	ErrInternal
	ErrInvalidArg
	ErrNotFound
	ErrUnavailable
	ErrLimitExceeded
	ErrTimeout
)

var typeNames = [...]string{"Unknown", "Internal", "InvalidArg", "NotFound", "Unavailable", "LimitExceeded", "Timeout"}

var typeStatus = map[ErrorType]int{
	ErrInvalidArg:    http.StatusBadRequest,
	ErrNotFound:      http.StatusNotFound,
	ErrLimitExceeded: http.StatusTooManyRequests,
	ErrUnavailable:   http.StatusServiceUnavailable,
	ErrTimeout:       http.StatusGatewayTimeout,
}

func (t ErrorType) String() string {
	if int(t) >= len(typeNames) {
		return typeNames[ErrUnknown]
	}
	return typeNames[t]
}

// Error 是 API 与 CLI 共用的错误值。Message 对外展示，Detail 说明本次失败的具体输入。
type Error struct {
	Type    ErrorType `json:"type"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail"`
	Cause   error     `json:"-"`
	Stack   []string  `json:"-"` // 仅运行期构造的错误携带
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s(%d): %s", e.Type, e.Code, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按类型与业务码匹配，WithDetail 派生出的错误仍能命中原哨兵。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// HTTPStatus 返回错误类型对应的状态码，未登记的类型按 500 处理。
func (e *Error) HTTPStatus() int {
	if status, ok := typeStatus[e.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// define 构造包级哨兵，不记录调用栈。
func define(t ErrorType, code int, message, detail string) *Error {
	return &Error{Type: t, Code: code, Message: message, Detail: detail}
}

// New 构造错误并记录调用方的栈帧。
func New(t ErrorType, code int, message, detail string, cause error) *Error {
	e := define(t, code, message, detail)
	e.Cause = cause
	e.Stack = callers(3)
	return e
}

func callers(skip int) []string {
	const depth = 8
	var pcs [depth]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		f, more := frames.Next()
		stack = append(stack, fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function))
		if !more {
			return stack
		}
	}
}

// WithDetail 基于哨兵派生带本次输入详情的新错误，哨兵本身不变。
func (e *Error) WithDetail(format string, args ...any) *Error {
	return New(e.Type, e.Code, e.Message, fmt.Sprintf(format, args...), e.Cause)
}

// Internal 构造 500 错误。
func Internal(msg string, cause error) *Error {
	return New(ErrInternal, http.StatusInternalServerError, msg, "", cause)
}

// InvalidArg 构造 400 错误，用于查询参数这类没有专属业务码的输入问题。
func InvalidArg(msg string) *Error {
	return New(ErrInvalidArg, http.StatusBadRequest, msg, "", nil)
}

// WrapInternal 包装下游错误。err 链上已有 *Error 时沿用其类型与业务码，否则归为 500。
func WrapInternal(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := FromError(err); ok {
		return New(e.Type, e.Code, msg, e.Detail, err)
	}
	return Internal(msg, err)
}

// FromError 沿错误链查找 *Error。
func FromError(err error) (*Error, bool) {
	var e *Error
	if err != nil && errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
