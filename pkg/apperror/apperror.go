package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error 应用错误，携带 HTTP 状态码与业务码
type Error struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按业务码比较，便于 errors.Is(err, apperror.ErrNotFound) 匹配包装后的实例
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Status == t.Status
}

// New 创建错误
func New(status, code int, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap 在现有类别上附加底层错误与更具体的提示
func Wrap(kind *Error, message string, err error) *Error {
	if message == "" {
		message = kind.Message
	}
	return &Error{Status: kind.Status, Code: kind.Code, Message: message, Err: err}
}

// From 取出错误链中的 *Error，不存在时归为内部错误
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternal, "", err)
}

var (
	ErrBadRequest        = New(http.StatusBadRequest, CodeBadRequest, "invalid request")
	ErrValidation        = New(http.StatusBadRequest, CodeValidation, "validation failed")
	ErrInvalidSignature  = New(http.StatusBadRequest, CodeInvalidSignature, "invalid signature")
	ErrUnauthorized      = New(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	ErrTokenInvalid      = New(http.StatusUnauthorized, CodeTokenInvalid, "invalid or expired session")
	ErrAuthFailed        = New(http.StatusUnauthorized, CodeAuthFailed, "invalid username or password")
	ErrForbidden         = New(http.StatusForbidden, CodeForbidden, "forbidden")
	ErrNotFound          = New(http.StatusNotFound, CodeNotFound, "not found")
	ErrOrderNotFound     = New(http.StatusNotFound, CodeOrderNotFound, "order not found")
	ErrConflict          = New(http.StatusConflict, CodeConflict, "conflict")
	ErrInvalidTransition = New(http.StatusConflict, CodeInvalidTransition, "invalid status transition")
	ErrPaymentLinkExists = New(http.StatusConflict, CodePaymentLinkExists, "payment link cannot be regenerated")
	ErrTooManyRequests   = New(http.StatusTooManyRequests, CodeTooManyRequests, "too many requests")
	ErrInternal          = New(http.StatusInternalServerError, CodeInternal, "internal server error")
	ErrUpstream          = New(http.StatusBadGateway, CodeUpstream, "payment gateway error")
)
