package errors

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
)

// Error 携带错误码、对用户可见的信息以及底层原因。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
	attr     Attributes
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息，会出现在结构化日志中。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithRetryable 覆盖错误码默认的可重试属性。
func WithRetryable(retryable bool) Option {
	return func(e *Error) { e.attr.Retryable = retryable }
}

// WithSeverity 覆盖默认严重程度。
func WithSeverity(sev Severity) Option {
	return func(e *Error) { e.attr.Severity = sev }
}

// New 创建错误。属性在创建时从注册表复制，message 为空时使用默认信息。
func New(code Code, message string, opts ...Option) *Error {
	e := &Error{code: code, attr: AttributesOf(code)}
	e.message = message
	if e.message == "" {
		e.message = e.attr.Message
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return fmt.Sprintf("[%s] %s", e.code, e.message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 按错误码匹配，target 可以是 *Error 或 Code。
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch t := target.(type) {
	case *Error:
		return t != nil && e.code == t.code
	case Code:
		return e.code == t
	}
	return false
}

// LogValue 让 slog 把错误展开为分组字段。
func (e *Error) LogValue() slog.Value {
	if e == nil {
		return slog.StringValue("")
	}
	fields := []slog.Attr{
		slog.String("code", string(e.code)),
		slog.String("message", e.message),
		slog.String("severity", string(e.attr.Severity)),
	}
	if e.cause != nil {
		fields = append(fields, slog.String("cause", e.cause.Error()))
	}
	for k, v := range e.metadata {
		fields = append(fields, slog.String(k, v))
	}
	return slog.GroupValue(fields...)
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata 返回附加信息的副本。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	return maps.Clone(e.metadata)
}

func (e *Error) Retryable() bool {
	return e != nil && e.attr.Retryable
}

func (e *Error) HTTPStatus() int {
	if e == nil || e.attr.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.attr.HTTPStatus
}

func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	return e.attr.Severity
}

// From 沿错误链查找统一错误类型。
func From(err error) (*Error, bool) {
	var target *Error
	if err != nil && stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误链上最外层统一错误的错误码。
func CodeOf(err error) Code {
	e, _ := From(err)
	return e.Code()
}

// RetryableError 判断任意 error 是否可重试。
func RetryableError(err error) bool {
	e, _ := From(err)
	return e.Retryable()
}

// HTTPStatusOf 返回任意 error 对应的 HTTP 状态码，非统一错误按 500 处理。
func HTTPStatusOf(err error) int {
	e, _ := From(err)
	return e.HTTPStatus()
}

// SeverityOf 返回错误严重程度，非统一错误按 UNKNOWN 的严重程度处理。
func SeverityOf(err error) Severity {
	if e, ok := From(err); ok {
		return e.Severity()
	}
	return AttributesOf(CodeUnknown).Severity
}
