package errors

import (
	"log/slog"
	"net/http"
	"sync"
)

// Code 表示门户内的统一错误码。Code 本身实现 error，可直接作为 errors.Is 的目标。
type Code string

func (c Code) Error() string { return string(c) }

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeConflict         Code = "CONFLICT"
	CodeTimeout          Code = "TIMEOUT"

	// 插件加载链路。
	CodeConfigUnavailable Code = "CONFIG_UNAVAILABLE"
	CodeBundleUnavailable Code = "BUNDLE_UNAVAILABLE"
	CodeBundleMalformed   Code = "BUNDLE_MALFORMED"

	// 基础设施。
	CodeStorageFailure Code = "STORAGE_FAILURE"
	CodeCacheFailure   Code = "CACHE_FAILURE"
	CodeEventFailure   Code = "EVENT_FAILURE"
)

// Severity 描述错误的严重程度，决定日志级别。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Level 把严重程度映射为日志级别。
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityCritical:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Attributes 为错误码提供默认行为。
type Attributes struct {
	Message    string
	Severity   Severity
	Retryable  bool
	HTTPStatus int
}

func attrs(msg string, sev Severity, retryable bool, status int) Attributes {
	return Attributes{Message: msg, Severity: sev, Retryable: retryable, HTTPStatus: status}
}

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown:          attrs("unknown error", SeverityCritical, false, http.StatusInternalServerError),
		CodeInvalidArgument:  attrs("invalid argument", SeverityInfo, false, http.StatusBadRequest),
		CodeNotFound:         attrs("resource not found", SeverityInfo, false, http.StatusNotFound),
		CodeMethodNotAllowed: attrs("method not allowed", SeverityInfo, false, http.StatusMethodNotAllowed),
		CodeConflict:         attrs("resource conflict", SeverityWarning, false, http.StatusConflict),
		CodeTimeout:          attrs("operation timed out", SeverityWarning, true, http.StatusGatewayTimeout),

		CodeConfigUnavailable: attrs("plugin configuration unavailable", SeverityWarning, true, http.StatusBadGateway),
		CodeBundleUnavailable: attrs("plugin bundle unavailable", SeverityWarning, true, http.StatusBadGateway),
		CodeBundleMalformed:   attrs("plugin bundle malformed", SeverityCritical, false, http.StatusUnprocessableEntity),

		CodeStorageFailure: attrs("storage failure", SeverityCritical, true, http.StatusInternalServerError),
		CodeCacheFailure:   attrs("cache failure", SeverityWarning, true, http.StatusInternalServerError),
		CodeEventFailure:   attrs("event publish failure", SeverityWarning, true, http.StatusInternalServerError),
	}
)

// Register 允许业务模块在初始化阶段注册或覆盖错误码描述。
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf 返回错误码对应的属性，未注册的错误码按 UNKNOWN 处理。
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}
