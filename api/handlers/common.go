package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/BaSui01/cacheflow/cache"
	"go.uber.org/zap"
)

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"` // 不序列化到 JSON
}

// HTTP 层补充错误码：缓存核心错误码之外，对外接口还需要这两个。
const (
	codeNotFound cache.ErrorCode = "NOT_FOUND"
	codeInternal cache.ErrorCode = "INTERNAL"
)

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// 响应头已发出，编码失败时无法补救
		return
	}
}

// WriteSuccess 写入成功响应
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: requestID(w),
	})
}

// requestID 取中间件写入的 X-Request-ID 响应头；未经过中间件时为空
func requestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-ID")
}

// WriteError 写入错误响应，状态码与错误码从错误链推导
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	info := toErrorInfo(err)

	if logger != nil {
		logger.Error("API error",
			zap.String("code", info.Code),
			zap.String("message", info.Message),
			zap.Int("status", info.HTTPStatus),
			zap.Error(err),
		)
	}

	WriteJSON(w, info.HTTPStatus, Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
		RequestID: requestID(w),
	})
}

// WriteErrorMessage 写入简单错误消息（显式状态码）
func WriteErrorMessage(w http.ResponseWriter, status int, code cache.ErrorCode, message string, logger *zap.Logger) {
	info := &ErrorInfo{
		Code:       string(code),
		Message:    message,
		HTTPStatus: status,
	}

	if logger != nil {
		logger.Error("API error",
			zap.String("code", info.Code),
			zap.String("message", message),
			zap.Int("status", status),
		)
	}

	WriteJSON(w, status, Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
		RequestID: requestID(w),
	})
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

// toErrorInfo 将错误链展开为结构化错误信息
func toErrorInfo(err error) *ErrorInfo {
	if cache.IsNotFound(err) {
		return &ErrorInfo{
			Code:       string(codeNotFound),
			Message:    err.Error(),
			HTTPStatus: http.StatusNotFound,
		}
	}

	var ce *cache.Error
	if errors.As(err, &ce) {
		info := &ErrorInfo{
			Code:       string(ce.Code),
			Message:    ce.Message,
			HTTPStatus: mapErrorCodeToHTTPStatus(ce.Code),
		}
		if ce.Cause != nil {
			info.Details = ce.Cause.Error()
		}
		return info
	}

	return &ErrorInfo{
		Code:       string(codeInternal),
		Message:    err.Error(),
		HTTPStatus: http.StatusInternalServerError,
	}
}

func mapErrorCodeToHTTPStatus(code cache.ErrorCode) int {
	switch code {
	// 4xx 客户端错误
	case cache.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case cache.ErrCodeAlreadyExists:
		return http.StatusConflict
	case cache.ErrCodeIllegalState:
		return http.StatusConflict
	case cache.ErrCodeTypeMismatch:
		return http.StatusConflict

	// 5xx 服务端错误
	case cache.ErrCodeNotSupported:
		return http.StatusNotImplemented

	// 默认
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求验证辅助函数
// =============================================================================

// DecodeJSONBody 解码 JSON 请求体（1 MB 上限 + 严格模式）
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) error {
	if r.Body == nil {
		err := cache.NewError(cache.ErrCodeInvalidArgument, "request body is empty")
		WriteError(w, err, logger)
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields() // 严格模式：拒绝未知字段

	if err := decoder.Decode(dst); err != nil {
		apiErr := cache.NewError(cache.ErrCodeInvalidArgument, "invalid JSON body").WithCause(err)
		WriteError(w, apiErr, logger)
		return apiErr
	}

	return nil
}

// ValidateContentType 验证 Content-Type
func ValidateContentType(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && contentType != "application/json; charset=utf-8" {
		err := cache.NewError(cache.ErrCodeInvalidArgument, "Content-Type must be application/json")
		WriteError(w, err, logger)
		return false
	}
	return true
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
