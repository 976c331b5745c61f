package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// 入库错误
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeEmptyContent      ErrorCode = "EMPTY_CONTENT"

	// 外部服务错误
	ErrCodeEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"
	ErrCodeIndexFailed      ErrorCode = "INDEX_FAILED"
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrCodeTimeout          ErrorCode = "TIMEOUT"

	// 数据库错误
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Type     ErrorType   `json:"type"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// UserFacing 是否可以把Message原样展示给用户
func (e *AppError) UserFacing() bool {
	return e.Type == ErrorTypeValidation || e.Type == ErrorTypeBusiness
}

// 错误构造函数

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewBusinessError 创建业务错误
func NewBusinessError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeBusiness,
		HTTPCode: getHTTPCodeForError(code),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewUnsupportedFormatError 文件格式不支持
func NewUnsupportedFormatError(message string) *AppError {
	return NewBusinessError(ErrCodeUnsupportedFormat, message)
}

// NewEmptyContentError 文件中没有可入库的内容
func NewEmptyContentError(message string) *AppError {
	return NewBusinessError(ErrCodeEmptyContent, message)
}

// NewExternalError 创建外部依赖错误
func NewExternalError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeExternal,
		HTTPCode: getHTTPCodeForError(code),
	}
}

// NewEmbeddingError 嵌入服务错误
func NewEmbeddingError(message string) *AppError {
	return NewExternalError(ErrCodeEmbeddingFailed, message)
}

// NewIndexError 向量索引错误
func NewIndexError(message string) *AppError {
	return NewExternalError(ErrCodeIndexFailed, message)
}

// NewGenerationError 答案生成错误
func NewGenerationError(message string) *AppError {
	return NewExternalError(ErrCodeGenerationFailed, message)
}

// getHTTPCodeForError 根据错误码获取HTTP状态码
func getHTTPCodeForError(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidationFailed, ErrCodeBadRequest, ErrCodeUnsupportedFormat, ErrCodeEmptyContent:
		return http.StatusBadRequest
	case ErrCodeEmbeddingFailed, ErrCodeIndexFailed, ErrCodeGenerationFailed:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus 错误码对应的HTTP状态码
func HTTPStatus(code ErrorCode) int {
	return getHTTPCodeForError(code)
}

// IsAppError 检查是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}

// CodeOf 返回错误链上第一个AppError的错误码
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode 错误链上是否存在指定错误码
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
