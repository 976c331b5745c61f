package errors

import (
	"net/http"

	"github.com/kiwimarket/backend-go/internal/interfaces"
)

// ErrorHandler 在服务边界把内部错误转换为面向用户的错误
type ErrorHandler struct {
	logger     interfaces.LoggerInterface
	translator *ErrorTranslator
	locale     string
}

// NewErrorHandler 创建错误处理器
func NewErrorHandler(logger interfaces.LoggerInterface, locale string) *ErrorHandler {
	if locale == "" || !SupportedLocale(locale) {
		locale = DefaultLocale
	}
	return &ErrorHandler{
		logger:     logger,
		translator: NewErrorTranslator(),
		locale:     locale,
	}
}

// Locale 当前使用的语言
func (h *ErrorHandler) Locale() string {
	return h.locale
}

// Message 返回当前语言的提示文案
func (h *ErrorHandler) Message(key MessageKey) string {
	return Localize(h.locale, key)
}

// Resolve 记录内部错误并返回可以展示给用户的AppError。
// 验证类和业务类错误原样保留，其余错误统一替换为fallback文案。
func (h *ErrorHandler) Resolve(operation string, err error, fallback MessageKey) *AppError {
	if err == nil {
		return nil
	}

	appErr := h.translator.Translate(err)
	h.logError(operation, appErr)

	if appErr.UserFacing() {
		return appErr
	}

	return &AppError{
		Code:     appErr.Code,
		Message:  h.Message(fallback),
		Type:     appErr.Type,
		HTTPCode: appErr.HTTPCode,
		Cause:    appErr,
	}
}

// Response 构建统一的错误响应体
func Response(appErr *AppError) (int, map[string]interface{}) {
	if appErr == nil {
		appErr = NewSystemError(ErrCodeInternalServer, Localize(DefaultLocale, MsgInternal))
	}
	status := appErr.HTTPCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	body := map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    string(appErr.Code),
	}
	if appErr.Details != nil && shouldIncludeDetails(appErr) {
		body["details"] = appErr.Details
	}
	return status, body
}

// logError 记录错误日志
func (h *ErrorHandler) logError(operation string, appErr *AppError) {
	fields := []interface{}{
		"operation", operation,
		"error_code", string(appErr.Code),
		"error_type", getErrorTypeString(appErr.Type),
	}
	if appErr.Cause != nil {
		fields = append(fields, "cause", appErr.Cause.Error())
	}

	// 根据错误类型选择日志级别
	switch appErr.Type {
	case ErrorTypeSystem:
		h.logger.Error("System error occurred", fields...)
	case ErrorTypeExternal:
		h.logger.Error("External service error occurred", fields...)
	case ErrorTypeBusiness:
		h.logger.Warn("Business error occurred", fields...)
	default:
		h.logger.Info("Validation error occurred", fields...)
	}
}

// getErrorTypeString 获取错误类型字符串
func getErrorTypeString(errorType ErrorType) string {
	switch errorType {
	case ErrorTypeSystem:
		return "system"
	case ErrorTypeBusiness:
		return "business"
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// shouldIncludeDetails 系统错误和外部错误不暴露详情
func shouldIncludeDetails(appErr *AppError) bool {
	return appErr.Type == ErrorTypeValidation || appErr.Type == ErrorTypeBusiness
}
