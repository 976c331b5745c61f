package errors

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
)

// ErrorTranslator 错误转换器
type ErrorTranslator struct{}

// NewErrorTranslator 创建错误转换器
func NewErrorTranslator() *ErrorTranslator {
	return &ErrorTranslator{}
}

// Translate 将各种类型的错误转换为AppError
func (t *ErrorTranslator) Translate(err error) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，直接返回
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return t.translateValidationErrors(validationErrors)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewExternalError(ErrCodeTimeout, "Operation timed out").WithCause(err)
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewExternalError(ErrCodeTimeout, "Operation timed out").WithCause(err)
		}
		return NewSystemError(ErrCodeInternalServer, "Network error").WithCause(err)
	}

	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		return NewSystemError(ErrCodeDatabaseError, "Database migration in dirty state").WithCause(err)
	}

	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}

// translateValidationErrors 转换验证错误
func (t *ErrorTranslator) translateValidationErrors(validationErrors validator.ValidationErrors) *AppError {
	details := make([]map[string]interface{}, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))

	for _, fieldError := range validationErrors {
		msg := t.getValidationErrorMessage(fieldError)
		details = append(details, map[string]interface{}{
			"field":   fieldError.Namespace(),
			"tag":     fieldError.Tag(),
			"message": msg,
		})
		messages = append(messages, msg)
	}

	return NewValidationError(strings.Join(messages, "; ")).
		WithDetails(map[string]interface{}{
			"errors": details,
		})
}

// getValidationErrorMessage 获取验证错误消息
func (t *ErrorTranslator) getValidationErrorMessage(fieldError validator.FieldError) string {
	field := fieldError.Namespace()

	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fieldError.Param()
	case "max":
		return field + " must be at most " + fieldError.Param()
	case "gt":
		return field + " must be greater than " + fieldError.Param()
	case "gte":
		return field + " must be greater than or equal to " + fieldError.Param()
	case "lte":
		return field + " must be less than or equal to " + fieldError.Param()
	case "oneof":
		return field + " must be one of: " + fieldError.Param()
	case "url":
		return field + " must be a valid URL"
	default:
		return field + " is invalid"
	}
}

// Wrap 包装错误为AppError
func (t *ErrorTranslator) Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return NewSystemError(code, message).WithCause(err)
}
