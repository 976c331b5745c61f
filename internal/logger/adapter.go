package logger

import (
	"go.uber.org/zap"

	"github.com/kiwimarket/backend-go/internal/interfaces"
)

// zapLogger 将 zap.SugaredLogger 适配为 interfaces.LoggerInterface
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger 基于zap创建键值风格的日志器
func NewLogger(l *zap.Logger) interfaces.LoggerInterface {
	if l == nil {
		l = GetLogger()
	}
	return &zapLogger{sugar: l.Sugar()}
}

// NewNop 丢弃所有日志，测试使用
func NewNop() interfaces.LoggerInterface {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func (l *zapLogger) Info(msg string, fields ...interface{}) {
	l.sugar.Infow(msg, fields...)
}

func (l *zapLogger) Error(msg string, fields ...interface{}) {
	l.sugar.Errorw(msg, fields...)
}

func (l *zapLogger) Debug(msg string, fields ...interface{}) {
	l.sugar.Debugw(msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...interface{}) {
	l.sugar.Warnw(msg, fields...)
}

func (l *zapLogger) Fatal(msg string, fields ...interface{}) {
	l.sugar.Fatalw(msg, fields...)
}

func (l *zapLogger) With(fields ...interface{}) interfaces.LoggerInterface {
	return &zapLogger{sugar: l.sugar.With(fields...)}
}

func (l *zapLogger) WithError(err error) interfaces.LoggerInterface {
	return &zapLogger{sugar: l.sugar.With("error", err)}
}
