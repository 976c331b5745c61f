package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/beego/beego/v2/server/web"
	"github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

const ctxKeyAuditStart = "auditStart"

// AuditStart 记录请求开始时间，需注册在BeforeRouter
func AuditStart(ctx *context.Context) {
	ctx.Input.SetData(ctxKeyAuditStart, time.Now())
}

// AuditLogFilter 管理端变更操作审计，需注册在FinishRouter且不因已输出而跳过。
// GET/HEAD/OPTIONS不记录。
func AuditLogFilter(log *zap.Logger) web.FilterFunc {
	return func(ctx *context.Context) {
		method := ctx.Input.Method()
		switch method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		var latency time.Duration
		if start, ok := ctx.Input.GetData(ctxKeyAuditStart).(time.Time); ok {
			latency = time.Since(start)
		}

		status := ctx.ResponseWriter.Status
		if status == 0 {
			status = http.StatusOK
		}

		log.Info("Admin operation",
			zap.String("method", method),
			zap.String("path", ctx.Input.URL()),
			zap.Int("status", status),
			zap.String("subject", Subject(ctx)),
			zap.String("ip", clientIP(ctx)),
			zap.Duration("latency", latency))
	}
}

// clientIP 获取客户端IP
func clientIP(ctx *context.Context) string {
	// 检查X-Forwarded-For头（代理服务器）
	if xff := ctx.Input.Header("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For可能包含多个IP，取第一个
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if realIP := ctx.Input.Header("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ctx.Input.IP()
}
