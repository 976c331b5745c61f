package middleware

import (
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web"
	"github.com/beego/beego/v2/server/web/context"
)

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, X-Requested-With, Accept, Origin"
)

// CORSFilter 按server.cors_origins放行跨域请求，列表为空或包含"*"时放行所有来源
func CORSFilter(allowedOrigins []string) web.FilterFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(ctx *context.Context) {
		origin := ctx.Input.Header("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || allowAll {
				ctx.Output.Header("Access-Control-Allow-Origin", origin)
				ctx.Output.Header("Vary", "Origin")
				ctx.Output.Header("Access-Control-Allow-Methods", corsAllowMethods)
				ctx.Output.Header("Access-Control-Allow-Headers", corsAllowHeaders)
				ctx.Output.Header("Access-Control-Allow-Credentials", "true")
				ctx.Output.Header("Access-Control-Max-Age", "3600")
			}
		}

		// 处理OPTIONS预检请求
		if ctx.Input.Method() == http.MethodOptions {
			ctx.Output.SetStatus(http.StatusNoContent)
			_ = ctx.Output.Body([]byte(""))
		}
	}
}

// SecurityHeaders 通用安全响应头
func SecurityHeaders(ctx *context.Context) {
	ctx.Output.Header("X-Content-Type-Options", "nosniff")
	ctx.Output.Header("X-Frame-Options", "DENY")
	ctx.Output.Header("Referrer-Policy", "strict-origin-when-cross-origin")
}
