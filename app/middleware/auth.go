package middleware

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	"github.com/kiwimarket/backend-go/internal/auth"
	"github.com/kiwimarket/backend-go/internal/errors"
	"github.com/kiwimarket/backend-go/internal/logger"
)

// ctxKeySubject 认证通过后写入的操作人
const ctxKeySubject = "adminSubject"

// AdminAuth 要求Bearer JWT且带admin角色
func AdminAuth(jwtService *auth.JWTService, locale string) web.FilterFunc {
	return func(ctx *context.Context) {
		if ctx.Input.Method() == http.MethodOptions {
			return
		}

		token, err := auth.ExtractTokenFromHeader(ctx.Input.Header("Authorization"))
		if err == nil {
			var claims *auth.Claims
			claims, err = jwtService.ValidateToken(token)
			if err == nil {
				if claims.HasRole(auth.RoleAdmin) {
					ctx.Input.SetData(ctxKeySubject, claims.Subject)
					return
				}
				err = errors.NewBusinessError(errors.ErrCodeUnauthorized, "missing admin role")
			}
		}

		logger.Warn("Admin authentication failed",
			zap.String("method", ctx.Input.Method()),
			zap.String("path", ctx.Input.URL()),
			zap.String("ip", clientIP(ctx)),
			zap.Error(err))
		unauthorized(ctx, locale)
	}
}

// unauthorized 返回未授权错误
func unauthorized(ctx *context.Context, locale string) {
	appErr := errors.NewBusinessError(errors.ErrCodeUnauthorized, errors.Localize(locale, errors.MsgUnauthorized))
	status, body := errors.Response(appErr)
	ctx.Output.SetStatus(status)
	_ = ctx.Output.JSON(body, false, false)
}

// Subject 当前请求的操作人，未认证时为空
func Subject(ctx *context.Context) string {
	if subject, ok := ctx.Input.GetData(ctxKeySubject).(string); ok {
		return subject
	}
	return ""
}
