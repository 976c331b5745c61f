package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/kiwimarket/backend-go/app/bootstrap"
	"github.com/kiwimarket/backend-go/internal/errors"
	"github.com/kiwimarket/backend-go/internal/logger"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
	app *bootstrap.App
}

// Prepare resolves the bootstrapped application for the request.
func (c *BaseController) Prepare() {
	c.app = bootstrap.GetApp()
	if c.app == nil {
		c.JSONError(http.StatusServiceUnavailable, errors.Localize(errors.DefaultLocale, errors.MsgInternal))
		c.StopRun()
	}
}

// bindJSON decodes the request body into v. Decode failures are only logged;
// the services validate whatever was decoded.
func (c *BaseController) bindJSON(v interface{}) {
	body := c.Ctx.Input.RequestBody
	if len(body) == 0 {
		return
	}
	if err := json.Unmarshal(body, v); err != nil {
		logger.Debug("Request body decode failed",
			zap.String("path", c.Ctx.Request.URL.Path),
			zap.String("ip", c.getClientIP()),
			zap.Int("bytes", len(body)),
			zap.Error(err))
	}
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	_ = c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError writes an error envelope carrying the error code.
func (c *BaseController) JSONAppError(appErr *errors.AppError) {
	status, body := errors.Response(appErr)
	c.JSON(status, body)
}

// JSONResult writes a service result; failed results use the status of their code.
func (c *BaseController) JSONResult(success bool, code string, payload interface{}) {
	status := http.StatusOK
	if !success {
		status = errors.HTTPStatus(errors.ErrorCode(code))
	}
	c.JSON(status, payload)
}

// locale 当前配置的提示语言
func (c *BaseController) locale() string {
	if c.app == nil || c.app.Config == nil {
		return errors.DefaultLocale
	}
	return c.app.Config.Support.Locale
}

// getClientIP 获取客户端真实IP地址
func (c *BaseController) getClientIP() string {
	// 尝试从X-Forwarded-For头获取（代理服务器）
	xForwardedFor := c.Ctx.Input.Header("X-Forwarded-For")
	if xForwardedFor != "" {
		// X-Forwarded-For可能包含多个IP，取第一个
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	// 尝试从X-Real-IP头获取
	xRealIP := c.Ctx.Input.Header("X-Real-IP")
	if xRealIP != "" {
		return xRealIP
	}

	// 回退到RemoteAddr
	return c.Ctx.Input.IP()
}
