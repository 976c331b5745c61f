package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/kiwimarket/backend-go/app/bootstrap"
	"github.com/kiwimarket/backend-go/app/controllers"
	"github.com/kiwimarket/backend-go/app/middleware"
	"github.com/kiwimarket/backend-go/internal/logger"
)

// AdminPattern 需要管理端认证的路由
const AdminPattern = "/api/knowledge-base/*"

// Init registers filters and routes. Must be called after the app is built.
func Init(app *bootstrap.App) {
	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSFilter(app.Config.Server.CORSOrigins))
	web.InsertFilter("/*", web.BeforeRouter, middleware.SecurityHeaders)

	web.InsertFilter(AdminPattern, web.BeforeRouter, middleware.AuditStart)
	if app.JWT != nil {
		web.InsertFilter(AdminPattern, web.BeforeRouter, middleware.AdminAuth(app.JWT, app.Config.Support.Locale))
	} else {
		logger.Warn("auth.jwt_secret is empty, knowledge base admin routes are not protected")
	}
	web.InsertFilter(AdminPattern, web.FinishRouter, middleware.AuditLogFilter(logger.GetLogger()), web.WithReturnOnOutput(false))

	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")

	// 知识库管理
	kb := &controllers.KnowledgeBaseController{}
	web.Router("/api/knowledge-base/upload", kb, "post:Upload")
	web.Router("/api/knowledge-base/entries", kb, "get:List;post:Add;delete:DeleteAll")
	web.Router("/api/knowledge-base/entries/:id", kb, "delete:Delete")
	web.Router("/api/knowledge-base/stats", kb, "get:Stats")

	// 客服问答
	support := &controllers.SupportController{}
	web.Router("/api/support/ask", support, "post:Ask")
	web.Router("/api/support/ask/stream", support, "post:AskStream")
	web.Router("/api/support/search", support, "get:Search")
}
