package controllers

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/kiwimarket/backend-go/internal/metrics"
)

// MetricsController 指标控制器
type MetricsController struct {
	web.Controller
}

// Metrics 返回Prometheus格式的指标
func (c *MetricsController) Metrics() {
	metrics.Handler().ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
