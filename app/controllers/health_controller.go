package controllers

import (
	"net/http"
	"time"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Knowledge Base Service API"})
}

// HealthController 存活检查，附带各服务商就绪状态
type HealthController struct {
	BaseController
}

type componentStatus struct {
	Provider string `json:"provider"`
	Ready    bool   `json:"ready"`
	Error    string `json:"error,omitempty"`
}

// Health GET /health，进程存活即返回200，status在有组件未就绪时为degraded
func (c *HealthController) Health() {
	cfg := c.app.Config
	ready := c.app.Readiness

	components := map[string]componentStatus{
		"embedding":  {Provider: cfg.Embedding.Provider, Ready: ready.Embedder != nil && ready.Embedder.Ready()},
		"vector":     {Provider: cfg.Vector.Provider, Ready: ready.Store != nil && ready.Store.Ready()},
		"generation": {Provider: cfg.Generation.Provider, Ready: ready.Generator != nil && ready.Generator.Ready()},
	}
	if c.app.Health != nil {
		result := c.app.Health.GetHealthResult()
		components["database"] = componentStatus{Provider: "postgres", Ready: result.Healthy, Error: result.LastError}
	}

	status := "healthy"
	for _, component := range components {
		if !component.Ready {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"status":     status,
		"components": components,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}
