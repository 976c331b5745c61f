package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/kiwimarket/backend-go/app/bootstrap"
	"github.com/kiwimarket/backend-go/app/router"
	"github.com/kiwimarket/backend-go/internal/config"
	"github.com/kiwimarket/backend-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()
	bootstrap.SetGlobalApp(app)

	port, err := strconv.Atoi(app.Config.Server.Port)
	if err != nil {
		log.Fatalf("invalid server.port %q: %v", app.Config.Server.Port, err)
	}

	// 配置文件变更时只热更新日志级别，其它配置需要重启
	if app.Loader.Watch(func(cfg *config.Config) {
		if logger.SetLevel(cfg.Log.Level) {
			logger.Info("Log level updated", zap.String("level", cfg.Log.Level))
		}
	}) {
		logger.Info("Watching configuration file", zap.String("file", app.Loader.ConfigFileUsed()))
	}

	router.Init(app)

	// 配置Beego全局设置
	web.BConfig.AppName = "Knowledge Base Service"
	web.BConfig.CopyRequestBody = true
	web.BConfig.Listen.HTTPPort = port
	if !app.Config.IsDevelopment() {
		web.BConfig.RunMode = web.PROD
	}

	logger.Info("Starting Knowledge Base Service", zap.Int("port", port))
	web.Run()
}
