// @title 学习门户后端 API
// @version 1.0
// @description 学习门户的后端服务:课程周期、作业批注与师生实时聊天。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"log"

	"edu_portal_backend/internal/app"
	"edu_portal_backend/internal/config"
	"edu_portal_backend/pkg/configwatcher"
	"edu_portal_backend/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		if c, ok := newCfg.(*config.Config); ok {
			application.ReloadConfig(c)
		}
	})

	application.Run()
}
