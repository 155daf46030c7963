package app

import (
	"github.com/msdp-platform/msdp-flexstaff/internal/middleware"
	"github.com/msdp-platform/msdp-flexstaff/internal/obs"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BuildApp(router *gin.Engine) error {
	logger := zap.L().Named("app")

	// 1. Setup Infrastructure
	gormDB, err := connection.ConnectGORMWithRetry(connection.PostgresConfigFromEnv(), 5)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	if connection.GetenvDefault("AUTO_MIGRATE", "false") == "true" {
		if err := Migrate(gormDB); err != nil {
			return err
		}
	}

	redisClient, err := connection.ConnectRedisWithRetry(connection.GetenvDefault("REDIS_ADDR", "localhost:6379"), 5)
	if err != nil {
		return err
	}

	// 2. Cross-cutting middleware and metrics
	obs.Init()
	router.Use(middleware.RequestID(), middleware.ContextLogger(logger), obs.GinMiddleware())
	router.GET("/metrics", gin.WrapH(obs.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// 3. Register Modules & Routes
	return registerModules(router, sqlDB, gormDB, redisClient)
}
