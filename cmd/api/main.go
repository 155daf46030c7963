package main

import (
	"github.com/msdp-platform/msdp-flexstaff/internal/app"
	"github.com/msdp-platform/msdp-flexstaff/internal/bootstrap"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	logger, err := bootstrap.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()
	r := gin.New()
	r.Use(gin.Recovery())

	if err := app.BuildApp(r); err != nil {
		logger.Fatal("build app failed", zap.Error(err))
	}

	bootstrap.StartHTTPServer(r, bootstrap.ServerConfigFromEnv(), bootstrap.NewStdoutAuditLogger())
}
