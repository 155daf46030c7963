package main

import (
	"github.com/msdp-platform/msdp-flexstaff/internal/app"
	"github.com/msdp-platform/msdp-flexstaff/internal/bootstrap"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"

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

	if err := app.RunConsumer(); err != nil {
		logger.Fatal("run consumer failed", zap.Error(err))
	}
}
