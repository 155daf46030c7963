package bootstrap

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger returns a production logger when APP_ENV=production and a
// development logger otherwise.
func NewLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
