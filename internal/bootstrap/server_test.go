package bootstrap_test

import (
	"testing"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/bootstrap"

	"github.com/stretchr/testify/assert"
)

func TestServerConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "")

		cfg := bootstrap.ServerConfigFromEnv()
		assert.Equal(t, "3000", cfg.Port)
		assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("overrides and ignores junk", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("HTTP_READ_TIMEOUT_SECONDS", "12")
		t.Setenv("HTTP_IDLE_TIMEOUT_SECONDS", "-1")

		cfg := bootstrap.ServerConfigFromEnv()
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 12*time.Second, cfg.ReadTimeout)
		assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	})
}
