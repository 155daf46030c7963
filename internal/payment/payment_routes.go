package payment

import (
	"github.com/msdp-platform/msdp-flexstaff/internal/middleware"
	"github.com/msdp-platform/msdp-flexstaff/internal/rbac"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	rdb *redis.Client,
) {
	// The processor authenticates with the signature header, not a token.
	r.POST("/payments/webhook", middleware.RateLimitByIP(20, 50), handler.Webhook)

	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware())
	{
		payments.GET("", middleware.RBACAuthorize(rbacService, "payment", "read"), handler.List)
		payments.GET("/:id", middleware.RBACAuthorize(rbacService, "payment", "read"), handler.GetByID)

		mutate := payments.Group("", middleware.RateLimitByUser(2, 10))
		mutate.POST("/:id/refund", middleware.RBACAuthorize(rbacService, "payment", "refund"), handler.Refund)

		process := []gin.HandlerFunc{middleware.RBACAuthorize(rbacService, "payment", "process")}
		if rdb != nil {
			process = append(process, middleware.Idempotency(rdb))
		}
		mutate.POST("/process", append(process, handler.Process)...)
	}

	// Only marketplace parties hold payout accounts.
	payouts := r.Group("/payouts")
	payouts.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(actor.RoleEmployer, actor.RoleWorker))
	{
		payouts.GET("/account", middleware.RBACAuthorize(rbacService, "payout", "manage"), handler.GetPayoutAccountStatus)
		payouts.POST("/account", middleware.RateLimitByUser(2, 10), middleware.RBACAuthorize(rbacService, "payout", "manage"), handler.CreatePayoutAccount)
	}
}
