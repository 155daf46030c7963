package timesheet

import (
	"github.com/msdp-platform/msdp-flexstaff/internal/middleware"
	"github.com/msdp-platform/msdp-flexstaff/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	rdb *redis.Client,
) {
	timesheets := r.Group("/timesheets")
	timesheets.Use(middleware.AuthMiddleware())
	{
		timesheets.GET("", middleware.RBACAuthorize(rbacService, "timesheet", "read"), handler.List)
		timesheets.GET("/disputes", middleware.RBACAuthorize(rbacService, "timesheet", "audit"), handler.ListDisputes)
		timesheets.GET("/:id", middleware.RBACAuthorize(rbacService, "timesheet", "read"), handler.GetByID)

		mutate := timesheets.Group("", middleware.RateLimitByUser(2, 10))
		mutate.POST("", middleware.RBACAuthorize(rbacService, "timesheet", "create"), handler.Create)
		mutate.POST("/:id/clock-in", middleware.RBACAuthorize(rbacService, "timesheet", "track"), handler.ClockIn)
		mutate.POST("/:id/clock-out", middleware.RBACAuthorize(rbacService, "timesheet", "track"), handler.ClockOut)
		mutate.POST("/:id/submit", middleware.RBACAuthorize(rbacService, "timesheet", "track"), handler.Submit)
		mutate.POST("/:id/reject", middleware.RBACAuthorize(rbacService, "timesheet", "review"), handler.Reject)
		mutate.POST("/:id/dispute", middleware.RBACAuthorize(rbacService, "timesheet", "dispute"), handler.Dispute)

		approve := []gin.HandlerFunc{middleware.RBACAuthorize(rbacService, "timesheet", "review")}
		if rdb != nil {
			approve = append(approve, middleware.Idempotency(rdb))
		}
		mutate.POST("/:id/approve", append(approve, handler.Approve)...)
	}
}
