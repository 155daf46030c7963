package application

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
	auth := r.Group("")
	auth.Use(middleware.AuthMiddleware())

	shifts := auth.Group("/shifts/:id/applications")
	{
		shifts.GET("", middleware.RBACAuthorize(rbacService, "application", "review"), handler.ListForShift)
		shifts.POST("",
			middleware.RateLimitByUser(2, 10),
			middleware.RBACAuthorize(rbacService, "application", "create"),
			handler.Apply,
		)
	}

	accept := []gin.HandlerFunc{
		middleware.RateLimitByUser(2, 10),
		middleware.RBACAuthorize(rbacService, "application", "review"),
	}
	if rdb != nil {
		accept = append(accept, middleware.Idempotency(rdb))
	}
	accept = append(accept, handler.Accept)

	applications := auth.Group("/applications")
	{
		applications.GET("/mine", middleware.RBACAuthorize(rbacService, "application", "read"), handler.ListMine)
		applications.POST("/:id/accept", accept...)

		mutate := applications.Group("", middleware.RateLimitByUser(2, 10))
		mutate.POST("/:id/reject", middleware.RBACAuthorize(rbacService, "application", "review"), handler.Reject)
		mutate.POST("/:id/withdraw", middleware.RBACAuthorize(rbacService, "application", "withdraw"), handler.Withdraw)
	}

	assignments := auth.Group("/assignments")
	{
		assignments.GET("/mine", middleware.RBACAuthorize(rbacService, "assignment", "read"), handler.ListMyAssignments)
		assignments.POST("/:id/confirm",
			middleware.RateLimitByUser(2, 10),
			middleware.RBACAuthorize(rbacService, "assignment", "confirm"),
			handler.ConfirmAssignment,
		)
	}
}
