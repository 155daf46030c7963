package shift

import (
	"github.com/msdp-platform/msdp-flexstaff/internal/middleware"
	"github.com/msdp-platform/msdp-flexstaff/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	shifts := r.Group("/shifts")
	shifts.Use(middleware.AuthMiddleware())
	{
		shifts.GET("", middleware.RBACAuthorize(rbacService, "shift", "read"), handler.List)
		shifts.GET("/mine", middleware.RBACAuthorize(rbacService, "shift", "manage"), handler.ListMine)
		shifts.GET("/:id", middleware.RBACAuthorize(rbacService, "shift", "read"), handler.GetByID)

		mutate := shifts.Group("", middleware.RateLimitByUser(2, 10))
		mutate.POST("", middleware.RBACAuthorize(rbacService, "shift", "create"), handler.Create)
		mutate.PATCH("/:id", middleware.RBACAuthorize(rbacService, "shift", "update"), handler.Update)
		mutate.DELETE("/:id", middleware.RBACAuthorize(rbacService, "shift", "delete"), handler.Delete)
		mutate.POST("/:id/publish", middleware.RBACAuthorize(rbacService, "shift", "manage"), handler.Publish)
		mutate.POST("/:id/start", middleware.RBACAuthorize(rbacService, "shift", "manage"), handler.Start)
		mutate.POST("/:id/complete", middleware.RBACAuthorize(rbacService, "shift", "manage"), handler.Complete)
		mutate.POST("/:id/cancel", middleware.RBACAuthorize(rbacService, "shift", "manage"), handler.Cancel)
	}
}
