package availability

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
	slots := r.Group("/availability")
	slots.Use(middleware.AuthMiddleware())
	{
		slots.GET("/mine", middleware.RBACAuthorize(rbacService, "availability", "read"), handler.ListMine)
		slots.GET("/bookings", middleware.RBACAuthorize(rbacService, "availability", "book"), handler.ListBookings)
		slots.GET("/search", middleware.RBACAuthorize(rbacService, "availability", "search"), handler.Search)

		mutate := slots.Group("", middleware.RateLimitByUser(2, 10))
		mutate.POST("", middleware.RBACAuthorize(rbacService, "availability", "manage"), handler.Create)
		mutate.PUT("/:id", middleware.RBACAuthorize(rbacService, "availability", "manage"), handler.Update)
		mutate.DELETE("/:id", middleware.RBACAuthorize(rbacService, "availability", "manage"), handler.Delete)

		book := []gin.HandlerFunc{middleware.RBACAuthorize(rbacService, "availability", "book")}
		if rdb != nil {
			book = append(book, middleware.Idempotency(rdb))
		}
		mutate.POST("/:id/book", append(book, handler.Book)...)
	}
}
