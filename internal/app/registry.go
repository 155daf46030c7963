package app

import (
	"context"
	"database/sql"

	"github.com/msdp-platform/msdp-flexstaff/internal/application"
	"github.com/msdp-platform/msdp-flexstaff/internal/auth"
	"github.com/msdp-platform/msdp-flexstaff/internal/availability"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
	"github.com/msdp-platform/msdp-flexstaff/internal/notification"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment/gateway"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment/webhookarchive"
	"github.com/msdp-platform/msdp-flexstaff/internal/rbac"
	"github.com/msdp-platform/msdp-flexstaff/internal/rbac/infra"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/counter"
	"github.com/msdp-platform/msdp-flexstaff/internal/shift"
	"github.com/msdp-platform/msdp-flexstaff/internal/timesheet"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewPaymentService builds settlement from the environment. It is shared by
// the API and the flexctl settle command.
func NewPaymentService(ctx context.Context, db *sql.DB, gormDB *gorm.DB, outboxRepo kafka.OutboxRepository) (payment.Service, error) {
	cfg, err := payment.ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	gw, err := gateway.New(gateway.ConfigFromEnv())
	if err != nil {
		return nil, err
	}

	var archive webhookarchive.Archive
	dynamoArchive, err := webhookarchive.NewFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	if dynamoArchive != nil {
		archive = dynamoArchive
	} else {
		zap.L().Named("app.registry").Warn("webhook archive disabled, redeliveries rely on guarded updates only")
	}

	return payment.NewService(db, payment.NewRepository(gormDB), gw, outboxRepo, archive, cfg), nil
}

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	authRepo := auth.NewRepository(gormDB)
	shiftRepo := shift.NewRepository(gormDB)
	applicationRepo := application.NewRepository(gormDB)
	timesheetRepo := timesheet.NewRepository(gormDB)
	availabilityRepo := availability.NewRepository(gormDB)
	notificationRepo := notification.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	policy, err := rbac.DefaultPolicy()
	if err != nil {
		return err
	}
	rbacService, err := rbac.NewService(enforcer, policy)
	if err != nil {
		return err
	}

	// --- Services ---
	shiftCache := shift.NewCache(rdb)

	paymentService, err := NewPaymentService(context.Background(), db, gormDB, outboxRepo)
	if err != nil {
		return err
	}

	authService := auth.NewService(db, authRepo)
	shiftService := shift.NewService(db, shiftRepo, counterRepo, shiftCache, outboxRepo)
	applicationService := application.NewService(db, applicationRepo, outboxRepo, shiftCache)
	timesheetService := timesheet.NewService(db, timesheetRepo, outboxRepo, payment.NewSettler(paymentService))
	availabilityService := availability.NewService(db, availabilityRepo, outboxRepo)
	notificationService := notification.NewService(notificationRepo)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService)
	shiftHandler := shift.NewHandler(shiftService)
	applicationHandler := application.NewHandlerWithRedis(applicationService, rdb)
	timesheetHandler := timesheet.NewHandlerWithRedis(timesheetService, rdb)
	paymentHandler := payment.NewHandlerWithRedis(paymentService, rdb)
	availabilityHandler := availability.NewHandlerWithRedis(availabilityService, rdb)
	notificationHandler := notification.NewHandler(notificationService)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler)
		shift.RegisterRoutes(api, shiftHandler, rbacService)
		application.RegisterRoutes(api, applicationHandler, rbacService, rdb)
		timesheet.RegisterRoutes(api, timesheetHandler, rbacService, rdb)
		payment.RegisterRoutes(api, paymentHandler, rbacService, rdb)
		availability.RegisterRoutes(api, availabilityHandler, rbacService, rdb)
		notification.RegisterRoutes(api, notificationHandler, rbacService)
		rbac.RegisterRoutes(api, rbacHandler, rbacService)
	}

	return nil
}
