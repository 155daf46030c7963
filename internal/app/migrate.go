package app

import (
	"github.com/msdp-platform/msdp-flexstaff/internal/application"
	"github.com/msdp-platform/msdp-flexstaff/internal/auth"
	"github.com/msdp-platform/msdp-flexstaff/internal/availability"
	"github.com/msdp-platform/msdp-flexstaff/internal/notification"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment"
	"github.com/msdp-platform/msdp-flexstaff/internal/shift"
	"github.com/msdp-platform/msdp-flexstaff/internal/timesheet"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// schemaStatements cover what gorm tags cannot express. Each one is safe to
// run again.
var schemaStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_applications_shift_worker_active
		ON applications (shift_id, worker_id) WHERE status <> 'withdrawn'`,
	`DO $$ BEGIN
		ALTER TABLE shifts ADD CONSTRAINT ck_shifts_positions
			CHECK (filled_positions >= 0 AND filled_positions <= total_positions);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		ALTER TABLE worker_availability ADD CONSTRAINT ck_worker_availability_window
			CHECK (start_minute >= 0 AND end_minute <= 1440 AND end_minute > start_minute);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		ALTER TABLE payments ADD CONSTRAINT ck_payments_split
			CHECK (platform_fee >= 0 AND net_amount >= 0 AND platform_fee + net_amount = amount);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id             varchar(64) PRIMARY KEY,
		request_id     varchar(64),
		aggregate_type varchar(50) NOT NULL,
		aggregate_id   varchar(64) NOT NULL,
		event_type     varchar(100) NOT NULL,
		topic          varchar(200) NOT NULL,
		payload        jsonb NOT NULL,
		status         varchar(20) NOT NULL DEFAULT 'pending',
		retry_count    int NOT NULL DEFAULT 0,
		next_retry_at  timestamptz NOT NULL DEFAULT now(),
		processed_at   timestamptz,
		error_message  text,
		created_at     timestamptz NOT NULL DEFAULT now(),
		updated_at     timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_pending
		ON outbox_events (next_retry_at, created_at) WHERE status IN ('pending', 'failed')`,
	`CREATE TABLE IF NOT EXISTS entity_counters (
		owner_id     varchar(64) NOT NULL,
		counter_type varchar(50) NOT NULL,
		last_value   bigint NOT NULL DEFAULT 0,
		updated_at   timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (owner_id, counter_type)
	)`,
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	log := zap.L().Named("app.migrate")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return err
	}

	if err := db.AutoMigrate(
		&auth.User{},
		&auth.Employer{},
		&auth.Worker{},
		&shift.Shift{},
		&application.Application{},
		&application.Assignment{},
		&timesheet.Timesheet{},
		&payment.Payment{},
		&availability.Slot{},
		&notification.Notification{},
	); err != nil {
		return err
	}
	log.Info("tables migrated")

	for _, stmt := range schemaStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	log.Info("constraints and support tables migrated", zap.Int("statements", len(schemaStatements)))
	return nil
}
