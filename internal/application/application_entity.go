package application

import (
	"time"

	"github.com/google/uuid"
)

// Application is a worker's request to fill a position on a shift. At most
// one non-withdrawn application exists per (shift, worker); the partial
// unique index uq_applications_shift_worker_active enforces it.
type Application struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftID  uuid.UUID `gorm:"type:uuid;not null;index:idx_applications_shift_status"`
	WorkerID uuid.UUID `gorm:"type:uuid;not null;index:idx_applications_worker"`

	Status          string  `gorm:"type:varchar(20);not null;default:'pending';index:idx_applications_shift_status"`
	Message         string  `gorm:"type:text"`
	RejectionReason *string `gorm:"type:text"`

	AppliedAt   time.Time `gorm:"not null"`
	RespondedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Assignment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftID       uuid.UUID `gorm:"type:uuid;not null;index:idx_shift_assignments_shift"`
	WorkerID      uuid.UUID `gorm:"type:uuid;not null;index:idx_shift_assignments_worker"`
	EmployerID    uuid.UUID `gorm:"type:uuid;not null;index:idx_shift_assignments_employer"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_shift_assignments_application"`

	AssignedAt        time.Time `gorm:"not null"`
	ConfirmedByWorker bool      `gorm:"not null;default:false"`
	ConfirmedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Assignment) TableName() string {
	return "shift_assignments"
}
