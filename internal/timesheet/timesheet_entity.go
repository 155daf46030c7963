package timesheet

import (
	"time"

	"github.com/google/uuid"
)

// Timesheet records worked time for one assignment. Pay is frozen at
// clock-out: HourlyRate is the shift rate at that moment and TotalAmount is
// derived from it in pence.
type Timesheet struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AssignmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_timesheets_assignment"`
	ShiftID      uuid.UUID `gorm:"type:uuid;not null;index:idx_timesheets_shift"`
	WorkerID     uuid.UUID `gorm:"type:uuid;not null;index:idx_timesheets_worker_status"`
	EmployerID   uuid.UUID `gorm:"type:uuid;not null;index:idx_timesheets_employer_status"`

	ClockInTime     *time.Time
	ClockOutTime    *time.Time
	BreakMinutes    int   `gorm:"type:int;not null;default:0"`
	TotalHoursCenti int64 `gorm:"type:bigint;not null;default:0"`
	HourlyRate      int64 `gorm:"type:bigint;not null;default:0"`
	TotalAmount     int64 `gorm:"type:bigint;not null;default:0"`

	Status      string `gorm:"type:varchar(20);not null;default:'pending';index:idx_timesheets_worker_status;index:idx_timesheets_employer_status"`
	SubmittedAt *time.Time
	ApprovedAt  *time.Time
	RejectedAt  *time.Time
	Notes       *string `gorm:"type:text"`

	DisputedAt     *time.Time `gorm:"index:idx_timesheets_disputed"`
	DisputeReason  *string    `gorm:"type:text"`
	DisputedByRole *string    `gorm:"type:varchar(20)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Timesheet) IsClockedIn() bool  { return t.ClockInTime != nil }
func (t Timesheet) IsClockedOut() bool { return t.ClockOutTime != nil }
