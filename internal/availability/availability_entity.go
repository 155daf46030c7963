package availability

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a window a worker offers on one date. Times are minutes since
// midnight and the window is half-open: [StartMinute, EndMinute).
type Slot struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkerID uuid.UUID `gorm:"type:uuid;not null;index:idx_worker_availability_worker_date"`
	Date     time.Time `gorm:"type:date;not null;index:idx_worker_availability_worker_date;index:idx_worker_availability_search"`

	StartMinute int    `gorm:"type:int;not null"`
	EndMinute   int    `gorm:"type:int;not null"`
	HourlyRate  int64  `gorm:"type:bigint;not null"`
	Notes       string `gorm:"type:text"`

	Status             string     `gorm:"type:varchar(20);not null;default:'available';index:idx_worker_availability_search"`
	BookedByEmployerID *uuid.UUID `gorm:"type:uuid;index:idx_worker_availability_booked_by"`
	BookedAt           *time.Time
	SeriesID           *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Slot) TableName() string {
	return "worker_availability"
}

// Overlaps reports whether the two half-open windows share any minute.
func (s Slot) Overlaps(start, end int) bool {
	return s.StartMinute < end && s.EndMinute > start
}
